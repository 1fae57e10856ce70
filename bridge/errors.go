package bridge

import "errors"

var (
	ErrClosed     = errors.New("bridge: closed")
	ErrNotStarted = errors.New("bridge: not started")

	errAmbiguousInitialize = errors.New("bridge: initialize accepts either a grant or restore")
	errEmptyInitialize     = errors.New("bridge: initialize requires a grant or restore")
	errGrantCodeRequired   = errors.New("bridge: grant code is required")
)

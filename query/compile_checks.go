package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-saved/core"
)

var (
	_ gocmd.Querier[SessionStatusMessage, core.SessionStatus] = (*SessionStatusQuery)(nil)
	_ gocmd.Querier[LoadPageMessage, core.Page]               = (*LoadPageQuery)(nil)

	_ StatusReader = (*core.Service)(nil)
	_ PageLoader   = (*core.Service)(nil)
)

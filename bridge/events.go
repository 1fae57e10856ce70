package bridge

import "github.com/goliatone/go-saved/core"

type EventType string

const (
	EventSessionReady  EventType = "session_ready"
	EventSessionFailed EventType = "session_failed"
	EventPageReady     EventType = "page_ready"
	EventPageFailed    EventType = "page_failed"
)

// Event is one outbound message. Items and Cursor are set on page_ready,
// Reason on the failure events.
type Event struct {
	Type          EventType
	Seq           uint64
	CorrelationID string
	Items         []core.SavedItem
	Cursor        string
	Dropped       int
	Reason        string
	Err           error
}

func (e Event) Failed() bool {
	return e.Type == EventSessionFailed || e.Type == EventPageFailed
}

// InitializeRequest starts a session either from a provider callback grant
// or from the persisted credential. Exactly one of Grant and Restore is set.
type InitializeRequest struct {
	Grant   *core.Grant
	Restore bool
}

func (r InitializeRequest) Validate() error {
	switch {
	case r.Grant != nil && r.Restore:
		return errAmbiguousInitialize
	case r.Grant == nil && !r.Restore:
		return errEmptyInitialize
	case r.Grant != nil && r.Grant.Code == "":
		return errGrantCodeRequired
	}
	return nil
}

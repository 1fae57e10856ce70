package query

import (
	"fmt"
	"strings"
)

const (
	TypeSessionStatus = "saved.query.session.status"
	TypeLoadPage      = "saved.query.page.load"
)

type SessionStatusMessage struct{}

func (SessionStatusMessage) Type() string { return TypeSessionStatus }

// LoadPageMessage loads one page synchronously, outside the bridge.
type LoadPageMessage struct {
	Cursor string
	Limit  int
}

func (LoadPageMessage) Type() string { return TypeLoadPage }

func (m LoadPageMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	if strings.ContainsAny(m.Cursor, " \t\n") {
		return fmt.Errorf("query: cursor must not contain whitespace")
	}
	return nil
}

package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-saved/core"
)

const (
	TypeInitializeSession = "saved.command.session.initialize"
	TypeRequestPage       = "saved.command.page.request"
	TypeBeginLogin        = "saved.command.login.begin"
	TypeLogout            = "saved.command.logout"
)

// InitializeSessionMessage carries either a callback grant or a restore
// request.
type InitializeSessionMessage struct {
	Grant   *core.Grant
	Restore bool
}

func (InitializeSessionMessage) Type() string { return TypeInitializeSession }

func (m InitializeSessionMessage) Validate() error {
	if m.Grant != nil && m.Restore {
		return fmt.Errorf("command: grant and restore are mutually exclusive")
	}
	if m.Grant == nil && !m.Restore {
		return fmt.Errorf("command: grant or restore is required")
	}
	if m.Grant != nil {
		if strings.TrimSpace(m.Grant.Code) == "" {
			return fmt.Errorf("command: grant code is required")
		}
		if strings.TrimSpace(m.Grant.State) == "" {
			return fmt.Errorf("command: grant state is required")
		}
	}
	return nil
}

type RequestPageMessage struct {
	Cursor string
}

func (RequestPageMessage) Type() string { return TypeRequestPage }

func (RequestPageMessage) Validate() error { return nil }

type BeginLoginMessage struct{}

func (BeginLoginMessage) Type() string { return TypeBeginLogin }

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

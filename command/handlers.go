package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-saved/bridge"
	"github.com/goliatone/go-saved/core"
)

// Intents is the inbound side of the message bridge.
type Intents interface {
	InitializeSession(req bridge.InitializeRequest) (uint64, error)
	RequestPage(cursor string) (uint64, error)
}

type LoginService interface {
	BeginLogin(ctx context.Context) (core.AuthorizationRequest, error)
	Logout(ctx context.Context) error
}

// Accepted is stored as the command result for bridge intents.
type Accepted struct {
	Seq uint64
}

type InitializeSessionCommand struct {
	intents Intents
}

func NewInitializeSessionCommand(intents Intents) *InitializeSessionCommand {
	return &InitializeSessionCommand{intents: intents}
}

func (c *InitializeSessionCommand) Execute(ctx context.Context, msg InitializeSessionMessage) error {
	if c == nil || c.intents == nil {
		return commandDependencyError("command: bridge is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid initialize session message")
	}
	seq, err := c.intents.InitializeSession(bridge.InitializeRequest{
		Grant:   msg.Grant,
		Restore: msg.Restore,
	})
	if err != nil {
		return err
	}
	storeResult(ctx, Accepted{Seq: seq})
	return nil
}

type RequestPageCommand struct {
	intents Intents
}

func NewRequestPageCommand(intents Intents) *RequestPageCommand {
	return &RequestPageCommand{intents: intents}
}

func (c *RequestPageCommand) Execute(ctx context.Context, msg RequestPageMessage) error {
	if c == nil || c.intents == nil {
		return commandDependencyError("command: bridge is required")
	}
	seq, err := c.intents.RequestPage(msg.Cursor)
	if err != nil {
		return err
	}
	storeResult(ctx, Accepted{Seq: seq})
	return nil
}

type BeginLoginCommand struct {
	service LoginService
}

func NewBeginLoginCommand(service LoginService) *BeginLoginCommand {
	return &BeginLoginCommand{service: service}
}

func (c *BeginLoginCommand) Execute(ctx context.Context, _ BeginLoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	out, err := c.service.BeginLogin(ctx)
	if err != nil {
		return err
	}
	if out.URL == "" {
		return commandValidationError("url", "authorization url is empty")
	}
	storeResult(ctx, out)
	return nil
}

type LogoutCommand struct {
	service LoginService
}

func NewLogoutCommand(service LoginService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	return c.service.Logout(ctx)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-saved/bridge"
	"github.com/goliatone/go-saved/core"
)

var (
	_ gocmd.Commander[InitializeSessionMessage] = (*InitializeSessionCommand)(nil)
	_ gocmd.Commander[RequestPageMessage]       = (*RequestPageCommand)(nil)
	_ gocmd.Commander[BeginLoginMessage]        = (*BeginLoginCommand)(nil)
	_ gocmd.Commander[LogoutMessage]            = (*LogoutCommand)(nil)

	_ Intents      = (*bridge.Bridge)(nil)
	_ LoginService = (*core.Service)(nil)
)

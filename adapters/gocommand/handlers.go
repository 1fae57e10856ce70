package gocommand

import (
	"fmt"

	savedcommand "github.com/goliatone/go-saved/command"
	"github.com/goliatone/go-saved/query"
)

// SavedHandlers groups the dependencies behind every saved command and query.
type SavedHandlers struct {
	Intents savedcommand.Intents
	Login   savedcommand.LoginService
	Status  query.StatusReader
	Pages   query.PageLoader
}

// RegisterSavedHandlers subscribes each configured handler and initializes
// the registry.
func RegisterSavedHandlers(adapter *RegistryAdapter, handlers SavedHandlers) error {
	if adapter == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if handlers.Intents != nil {
		if _, err := RegisterAndSubscribe(adapter, savedcommand.NewInitializeSessionCommand(handlers.Intents)); err != nil {
			return err
		}
		if _, err := RegisterAndSubscribe(adapter, savedcommand.NewRequestPageCommand(handlers.Intents)); err != nil {
			return err
		}
	}
	if handlers.Login != nil {
		if _, err := RegisterAndSubscribe(adapter, savedcommand.NewBeginLoginCommand(handlers.Login)); err != nil {
			return err
		}
		if _, err := RegisterAndSubscribe(adapter, savedcommand.NewLogoutCommand(handlers.Login)); err != nil {
			return err
		}
	}
	if handlers.Status != nil {
		if _, err := SubscribeQuery(adapter, query.NewSessionStatusQuery(handlers.Status)); err != nil {
			return err
		}
	}
	if handlers.Pages != nil {
		if _, err := SubscribeQuery(adapter, query.NewLoadPageQuery(handlers.Pages)); err != nil {
			return err
		}
	}
	return adapter.Initialize()
}

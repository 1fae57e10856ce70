package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/goliatone/go-command"

	saved "github.com/goliatone/go-saved"
	"github.com/goliatone/go-saved/adapters/gocommand"
	"github.com/goliatone/go-saved/adapters/gologger"
	"github.com/goliatone/go-saved/core"
)

type commandContext struct {
	configFlag  *string
	dataDirFlag *string

	// adapter replaces the HTTP adapter under the Reddit transport when set.
	adapter core.TransportAdapter

	settingsOnce sync.Once
	settings     *settings
	settingsErr  error
}

func newCommandContext(configFlag, dataDirFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		dataDirFlag: dataDirFlag,
	}
}

func (c *commandContext) ensureSettings() (*settings, error) {
	c.settingsOnce.Do(func() {
		var path, dataDir string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if c.dataDirFlag != nil {
			dataDir = strings.TrimSpace(*c.dataDirFlag)
		}
		c.settings, c.settingsErr = loadSettings(path, dataDir)
	})
	return c.settings, c.settingsErr
}

// runtime is one locked CLI session: store, service, bridge and the
// command registry in front of them.
type runtime struct {
	cfg        core.Config
	settings   *settings
	logger     *gologger.ZapLogger
	lock       *flock.Flock
	closeStore func() error
	facade     *saved.Facade
	registry   *gocommand.RegistryAdapter
}

func (c *commandContext) openRuntime(ctx context.Context) (rt *runtime, err error) {
	s, err := c.ensureSettings()
	if err != nil {
		return nil, err
	}
	cfg, provider, err := serviceConfig(ctx, s)
	if err != nil {
		return nil, err
	}
	logger, err := gologger.NewZapLogger(s.LogLevel, s.LogDevelopment)
	if err != nil {
		return nil, err
	}

	lock, err := acquireLock(s.DataDir)
	if err != nil {
		return nil, err
	}
	rt = &runtime{cfg: cfg, settings: s, logger: logger, lock: lock, closeStore: func() error { return nil }}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return rt, err
	}
	rt.closeStore = closeStore

	facade, err := saved.New(cfg,
		saved.WithConfigProvider(provider),
		saved.WithLoggerProvider(logger),
		saved.WithStore(store),
		saved.WithTransportFactory(saved.RedditTransportFactory(c.adapter)),
	)
	if err != nil {
		return rt, err
	}
	rt.facade = facade
	if err := facade.Start(ctx); err != nil {
		return rt, err
	}

	rt.registry = gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := facade.Register(rt.registry); err != nil {
		return rt, err
	}
	return rt, nil
}

func (r *runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.registry != nil {
		r.registry.Close()
	}
	if r.facade != nil {
		errs = append(errs, r.facade.Close())
	}
	if r.closeStore != nil {
		errs = append(errs, r.closeStore())
	}
	if r.lock != nil {
		errs = append(errs, r.lock.Unlock())
	}
	if r.logger != nil {
		// Sync on a terminal stderr returns EINVAL.
		_ = r.logger.Sync()
	}
	return errors.Join(errs...)
}

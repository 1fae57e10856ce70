package core

import (
	"context"
	"errors"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Service wires the session manager, content client and normalizer into the
// operations the message bridge and command surface call.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	store           KVStore
	transport       Transport
	sessions        *SessionManager
	content         ContentClient
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Store           KVStore
	Transport       Transport
	Sessions        *SessionManager
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("saved", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("saved"); named != nil {
			logger = glog.Ensure(named)
		}
	}
	// An explicit logger beats the default provider, not a caller's one.
	if builder.loggerSet && !builder.providerSet {
		logger = glog.Ensure(builder.logger)
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.store == nil {
		builder.store = NewMemoryStore()
	}
	if builder.nonceGenerator == nil {
		builder.nonceGenerator = GenerateNonce
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.transport == nil && builder.transportFn != nil {
		transport, err := builder.transportFn(finalConfig)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
		builder.transport = transport
	}

	sessions := NewSessionManager(finalConfig, builder.store, builder.transport, logger)
	sessions.nonces = builder.nonceGenerator
	if builder.clock != nil {
		sessions.clock = builder.clock
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		store:           builder.store,
		transport:       builder.transport,
		sessions:        sessions,
		content:         NewContentClient(finalConfig.pageSize()),
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Store:           s.store,
		Transport:       s.transport,
		Sessions:        s.sessions,
	}
}

func (s *Service) Sessions() *SessionManager {
	if s == nil {
		return nil
	}
	return s.sessions
}

func (s *Service) Restore(ctx context.Context) (state SessionState, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["session_state"] = state
		s.observeOperation(ctx, startedAt, "restore", err, fields)
	}()
	if s == nil {
		return SessionStateUnauthenticated, errServiceNotConfigured
	}
	return s.sessions.Restore(ctx)
}

func (s *Service) BeginLogin(ctx context.Context) (request AuthorizationRequest, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["session_state"] = s.Status().State
		s.observeOperation(ctx, startedAt, "begin_login", err, fields)
	}()
	if s == nil {
		return AuthorizationRequest{}, errServiceNotConfigured
	}
	return s.sessions.BeginLogin(ctx)
}

func (s *Service) CompleteLogin(ctx context.Context, grant Grant) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["session_state"] = s.Status().State
		s.observeOperation(ctx, startedAt, "complete_login", err, fields)
	}()
	if s == nil {
		return errServiceNotConfigured
	}
	return s.sessions.CompleteLogin(ctx, grant)
}

func (s *Service) Logout(ctx context.Context) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "logout", err, nil)
	}()
	if s == nil {
		return errServiceNotConfigured
	}
	return s.sessions.Logout(ctx)
}

func (s *Service) Status() SessionStatus {
	if s == nil {
		return SessionStatus{State: SessionStateUnauthenticated}
	}
	return s.sessions.Status()
}

// LoadPage fetches and normalizes one page after cursor. Malformed items are
// logged and dropped; the rest are delivered in provider order.
func (s *Service) LoadPage(ctx context.Context, req PageRequest) (page Page, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"cursor": strings.TrimSpace(req.Cursor),
	}
	defer func() {
		fields["items"] = len(page.Items)
		fields["dropped"] = page.Dropped
		fields["session_state"] = s.Status().State
		s.observeOperation(ctx, startedAt, "load_page", err, fields)
	}()
	if s == nil {
		return Page{}, errServiceNotConfigured
	}

	client, identity, generation, err := s.sessions.ActiveClient(ctx)
	if err != nil {
		s.handleRejection(ctx, err, generation)
		return Page{}, err
	}
	fields["identity"] = identity.Name

	raw, err := s.content.FetchPage(ctx, client, identity, req)
	if err != nil {
		s.handleRejection(ctx, err, generation)
		return Page{}, err
	}

	page, failures := NormalizePage(raw)
	for _, failure := range failures {
		s.logWarn(ctx, "dropped malformed item", map[string]any{
			"index":  failure.Index,
			"name":   failure.Name,
			"reason": failure.Reason,
		})
	}
	return page, nil
}

func (s *Service) handleRejection(ctx context.Context, err error, generation uint64) {
	var rejected *AuthRejectedError
	if !errors.As(err, &rejected) {
		return
	}
	state, policyErr := s.sessions.HandleAuthRejected(ctx, generation)
	if policyErr != nil {
		s.logError(ctx, "auth rejection policy failed", map[string]any{
			"error": policyErr.Error(),
		})
		return
	}
	s.logWarn(ctx, "provider rejected credential", map[string]any{
		"policy":        string(s.config.rejectedPolicy()),
		"session_state": state,
	})
}

// MapError converts err into the service error envelope.
func (s *Service) MapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

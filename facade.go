package saved

import (
	"context"
	"fmt"

	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	"github.com/goliatone/go-saved/adapters/gocommand"
	"github.com/goliatone/go-saved/bridge"
	savedcommand "github.com/goliatone/go-saved/command"
	"github.com/goliatone/go-saved/core"
	savedquery "github.com/goliatone/go-saved/query"
)

type Commands struct {
	InitializeSession *savedcommand.InitializeSessionCommand
	RequestPage       *savedcommand.RequestPageCommand
	BeginLogin        *savedcommand.BeginLoginCommand
	Logout            *savedcommand.LogoutCommand
}

type Queries struct {
	SessionStatus *savedquery.SessionStatusQuery
	LoadPage      *savedquery.LoadPageQuery
}

// Facade owns the bridge in front of one service and exposes the
// command/query handlers bound to both.
type Facade struct {
	service  *core.Service
	bridge   *bridge.Bridge
	commands Commands
	queries  Queries

	queueRegistry *jobqueuecommand.Registry
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	bridgeOptions []bridge.Option
	queueRegistry *jobqueuecommand.Registry
}

// QueueResolverKey names the resolver Register adds when a queue registry
// is configured.
const QueueResolverKey = "queue"

func WithBridgeOptions(opts ...bridge.Option) FacadeOption {
	return func(options *facadeOptions) {
		options.bridgeOptions = append(options.bridgeOptions, opts...)
	}
}

// WithQueueRegistry mirrors the commands Register subscribes into a go-job
// queue registry, so a worker can run them from queued jobs.
func WithQueueRegistry(registry *jobqueuecommand.Registry) FacadeOption {
	return func(options *facadeOptions) {
		options.queueRegistry = registry
	}
}

func NewFacade(service *core.Service, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("saved: service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	bridgeOptions := append([]bridge.Option{
		bridge.WithLogger(service.Dependencies().Logger),
	}, cfg.bridgeOptions...)
	b := bridge.New(service, bridgeOptions...)

	facade := &Facade{service: service, bridge: b, queueRegistry: cfg.queueRegistry}
	facade.commands = Commands{
		InitializeSession: savedcommand.NewInitializeSessionCommand(b),
		RequestPage:       savedcommand.NewRequestPageCommand(b),
		BeginLogin:        savedcommand.NewBeginLoginCommand(service),
		Logout:            savedcommand.NewLogoutCommand(service),
	}
	facade.queries = Queries{
		SessionStatus: savedquery.NewSessionStatusQuery(service),
		LoadPage:      savedquery.NewLoadPageQuery(service),
	}
	return facade, nil
}

// New builds the service with the Reddit transport as the default and
// puts a facade in front of it. Options passed here override the default
// transport.
func New(cfg Config, opts ...Option) (*Facade, error) {
	options := append([]Option{WithTransportFactory(RedditTransportFactory(nil))}, opts...)
	service, err := NewService(cfg, options...)
	if err != nil {
		return nil, err
	}
	return NewFacade(service)
}

func (f *Facade) Start(ctx context.Context) error {
	if f == nil || f.bridge == nil {
		return fmt.Errorf("saved: facade is not configured")
	}
	return f.bridge.Start(ctx)
}

func (f *Facade) Close() error {
	if f == nil || f.bridge == nil {
		return nil
	}
	return f.bridge.Close()
}

func (f *Facade) Events() <-chan bridge.Event {
	if f == nil || f.bridge == nil {
		return nil
	}
	return f.bridge.Events()
}

func (f *Facade) Bridge() *bridge.Bridge {
	if f == nil {
		return nil
	}
	return f.bridge
}

func (f *Facade) Service() *core.Service {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

// Register subscribes the facade's handlers on the registry and
// initializes it. With WithQueueRegistry the queue resolver is added first.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter) error {
	if f == nil || f.service == nil {
		return fmt.Errorf("saved: facade is not configured")
	}
	if f.queueRegistry != nil && !adapter.HasResolver(QueueResolverKey) {
		if err := adapter.AddQueueResolver(QueueResolverKey, f.queueRegistry); err != nil {
			return fmt.Errorf("saved: add queue resolver: %w", err)
		}
	}
	return gocommand.RegisterSavedHandlers(adapter, gocommand.SavedHandlers{
		Intents: f.bridge,
		Login:   f.service,
		Status:  f.service,
		Pages:   f.service,
	})
}

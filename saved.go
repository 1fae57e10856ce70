// Package saved wires the saved-content pipeline: the session service, the
// Reddit transport, the message bridge and the command/query surface.
package saved

import (
	"github.com/goliatone/go-saved/core"
	"github.com/goliatone/go-saved/providers/reddit"
	"github.com/goliatone/go-saved/transport"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type KVStore = core.KVStore

type Transport = core.Transport

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithStore            = core.WithStore
	WithTransport        = core.WithTransport
	WithTransportFactory = core.WithTransportFactory
	WithNonceGenerator   = core.WithNonceGenerator
	WithClock            = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}

// RedditTransport builds the Reddit transport for cfg. A nil adapter gets
// an HTTP adapter carrying the configured user agent.
func RedditTransport(cfg Config, adapter core.TransportAdapter) (*reddit.Transport, error) {
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil, cfg.UserAgent)
	}
	return reddit.NewTransport(reddit.ConfigFromCore(cfg), adapter)
}

// RedditTransportFactory returns a factory for WithTransportFactory.
func RedditTransportFactory(adapter core.TransportAdapter) core.TransportFactory {
	return func(cfg Config) (core.Transport, error) {
		return RedditTransport(cfg, adapter)
	}
}

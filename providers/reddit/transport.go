package reddit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-saved/core"
	"github.com/goliatone/go-saved/identity"
	"github.com/goliatone/go-saved/providers"
)

const (
	ProviderID            = "reddit"
	DefaultAPIBaseURL     = "https://oauth.reddit.com"
	DefaultTokenURL       = "https://www.reddit.com/api/v1/access_token"
	defaultRequestTimeout = 30 * time.Second
)

type Config struct {
	ClientID       string
	ClientSecret   string
	TokenURL       string
	APIBaseURL     string
	RequestTimeout time.Duration
}

// ConfigFromCore maps the service configuration onto the transport.
func ConfigFromCore(cfg core.Config) Config {
	return Config{
		ClientID:   cfg.ClientID,
		TokenURL:   cfg.Provider.TokenURL,
		APIBaseURL: cfg.Provider.APIBaseURL,
	}
}

// Transport exchanges grants and builds bearer clients over one adapter.
type Transport struct {
	cfg       Config
	adapter   core.TransportAdapter
	exchanger *providers.CodeExchanger
}

func NewTransport(cfg Config, adapter core.TransportAdapter) (*Transport, error) {
	if adapter == nil {
		return nil, fmt.Errorf("reddit: transport adapter is required")
	}
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	exchanger, err := providers.NewCodeExchanger(providers.OAuth2Config{
		TokenURL:            cfg.TokenURL,
		ClientID:            cfg.ClientID,
		ClientSecret:        cfg.ClientSecret,
		TokenRequestTimeout: cfg.RequestTimeout,
	}, adapter)
	if err != nil {
		return nil, err
	}
	return &Transport{cfg: cfg, adapter: adapter, exchanger: exchanger}, nil
}

func (t *Transport) ExchangeGrant(ctx context.Context, req core.ExchangeRequest) (core.AccessCredential, error) {
	if t == nil {
		return core.AccessCredential{}, fmt.Errorf("reddit: transport is nil")
	}
	return t.exchanger.Exchange(ctx, req)
}

func (t *Transport) BuildClient(_ context.Context, credential core.AccessCredential) (core.ClientHandle, error) {
	if t == nil {
		return nil, fmt.Errorf("reddit: transport is nil")
	}
	if !credential.Valid() {
		return nil, fmt.Errorf("reddit: access token is required")
	}
	return &Client{
		adapter:    t.adapter,
		apiBaseURL: t.cfg.APIBaseURL,
		timeout:    t.cfg.RequestTimeout,
		credential: credential,
		resolver: identity.NewResolver(t.adapter, identity.Config{
			MeURL:          t.cfg.APIBaseURL + "/api/v1/me",
			RequestTimeout: t.cfg.RequestTimeout,
		}),
	}, nil
}

var _ core.Transport = (*Transport)(nil)

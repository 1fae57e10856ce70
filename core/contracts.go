package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// KVStore is the string-keyed durable store. A missing key reads as
// found == false with a nil error.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Grant is the authorization code returned on the provider callback.
type Grant struct {
	Code  string
	State string
}

type ExchangeRequest struct {
	Code        string
	ClientID    string
	RedirectURI string
}

// Transport is the narrow boundary to the provider's OAuth and API surface.
type Transport interface {
	ExchangeGrant(ctx context.Context, req ExchangeRequest) (AccessCredential, error)
	BuildClient(ctx context.Context, credential AccessCredential) (ClientHandle, error)
}

// ClientHandle is an authenticated provider client bound to one credential.
type ClientHandle interface {
	Me(ctx context.Context) (Identity, error)
	FetchSavedPage(ctx context.Context, identity Identity, req PageRequest) (RawPage, error)
}

// SecretProvider seals stored values at rest.
type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type TransportRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Query    map[string]string
	Body     []byte
	Metadata map[string]any
	Timeout  time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// Clock returns the current time. Tests replace it to pin timestamps.
type Clock func() time.Time

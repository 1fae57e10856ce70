// Package identity resolves the account that owns an access credential.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-saved/core"
	"github.com/goliatone/go-saved/transport"
)

const (
	defaultRequestTimeout = 10 * time.Second
	DefaultMeURL          = "https://oauth.reddit.com/api/v1/me"
)

var ErrProfileNotFound = errors.New("identity: profile not found")

type ProfileNotFoundError struct {
	Cause error
}

func (e *ProfileNotFoundError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrProfileNotFound.Error()
	}
	return ErrProfileNotFound.Error() + ": " + e.Cause.Error()
}

func (e *ProfileNotFoundError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrProfileNotFound
	}
	return errors.Join(ErrProfileNotFound, e.Cause)
}

func (e *ProfileNotFoundError) ToServiceError() *goerrors.Error {
	message := ErrProfileNotFound.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.ServiceErrorProfileNotFound)
}

func profileNotFound(cause error) error {
	return &ProfileNotFoundError{Cause: cause}
}

type Config struct {
	MeURL          string
	RequestTimeout time.Duration
}

// Resolver fetches the current user behind a bearer token.
type Resolver struct {
	adapter        core.TransportAdapter
	meURL          string
	requestTimeout time.Duration
}

func NewResolver(adapter core.TransportAdapter, cfg Config) *Resolver {
	meURL := strings.TrimSpace(cfg.MeURL)
	if meURL == "" {
		meURL = DefaultMeURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Resolver{adapter: adapter, meURL: meURL, requestTimeout: timeout}
}

// Resolve returns the identity for accessToken. Transport and status
// failures are returned unchanged so callers can classify rejections; a
// successful response without a user name is a ProfileNotFoundError.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) (core.Identity, error) {
	if r == nil || r.adapter == nil {
		return core.Identity{}, profileNotFound(fmt.Errorf("identity: resolver is not configured"))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return core.Identity{}, fmt.Errorf("identity: access token is required")
	}

	res, err := r.adapter.Do(ctx, core.TransportRequest{
		Method: http.MethodGet,
		URL:    r.meURL,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": "Bearer " + accessToken,
		},
		Query:   map[string]string{"raw_json": "1"},
		Timeout: r.requestTimeout,
	})
	if err != nil {
		return core.Identity{}, err
	}
	if err := transport.CheckStatus(r.meURL, res); err != nil {
		return core.Identity{}, err
	}

	var payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return core.Identity{}, profileNotFound(fmt.Errorf("identity: decode profile response: %w", err))
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return core.Identity{}, profileNotFound(nil)
	}
	return core.Identity{ID: strings.TrimSpace(payload.ID), Name: name}, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/goliatone/go-saved/core"
)

// callbackResult is what the provider redirect carried.
type callbackResult struct {
	Grant core.Grant
	Err   error
}

// callbackReceiver serves the OAuth redirect URI on loopback and hands the
// first callback it sees to Wait.
type callbackReceiver struct {
	server   *echo.Echo
	address  string
	path     string
	results  chan callbackResult
	listener net.Listener
}

func newCallbackReceiver(redirectURI string) (*callbackReceiver, error) {
	parsed, err := url.Parse(strings.TrimSpace(redirectURI))
	if err != nil {
		return nil, fmt.Errorf("parse redirect uri: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("redirect uri %q: only http loopback callbacks are served", redirectURI)
	}
	host := parsed.Hostname()
	if host != "localhost" && net.ParseIP(host) == nil {
		return nil, fmt.Errorf("redirect uri %q: host must be localhost or an ip", redirectURI)
	}
	port := parsed.Port()
	if port == "" {
		port = "80"
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	r := &callbackReceiver{
		server:  echo.New(),
		address: net.JoinHostPort(host, port),
		path:    path,
		results: make(chan callbackResult, 1),
	}
	r.server.HideBanner = true
	r.server.HidePort = true
	r.server.Use(middleware.Recover())
	r.server.GET(path, r.handleCallback)
	return r, nil
}

func (r *callbackReceiver) handler() http.Handler {
	return r.server
}

func (r *callbackReceiver) handleCallback(c echo.Context) error {
	if reason := strings.TrimSpace(c.QueryParam("error")); reason != "" {
		r.deliver(callbackResult{Err: fmt.Errorf("authorization denied: %s", reason)})
		return c.String(http.StatusOK, "Authorization was not granted. You can close this window.")
	}
	code := strings.TrimSpace(c.QueryParam("code"))
	state := strings.TrimSpace(c.QueryParam("state"))
	if code == "" || state == "" {
		return c.String(http.StatusBadRequest, "Missing code or state.")
	}
	r.deliver(callbackResult{Grant: core.Grant{Code: code, State: state}})
	return c.String(http.StatusOK, "Login received. You can close this window.")
}

// deliver keeps the first result; repeated redirects are ignored.
func (r *callbackReceiver) deliver(result callbackResult) {
	select {
	case r.results <- result:
	default:
	}
}

// Start binds the redirect address and serves in the background.
func (r *callbackReceiver) Start() error {
	ln, err := net.Listen("tcp", r.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", r.address, err)
	}
	r.listener = ln
	r.server.Listener = ln
	go func() {
		if err := r.server.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.deliver(callbackResult{Err: fmt.Errorf("callback server: %w", err)})
		}
	}()
	return nil
}

// Wait blocks until a callback arrives or ctx ends.
func (r *callbackReceiver) Wait(ctx context.Context) (core.Grant, error) {
	select {
	case result := <-r.results:
		return result.Grant, result.Err
	case <-ctx.Done():
		return core.Grant{}, ctx.Err()
	}
}

func (r *callbackReceiver) Shutdown(ctx context.Context) error {
	if r.listener == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return r.server.Shutdown(shutdownCtx)
}

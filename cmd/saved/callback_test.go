package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCallbackReceiver_DeliversGrant(t *testing.T) {
	receiver, err := newCallbackReceiver("http://127.0.0.1:65010/callback")
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}

	rec := httptest.NewRecorder()
	receiver.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=code123&state=n1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	grant, err := receiver.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if grant.Code != "code123" || grant.State != "n1" {
		t.Fatalf("unexpected grant %#v", grant)
	}
}

func TestCallbackReceiver_ProviderError(t *testing.T) {
	receiver, err := newCallbackReceiver("http://localhost:65010/callback")
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}
	rec := httptest.NewRecorder()
	receiver.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&state=n1", nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := receiver.Wait(ctx); err == nil {
		t.Fatalf("expected denial error")
	}
}

func TestCallbackReceiver_IgnoresIncompleteCallback(t *testing.T) {
	receiver, err := newCallbackReceiver("http://127.0.0.1:65010/callback")
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}
	rec := httptest.NewRecorder()
	receiver.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=n1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := receiver.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected no delivery, got %v", err)
	}
}

func TestNewCallbackReceiver_RejectsRemoteRedirect(t *testing.T) {
	for _, uri := range []string{"https://127.0.0.1:65010/callback", "http://example.com/callback"} {
		if _, err := newCallbackReceiver(uri); err == nil {
			t.Fatalf("expected %q to be rejected", uri)
		}
	}
}

package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-saved/core"
)

func TestRESTAdapter_SendsUserAgentAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "go:saved-test:v1" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Query().Get("limit") != "100" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		w.Header().Set("X-Ratelimit-Remaining", "99.0")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client(), "go:saved-test:v1")
	res, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:   server.URL,
		Query: map[string]string{"limit": "100"},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != `{"ok":true}` {
		t.Fatalf("unexpected response %#v", res)
	}
	if res.Metadata["ratelimit_remaining"] != 99.0 {
		t.Fatalf("expected rate limit metadata, got %#v", res.Metadata)
	}
}

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client(), "")
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal || rich.TextCode != core.ServiceErrorTransport {
		t.Fatalf("unexpected envelope %#v", rich)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: "http://example.com"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal envelope, got %v", err)
	}
}

func TestRESTAdapter_CancelledContextIsReturnedAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRESTAdapter(server.Client(), "").Do(ctx, core.TransportRequest{URL: server.URL})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestCheckStatus_RejectionCarriesSentinel(t *testing.T) {
	err := CheckStatus("https://oauth.reddit.com/api/v1/me", core.TransportResponse{StatusCode: http.StatusUnauthorized})
	if !errors.Is(err, core.ErrCredentialRejected) {
		t.Fatalf("expected rejection sentinel, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.HTTPStatus() != http.StatusUnauthorized {
		t.Fatalf("expected status error, got %v", err)
	}
	if err := CheckStatus("", core.TransportResponse{StatusCode: http.StatusServiceUnavailable}); errors.Is(err, core.ErrCredentialRejected) {
		t.Fatalf("5xx must not carry the rejection sentinel")
	}
	if err := CheckStatus("", core.TransportResponse{StatusCode: http.StatusNoContent}); err != nil {
		t.Fatalf("expected 2xx to pass, got %v", err)
	}
}

package core

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

func newTestManager(t *testing.T, cfg Config, store KVStore, transport Transport) *SessionManager {
	t.Helper()
	manager := NewSessionManager(cfg, store, transport, nil)
	manager.nonces = fixedNonce("n1")
	return manager
}

func TestSessionManager_RestoreWithStoredCredentialSkipsExchange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := SaveJSON(ctx, store, DefaultAccessKey, AccessCredential{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	transport := newFakeTransport()
	manager := newTestManager(t, loginConfig(), store, transport)

	state, err := manager.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if state != SessionStateAuthenticated {
		t.Fatalf("expected authenticated, got %q", state)
	}
	if transport.exchangeCount() != 0 {
		t.Fatalf("expected no exchange on restore")
	}
	if len(transport.buildCalls) != 1 || transport.buildCalls[0].RefreshToken != "r" {
		t.Fatalf("expected client built from stored credential, got %#v", transport.buildCalls)
	}
	if _, err := manager.CurrentClient(); err != nil {
		t.Fatalf("current client: %v", err)
	}
}

func TestSessionManager_RestoreWithoutCredentialStaysUnauthenticated(t *testing.T) {
	manager := newTestManager(t, loginConfig(), NewMemoryStore(), newFakeTransport())
	state, err := manager.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if state != SessionStateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %q", state)
	}
	_, err = manager.CurrentClient()
	var notAuth *NotAuthenticatedError
	if !errors.As(err, &notAuth) {
		t.Fatalf("expected not authenticated error, got %v", err)
	}
}

func TestSessionManager_RestoreDegradesOnStorageFailure(t *testing.T) {
	logger := newCaptureLogger()
	manager := NewSessionManager(loginConfig(), failingStore{err: errBackendDown}, newFakeTransport(), logger)
	state, err := manager.Restore(context.Background())
	if err != nil {
		t.Fatalf("expected degraded restore without error, got %v", err)
	}
	if state != SessionStateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %q", state)
	}
	warned := false
	for _, record := range logger.snapshot() {
		if record.level == "warn" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected storage failure to be logged")
	}
}

func TestSessionManager_RestoreResumesPendingLogin(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = SaveJSON(ctx, store, DefaultAuthStateKey, AuthState{Nonce: "n1"})
	manager := newTestManager(t, loginConfig(), store, newFakeTransport())
	state, err := manager.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if state != SessionStateAuthenticating {
		t.Fatalf("expected authenticating, got %q", state)
	}
}

func TestSessionManager_BeginLoginPersistsNonceAndBuildsURL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	manager := newTestManager(t, loginConfig(), store, newFakeTransport())

	request, err := manager.BeginLogin(ctx)
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}
	if request.Nonce != "n1" || request.ClientID != "client-1" {
		t.Fatalf("unexpected request %#v", request)
	}
	stored, found, err := LoadJSON[AuthState](ctx, store, DefaultAuthStateKey)
	if err != nil || !found || stored.Nonce != "n1" {
		t.Fatalf("expected persisted nonce, got %#v found=%v err=%v", stored, found, err)
	}
	if manager.Status().State != SessionStateAuthenticating {
		t.Fatalf("expected authenticating state")
	}

	parsed, err := url.Parse(request.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	query := parsed.Query()
	if query.Get("state") != "n1" || query.Get("duration") != "permanent" || query.Get("response_type") != "code" {
		t.Fatalf("unexpected authorize query %v", query)
	}
	if query.Get("scope") != "identity history" {
		t.Fatalf("unexpected scope %q", query.Get("scope"))
	}
}

func TestSessionManager_BeginLoginStorageFailureKeepsState(t *testing.T) {
	manager := newTestManager(t, loginConfig(), failingStore{err: errBackendDown}, newFakeTransport())
	_, err := manager.BeginLogin(context.Background())
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if manager.Status().State != SessionStateUnauthenticated {
		t.Fatalf("expected state unchanged")
	}
}

func TestSessionManager_BeginLoginRequiresClientID(t *testing.T) {
	cfg := loginConfig()
	cfg.ClientID = " "
	manager := newTestManager(t, cfg, NewMemoryStore(), newFakeTransport())
	if _, err := manager.BeginLogin(context.Background()); err == nil {
		t.Fatalf("expected client id validation error")
	}
}

func TestSessionManager_CompleteLoginMatchingNonce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	transport := newFakeTransport()
	manager := newTestManager(t, loginConfig(), store, transport)

	if _, err := manager.BeginLogin(ctx); err != nil {
		t.Fatalf("begin login: %v", err)
	}
	if err := manager.CompleteLogin(ctx, Grant{Code: "code123", State: "n1"}); err != nil {
		t.Fatalf("complete login: %v", err)
	}
	if manager.Status().State != SessionStateAuthenticated {
		t.Fatalf("expected authenticated")
	}
	if len(transport.exchangeCalls) != 1 || transport.exchangeCalls[0].Code != "code123" {
		t.Fatalf("unexpected exchange calls %#v", transport.exchangeCalls)
	}
	credential, found, err := LoadJSON[AccessCredential](ctx, store, DefaultAccessKey)
	if err != nil || !found || credential.AccessToken != "t" {
		t.Fatalf("expected persisted credential, got %#v found=%v err=%v", credential, found, err)
	}
	if _, found, _ := store.Get(ctx, DefaultAuthStateKey); found {
		t.Fatalf("expected nonce consumed")
	}
}

func TestSessionManager_CompleteLoginNonceMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	transport := newFakeTransport()
	manager := newTestManager(t, loginConfig(), store, transport)

	if _, err := manager.BeginLogin(ctx); err != nil {
		t.Fatalf("begin login: %v", err)
	}
	err := manager.CompleteLogin(ctx, Grant{Code: "code123", State: "forged"})
	var mismatch *StateMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected state mismatch, got %v", err)
	}
	if transport.exchangeCount() != 0 {
		t.Fatalf("exchange must not be called on mismatch")
	}
	if manager.Status().State != SessionStateUnauthenticated {
		t.Fatalf("expected unauthenticated after mismatch")
	}
	if _, found, _ := store.Get(ctx, DefaultAuthStateKey); found {
		t.Fatalf("expected nonce cleared after mismatch")
	}
}

func TestSessionManager_CompleteLoginWithoutPendingLogin(t *testing.T) {
	transport := newFakeTransport()
	manager := newTestManager(t, loginConfig(), NewMemoryStore(), transport)
	err := manager.CompleteLogin(context.Background(), Grant{Code: "c", State: "n1"})
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected state mismatch, got %v", err)
	}
	if transport.exchangeCount() != 0 {
		t.Fatalf("exchange must not be called")
	}
}

func TestSessionManager_CompleteLoginResumesFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = SaveJSON(ctx, store, DefaultAuthStateKey, AuthState{Nonce: "n1"})
	manager := newTestManager(t, loginConfig(), store, newFakeTransport())

	if err := manager.CompleteLogin(ctx, Grant{Code: "code123", State: "n1"}); err != nil {
		t.Fatalf("complete login: %v", err)
	}
	if manager.Status().State != SessionStateAuthenticated {
		t.Fatalf("expected authenticated")
	}
}

func TestSessionManager_CompleteLoginExchangeFailure(t *testing.T) {
	ctx := context.Background()
	transport := newFakeTransport()
	transport.exchangeErr = errors.New("invalid_grant")
	manager := newTestManager(t, loginConfig(), NewMemoryStore(), transport)
	_, _ = manager.BeginLogin(ctx)

	err := manager.CompleteLogin(ctx, Grant{Code: "code123", State: "n1"})
	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected exchange error, got %v", err)
	}
	if manager.Status().State != SessionStateUnauthenticated {
		t.Fatalf("expected unauthenticated after exchange failure")
	}
}

func TestSessionManager_IdentityIsMemoizedPerClient(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = SaveJSON(ctx, store, DefaultAccessKey, AccessCredential{AccessToken: "a"})
	transport := newFakeTransport()
	manager := newTestManager(t, loginConfig(), store, transport)
	if _, err := manager.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	for i := 0; i < 3; i++ {
		identity, err := manager.Identity(ctx)
		if err != nil {
			t.Fatalf("identity: %v", err)
		}
		if identity.Name != "alice" {
			t.Fatalf("unexpected identity %#v", identity)
		}
	}
	if transport.client.meCalls != 1 {
		t.Fatalf("expected one identity lookup, got %d", transport.client.meCalls)
	}

	if _, err := manager.Restore(ctx); err != nil {
		t.Fatalf("restore again: %v", err)
	}
	if _, err := manager.Identity(ctx); err != nil {
		t.Fatalf("identity after rebuild: %v", err)
	}
	if transport.client.meCalls != 2 {
		t.Fatalf("expected identity dropped on client rebuild, got %d calls", transport.client.meCalls)
	}
}

func TestSessionManager_HandleAuthRejectedPolicies(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		policy   AuthRejectedPolicy
		expected SessionState
	}{
		{policy: AuthRejectedPolicyKeep, expected: SessionStateAuthenticated},
		{policy: AuthRejectedPolicyDemote, expected: SessionStateUnauthenticated},
	} {
		store := NewMemoryStore()
		_ = SaveJSON(ctx, store, DefaultAccessKey, AccessCredential{AccessToken: "a"})
		cfg := loginConfig()
		cfg.AuthRejectedPolicy = tc.policy
		manager := newTestManager(t, cfg, store, newFakeTransport())
		if _, err := manager.Restore(ctx); err != nil {
			t.Fatalf("restore: %v", err)
		}
		_, _, generation, err := manager.ActiveClient(ctx)
		if err != nil {
			t.Fatalf("active client: %v", err)
		}
		state, err := manager.HandleAuthRejected(ctx, generation)
		if err != nil {
			t.Fatalf("handle rejected: %v", err)
		}
		if state != tc.expected {
			t.Fatalf("policy %s: expected %q, got %q", tc.policy, tc.expected, state)
		}
		_, found, _ := store.Get(ctx, DefaultAccessKey)
		if tc.policy == AuthRejectedPolicyDemote && found {
			t.Fatalf("expected credential cleared under demote policy")
		}
		if tc.policy == AuthRejectedPolicyKeep && !found {
			t.Fatalf("expected credential kept under keep policy")
		}
	}
}

func TestSessionManager_LogoutClearsKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = SaveJSON(ctx, store, DefaultAccessKey, AccessCredential{AccessToken: "a"})
	manager := newTestManager(t, loginConfig(), store, newFakeTransport())
	_, _ = manager.Restore(ctx)
	if err := manager.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if manager.Status().State != SessionStateUnauthenticated {
		t.Fatalf("expected unauthenticated after logout")
	}
	if _, found, _ := store.Get(ctx, DefaultAccessKey); found {
		t.Fatalf("expected credential removed")
	}
}

func TestSessionTransitionTo_ValidAndInvalid(t *testing.T) {
	record := session{State: SessionStateAuthenticated, Nonce: "x"}
	if err := record.TransitionTo(SessionStateAuthenticating, fixedTime()); !errors.Is(err, ErrInvalidSessionTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := record.TransitionTo(SessionStateUnauthenticated, fixedTime()); err != nil {
		t.Fatalf("expected valid transition, got %v", err)
	}
	if record.Nonce != "" {
		t.Fatalf("expected nonce cleared on unauthenticated")
	}
}

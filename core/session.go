package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// SessionManager owns the credential state machine. One mutex guards the
// whole record so Restore, BeginLogin and CompleteLogin never interleave.
// Durable writes complete before the in-memory state changes.
type SessionManager struct {
	mu         sync.Mutex
	config     Config
	store      KVStore
	transport  Transport
	logger     Logger
	nonces     NonceGenerator
	clock      Clock
	session    session
	generation uint64
}

func NewSessionManager(cfg Config, store KVStore, transport Transport, logger Logger) *SessionManager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &SessionManager{
		config:    cfg,
		store:     store,
		transport: transport,
		logger:    glog.Ensure(logger),
		nonces:    GenerateNonce,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		session: session{State: SessionStateUnauthenticated},
	}
}

func (m *SessionManager) now() time.Time {
	if m.clock == nil {
		return time.Now().UTC()
	}
	return m.clock()
}

// Restore rebuilds the session from the store. A stored credential yields an
// authenticated session without an exchange. A stored nonce without a
// credential resumes the pending login.
func (m *SessionManager) Restore(ctx context.Context) (SessionState, error) {
	if m == nil {
		return SessionStateUnauthenticated, fmt.Errorf("core: session manager is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()

	credential, found, err := LoadJSON[AccessCredential](ctx, m.store, m.config.accessKey())
	if err != nil {
		m.logger.Warn("session restore degraded: credential read failed", "key", m.config.accessKey(), "error", err)
		return m.session.State, nil
	}
	if found && credential.Valid() {
		if err := m.authenticateLocked(ctx, credential); err != nil {
			return m.session.State, err
		}
		return m.session.State, nil
	}

	pending, found, err := LoadJSON[AuthState](ctx, m.store, m.config.authStateKey())
	if err != nil {
		m.logger.Warn("session restore degraded: auth state read failed", "key", m.config.authStateKey(), "error", err)
		return m.session.State, nil
	}
	if found && strings.TrimSpace(pending.Nonce) != "" {
		if err := m.session.TransitionTo(SessionStateAuthenticating, m.now()); err != nil {
			return m.session.State, err
		}
		m.session.Nonce = pending.Nonce
	}
	return m.session.State, nil
}

// BeginLogin starts a login attempt with a fresh nonce. The nonce is
// persisted before the session enters authenticating.
func (m *SessionManager) BeginLogin(ctx context.Context) (AuthorizationRequest, error) {
	if m == nil {
		return AuthorizationRequest{}, fmt.Errorf("core: session manager is not configured")
	}
	if err := m.config.ValidateLogin(); err != nil {
		return AuthorizationRequest{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	generate := m.nonces
	if generate == nil {
		generate = GenerateNonce
	}
	nonce, err := generate()
	if err != nil {
		return AuthorizationRequest{}, err
	}
	nonce = strings.TrimSpace(nonce)
	if nonce == "" {
		return AuthorizationRequest{}, fmt.Errorf("core: generated nonce is empty")
	}

	scopes := normalizeScopes(m.config.Scopes)
	authURL, err := BuildAuthorizationURL(m.config.Provider.AuthURL, m.config.ClientID, m.config.RedirectURI, nonce, scopes)
	if err != nil {
		return AuthorizationRequest{}, err
	}

	if err := SaveJSON(ctx, m.store, m.config.authStateKey(), AuthState{Nonce: nonce}); err != nil {
		return AuthorizationRequest{}, err
	}

	if m.session.State == SessionStateAuthenticated {
		m.resetLocked()
	}
	if err := m.session.TransitionTo(SessionStateAuthenticating, m.now()); err != nil {
		return AuthorizationRequest{}, err
	}
	m.session.Nonce = nonce

	return AuthorizationRequest{
		ClientID:    strings.TrimSpace(m.config.ClientID),
		RedirectURI: strings.TrimSpace(m.config.RedirectURI),
		Nonce:       nonce,
		Scopes:      scopes,
		URL:         authURL,
	}, nil
}

// CompleteLogin consumes the pending nonce and, when it matches the callback
// state, exchanges the grant for a credential.
func (m *SessionManager) CompleteLogin(ctx context.Context, grant Grant) error {
	if m == nil {
		return fmt.Errorf("core: session manager is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State != SessionStateAuthenticating {
		if err := m.resumePendingLocked(ctx); err != nil {
			return err
		}
	}
	if m.session.State != SessionStateAuthenticating {
		return &StateMismatchError{}
	}

	expected := m.session.Nonce
	if err := DeleteKey(ctx, m.store, m.config.authStateKey()); err != nil {
		m.resetLocked()
		return err
	}
	m.session.Nonce = ""

	if !nonceMatches(expected, grant.State) {
		m.resetLocked()
		return &StateMismatchError{}
	}

	code := strings.TrimSpace(grant.Code)
	if code == "" {
		m.resetLocked()
		return &ExchangeError{Cause: fmt.Errorf("core: grant code is required")}
	}
	if m.transport == nil {
		m.resetLocked()
		return &ExchangeError{Cause: fmt.Errorf("core: transport is not configured")}
	}

	credential, err := m.transport.ExchangeGrant(ctx, ExchangeRequest{
		Code:        code,
		ClientID:    strings.TrimSpace(m.config.ClientID),
		RedirectURI: strings.TrimSpace(m.config.RedirectURI),
	})
	if err != nil {
		m.resetLocked()
		return &ExchangeError{Cause: err}
	}
	if !credential.Valid() {
		m.resetLocked()
		return &ExchangeError{Cause: fmt.Errorf("core: exchange returned an empty access token")}
	}

	if err := SaveJSON(ctx, m.store, m.config.accessKey(), credential); err != nil {
		m.resetLocked()
		return err
	}
	return m.authenticateLocked(ctx, credential)
}

func (m *SessionManager) CurrentClient() (ClientHandle, error) {
	if m == nil {
		return nil, &NotAuthenticatedError{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State != SessionStateAuthenticated || m.session.Client == nil {
		return nil, &NotAuthenticatedError{State: m.session.State}
	}
	return m.session.Client, nil
}

// Identity resolves the current user for the active client and memoizes it
// for that client's lifetime.
func (m *SessionManager) Identity(ctx context.Context) (Identity, error) {
	_, identity, _, err := m.ActiveClient(ctx)
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// ActiveClient returns the current client, its identity and the client
// generation. The generation changes each time the client is rebuilt.
func (m *SessionManager) ActiveClient(ctx context.Context) (ClientHandle, Identity, uint64, error) {
	if m == nil {
		return nil, Identity{}, 0, &NotAuthenticatedError{}
	}
	m.mu.Lock()
	if m.session.State != SessionStateAuthenticated || m.session.Client == nil {
		state := m.session.State
		m.mu.Unlock()
		return nil, Identity{}, 0, &NotAuthenticatedError{State: state}
	}
	client := m.session.Client
	generation := m.generation
	if m.session.Identity != nil {
		identity := *m.session.Identity
		m.mu.Unlock()
		return client, identity, generation, nil
	}
	m.mu.Unlock()

	identity, err := client.Me(ctx)
	if err != nil {
		return nil, Identity{}, generation, classifyTransportError(err)
	}
	if strings.TrimSpace(identity.Name) == "" {
		return nil, Identity{}, generation, &TransportError{Cause: fmt.Errorf("core: identity has no name")}
	}

	m.mu.Lock()
	if m.generation == generation && m.session.State == SessionStateAuthenticated {
		resolved := identity
		m.session.Identity = &resolved
	}
	m.mu.Unlock()
	return client, identity, generation, nil
}

// HandleAuthRejected applies the configured rejection policy to the client
// of the given generation and returns the resulting state.
func (m *SessionManager) HandleAuthRejected(ctx context.Context, generation uint64) (SessionState, error) {
	if m == nil {
		return SessionStateUnauthenticated, fmt.Errorf("core: session manager is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.rejectedPolicy() != AuthRejectedPolicyDemote {
		return m.session.State, nil
	}
	if m.session.State != SessionStateAuthenticated || m.generation != generation {
		return m.session.State, nil
	}
	if err := DeleteKey(ctx, m.store, m.config.accessKey()); err != nil {
		return m.session.State, err
	}
	m.resetLocked()
	return m.session.State, nil
}

// Logout clears both persisted keys and returns to unauthenticated.
func (m *SessionManager) Logout(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("core: session manager is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := DeleteKey(ctx, m.store, m.config.accessKey()); err != nil {
		return err
	}
	if err := DeleteKey(ctx, m.store, m.config.authStateKey()); err != nil {
		return err
	}
	m.resetLocked()
	return nil
}

func (m *SessionManager) Status() SessionStatus {
	if m == nil {
		return SessionStatus{State: SessionStateUnauthenticated}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	status := SessionStatus{
		State:       m.session.State,
		HasClient:   m.session.Client != nil,
		LastChanged: m.session.UpdatedAt,
	}
	if m.session.Identity != nil {
		identity := *m.session.Identity
		status.Identity = &identity
	}
	return status
}

func (m *SessionManager) resumePendingLocked(ctx context.Context) error {
	pending, found, err := LoadJSON[AuthState](ctx, m.store, m.config.authStateKey())
	if err != nil {
		return err
	}
	if !found || strings.TrimSpace(pending.Nonce) == "" {
		return nil
	}
	if m.session.State == SessionStateAuthenticated {
		m.resetLocked()
	}
	if err := m.session.TransitionTo(SessionStateAuthenticating, m.now()); err != nil {
		return err
	}
	m.session.Nonce = pending.Nonce
	return nil
}

func (m *SessionManager) authenticateLocked(ctx context.Context, credential AccessCredential) error {
	if m.transport == nil {
		m.resetLocked()
		return &TransportError{Cause: fmt.Errorf("core: transport is not configured")}
	}
	client, err := m.transport.BuildClient(ctx, credential)
	if err != nil {
		m.resetLocked()
		return &TransportError{Cause: err}
	}
	if client == nil {
		m.resetLocked()
		return &TransportError{Cause: fmt.Errorf("core: transport returned a nil client")}
	}
	if err := m.session.TransitionTo(SessionStateAuthenticated, m.now()); err != nil {
		m.resetLocked()
		return err
	}
	m.generation++
	m.session.Credential = credential
	m.session.Client = client
	m.session.Identity = nil
	return nil
}

func (m *SessionManager) resetLocked() {
	if m.session.State == SessionStateUnauthenticated {
		m.session.Nonce = ""
		m.session.Credential = AccessCredential{}
		m.session.Client = nil
		m.session.Identity = nil
		return
	}
	_ = m.session.TransitionTo(SessionStateUnauthenticated, m.now())
}

package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidSessionTransition = errors.New("core: invalid session state transition")
	ErrCredentialRejected       = errors.New("core: credential rejected by provider")
)

type SessionState string

const (
	SessionStateUnauthenticated SessionState = "unauthenticated"
	SessionStateAuthenticating  SessionState = "authenticating"
	SessionStateAuthenticated   SessionState = "authenticated"
)

// session is the single-owner state record guarded by SessionManager.
type session struct {
	State      SessionState
	Nonce      string
	Credential AccessCredential
	Client     ClientHandle
	Identity   *Identity
	UpdatedAt  time.Time
}

func (s *session) TransitionTo(state SessionState, now time.Time) error {
	if s == nil {
		return nil
	}
	if s.State == "" {
		s.State = SessionStateUnauthenticated
	}
	if s.State == state {
		s.UpdatedAt = now
		return nil
	}
	if !sessionTransitionAllowed(s.State, state) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSessionTransition, s.State, state)
	}
	s.State = state
	s.UpdatedAt = now
	switch state {
	case SessionStateUnauthenticated:
		s.Nonce = ""
		s.Credential = AccessCredential{}
		s.Client = nil
		s.Identity = nil
	case SessionStateAuthenticated:
		s.Nonce = ""
	}
	return nil
}

func sessionTransitionAllowed(current, next SessionState) bool {
	allowed := map[SessionState]map[SessionState]struct{}{
		SessionStateUnauthenticated: {
			SessionStateAuthenticating: {},
			SessionStateAuthenticated:  {},
		},
		SessionStateAuthenticating: {
			SessionStateUnauthenticated: {},
			SessionStateAuthenticated:   {},
		},
		SessionStateAuthenticated: {
			SessionStateUnauthenticated: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

// AuthState is the anti-forgery record persisted between BeginLogin and the
// provider callback.
type AuthState struct {
	Nonce string `json:"nonce"`
}

type AccessCredential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c AccessCredential) Valid() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PageRequest struct {
	Cursor string
	Limit  int
}

// SessionStatus is a read-only snapshot of the session manager.
type SessionStatus struct {
	State       SessionState
	Identity    *Identity
	HasClient   bool
	LastChanged time.Time
}

type ItemKind string

const (
	ItemKindPost    ItemKind = "post"
	ItemKindComment ItemKind = "comment"
)

// RawItem is one provider item. The concrete type is one of RawPost,
// RawComment or RawUnknown.
type RawItem interface {
	rawItem()
}

type RawAuthor struct {
	Name string `json:"name"`
}

type RawSubreddit struct {
	DisplayName string `json:"display_name"`
}

// RawFields holds the attributes shared by every provider item shape.
type RawFields struct {
	Name       string        `json:"name"`
	Author     *RawAuthor    `json:"author,omitempty"`
	Subreddit  *RawSubreddit `json:"subreddit,omitempty"`
	CreatedUTC float64       `json:"created_utc"`
	Over18     bool          `json:"over_18"`
	Permalink  string        `json:"permalink"`
	Title      string        `json:"title,omitempty"`
	LinkTitle  string        `json:"link_title,omitempty"`
}

type RawPost struct {
	RawFields
	Thumbnail string `json:"thumbnail,omitempty"`
}

type RawComment struct {
	RawFields
	Body string `json:"body,omitempty"`
}

// RawUnknown carries a provider item whose kind is not supported.
type RawUnknown struct {
	Kind string
	Name string
}

func (RawPost) rawItem()    {}
func (RawComment) rawItem() {}
func (RawUnknown) rawItem() {}

type RawPage struct {
	Items []RawItem
	After string
}

type SavedItem struct {
	Author     string   `json:"author"`
	CreatedUTC float64  `json:"createdUtc"`
	Kind       ItemKind `json:"kind"`
	Name       string   `json:"name"`
	Over18     bool     `json:"over18"`
	Permalink  string   `json:"permalink"`
	Subreddit  string   `json:"subreddit"`
	Thumbnail  *string  `json:"thumbnail"`
	Title      string   `json:"title"`
}

// Page is one normalized page. Cursor is empty when the provider reports no
// further pages.
type Page struct {
	Items   []SavedItem
	Cursor  string
	Dropped int
}

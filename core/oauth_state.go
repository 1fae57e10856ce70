package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

const nonceBytes = 24

// AuthorizationRequest is what the UI needs to send the user to the
// provider's consent page.
type AuthorizationRequest struct {
	ClientID    string
	RedirectURI string
	Nonce       string
	Scopes      []string
	URL         string
}

func GenerateNonce() (string, error) {
	raw := make([]byte, nonceBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate oauth nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// BuildAuthorizationURL renders the provider authorize URL for a permanent
// code grant.
func BuildAuthorizationURL(authURL, clientID, redirectURI, nonce string, scopes []string) (string, error) {
	authURL = strings.TrimSpace(authURL)
	if authURL == "" {
		return "", fmt.Errorf("core: provider auth_url is required")
	}
	parsed, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("core: invalid provider auth_url: %w", err)
	}
	query := parsed.Query()
	query.Set("client_id", strings.TrimSpace(clientID))
	query.Set("response_type", "code")
	query.Set("state", nonce)
	query.Set("redirect_uri", strings.TrimSpace(redirectURI))
	query.Set("duration", "permanent")
	query.Set("scope", strings.Join(normalizeScopes(scopes), " "))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func nonceMatches(expected, received string) bool {
	expected = strings.TrimSpace(expected)
	received = strings.TrimSpace(received)
	if expected == "" || received == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

func normalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := map[string]struct{}{}
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, scope)
	}
	return out
}

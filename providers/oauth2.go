package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-saved/core"
)

const defaultTokenRequestTimeout = 30 * time.Second

// ErrTokenEndpoint marks failures reported by the token endpoint itself.
var ErrTokenEndpoint = errors.New("providers: token endpoint error")

type OAuth2Config struct {
	TokenURL            string
	ClientID            string
	ClientSecret        string
	TokenRequestTimeout time.Duration
}

// CodeExchanger trades an authorization code for an access credential.
// Installed apps without a secret authenticate with the client id and an
// empty password.
type CodeExchanger struct {
	cfg     OAuth2Config
	adapter core.TransportAdapter
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

func NewCodeExchanger(cfg OAuth2Config, adapter core.TransportAdapter) (*CodeExchanger, error) {
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("providers: token url is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("providers: transport adapter is required")
	}
	if cfg.TokenRequestTimeout <= 0 {
		cfg.TokenRequestTimeout = defaultTokenRequestTimeout
	}
	return &CodeExchanger{cfg: cfg, adapter: adapter}, nil
}

func (e *CodeExchanger) Exchange(ctx context.Context, req core.ExchangeRequest) (core.AccessCredential, error) {
	if e == nil {
		return core.AccessCredential{}, fmt.Errorf("providers: code exchanger is nil")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.AccessCredential{}, fmt.Errorf("providers: auth code is required")
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		clientID = e.cfg.ClientID
	}
	if clientID == "" {
		return core.AccessCredential{}, fmt.Errorf("providers: client id is required")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if redirectURI := strings.TrimSpace(req.RedirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	token, err := e.fetchToken(ctx, clientID, form)
	if err != nil {
		return core.AccessCredential{}, err
	}
	return core.AccessCredential{
		AccessToken:  strings.TrimSpace(token.AccessToken),
		RefreshToken: strings.TrimSpace(token.RefreshToken),
	}, nil
}

func (e *CodeExchanger) fetchToken(ctx context.Context, clientID string, form url.Values) (tokenEndpointPayload, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(clientID + ":" + e.cfg.ClientSecret))
	res, err := e.adapter.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    e.cfg.TokenURL,
		Headers: map[string]string{
			"Content-Type":  "application/x-www-form-urlencoded",
			"Accept":        "application/json",
			"Authorization": "Basic " + credentials,
		},
		Body:    []byte(form.Encode()),
		Timeout: e.cfg.TokenRequestTimeout,
	})
	if err != nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token request failed: %w", err)
	}

	payload, parseErr := parseTokenPayload(res.Body, res.Headers["Content-Type"])
	if parseErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: decode token response (status %d): %w", res.StatusCode, parseErr)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return tokenEndpointPayload{}, fmt.Errorf("%w (%d): %s", ErrTokenEndpoint, res.StatusCode, describeTokenError(payload))
	}
	if payload.ErrorCode != "" {
		return tokenEndpointPayload{}, fmt.Errorf("%w: %s", ErrTokenEndpoint, describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token endpoint response missing access token")
	}
	return payload, nil
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if strings.TrimSpace(string(body)) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case float64:
		return int64(typed)
	case int64:
		return typed
	case int:
		return int64(typed)
	case string:
		parsed, _ := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		return parsed
	default:
		return 0
	}
}

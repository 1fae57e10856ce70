package core

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100

	DefaultAuthStateKey = "redditAuthState"
	DefaultAccessKey    = "redditAccess"
)

type AuthRejectedPolicy string

const (
	// AuthRejectedPolicyKeep leaves the session authenticated and reports the
	// rejection to the caller.
	AuthRejectedPolicyKeep AuthRejectedPolicy = "keep"
	// AuthRejectedPolicyDemote drops the stored credential and returns the
	// session to unauthenticated.
	AuthRejectedPolicyDemote AuthRejectedPolicy = "demote"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite3"
	StorageDriverPostgres = "postgres"
)

// NormalizeStorageDriver maps the accepted driver aliases onto memory,
// sqlite3 or postgres. An empty driver is memory.
func NormalizeStorageDriver(driver string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return StorageDriverMemory, true
	case "sqlite", "sqlite3":
		return StorageDriverSQLite, true
	case "postgres", "postgresql", "pg":
		return StorageDriverPostgres, true
	default:
		return "", false
	}
}

type ProviderConfig struct {
	AuthURL    string `koanf:"auth_url" mapstructure:"auth_url"`
	TokenURL   string `koanf:"token_url" mapstructure:"token_url"`
	APIBaseURL string `koanf:"api_base_url" mapstructure:"api_base_url"`
}

type StorageConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
	// EncryptionKey seals the stored auth state and credential when set.
	EncryptionKey string `koanf:"encryption_key" mapstructure:"encryption_key"`
	// CacheTTLSeconds enables the read-through cache for sql drivers.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
}

type KeysConfig struct {
	AuthState string `koanf:"auth_state" mapstructure:"auth_state"`
	Access    string `koanf:"access" mapstructure:"access"`
}

type Config struct {
	ServiceName        string             `koanf:"service_name" mapstructure:"service_name"`
	ClientID           string             `koanf:"client_id" mapstructure:"client_id"`
	RedirectURI        string             `koanf:"redirect_uri" mapstructure:"redirect_uri"`
	UserAgent          string             `koanf:"user_agent" mapstructure:"user_agent"`
	PageSize           int                `koanf:"page_size" mapstructure:"page_size"`
	Scopes             []string           `koanf:"scopes" mapstructure:"scopes"`
	AuthRejectedPolicy AuthRejectedPolicy `koanf:"auth_rejected_policy" mapstructure:"auth_rejected_policy"`
	Provider           ProviderConfig     `koanf:"provider" mapstructure:"provider"`
	Storage            StorageConfig      `koanf:"storage" mapstructure:"storage"`
	Keys               KeysConfig         `koanf:"keys" mapstructure:"keys"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:        "saved",
		UserAgent:          "go:saved-explorer:v1",
		PageSize:           DefaultPageSize,
		Scopes:             []string{"identity", "history"},
		AuthRejectedPolicy: AuthRejectedPolicyKeep,
		Provider: ProviderConfig{
			AuthURL:    "https://www.reddit.com/api/v1/authorize",
			TokenURL:   "https://www.reddit.com/api/v1/access_token",
			APIBaseURL: "https://oauth.reddit.com",
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Keys: KeysConfig{
			AuthState: DefaultAuthStateKey,
			Access:    DefaultAccessKey,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.PageSize < 0 {
		return fmt.Errorf("core: page_size must not be negative")
	}
	if c.PageSize > MaxPageSize {
		return fmt.Errorf("core: page_size must not exceed %d", MaxPageSize)
	}
	switch c.AuthRejectedPolicy {
	case "", AuthRejectedPolicyKeep, AuthRejectedPolicyDemote:
	default:
		return fmt.Errorf("core: invalid auth_rejected_policy %q", c.AuthRejectedPolicy)
	}
	if redirect := strings.TrimSpace(c.RedirectURI); redirect != "" {
		parsed, err := url.Parse(redirect)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: invalid redirect_uri %q", redirect)
		}
	}
	if _, ok := NormalizeStorageDriver(c.Storage.Driver); !ok {
		return fmt.Errorf("core: unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Storage.CacheTTLSeconds < 0 {
		return fmt.Errorf("core: storage cache_ttl_seconds must not be negative")
	}
	return nil
}

// ValidateLogin reports whether the config carries what BeginLogin needs.
func (c Config) ValidateLogin() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("core: client_id is required")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return fmt.Errorf("core: redirect_uri is required")
	}
	return nil
}

func (c Config) pageSize() int {
	if c.PageSize <= 0 || c.PageSize > MaxPageSize {
		return DefaultPageSize
	}
	return c.PageSize
}

func (c Config) authStateKey() string {
	if key := strings.TrimSpace(c.Keys.AuthState); key != "" {
		return key
	}
	return DefaultAuthStateKey
}

func (c Config) accessKey() string {
	if key := strings.TrimSpace(c.Keys.Access); key != "" {
		return key
	}
	return DefaultAccessKey
}

func (c Config) rejectedPolicy() AuthRejectedPolicy {
	if c.AuthRejectedPolicy == AuthRejectedPolicyDemote {
		return AuthRejectedPolicyDemote
	}
	return AuthRejectedPolicyKeep
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSettings_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
client_id: file-client
page_size: 25
storage:
  driver: memory
cli:
  log_level: info
  login_timeout: 2m
`)
	t.Setenv("SAVED_CLIENT_ID", "env-client")
	t.Setenv("SAVED_PROVIDER_API_BASE_URL", "https://api.test")
	t.Setenv("SAVED_SCOPES", "identity,history")
	t.Setenv("SAVED_CLI_DATA_DIR", dir)

	s, err := loadSettings(path, "")
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if s.DataDir != dir || s.LogLevel != "info" || s.LoginTimeout != 2*time.Minute {
		t.Fatalf("unexpected cli settings %#v", s)
	}
	if _, ok := s.Service["cli"]; ok {
		t.Fatalf("expected cli block removed from service config")
	}

	cfg, _, err := serviceConfig(context.Background(), s)
	if err != nil {
		t.Fatalf("service config: %v", err)
	}
	if cfg.ClientID != "env-client" {
		t.Fatalf("expected env to override file, got %q", cfg.ClientID)
	}
	if cfg.PageSize != 25 || cfg.Storage.Driver != "memory" {
		t.Fatalf("unexpected file values %#v", cfg)
	}
	if cfg.Provider.APIBaseURL != "https://api.test" {
		t.Fatalf("expected nested env key, got %q", cfg.Provider.APIBaseURL)
	}
	if strings.Join(cfg.Scopes, " ") != "identity history" {
		t.Fatalf("unexpected scopes %v", cfg.Scopes)
	}
}

func TestLoadSettings_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	s, err := loadSettings("", dir)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if s.ConfigPath != "" || s.LogLevel != defaultLogLevel || s.LoginTimeout != defaultLoginWait {
		t.Fatalf("unexpected defaults %#v", s)
	}

	cfg, _, err := serviceConfig(context.Background(), s)
	if err != nil {
		t.Fatalf("service config: %v", err)
	}
	if cfg.Storage.Driver != "sqlite3" {
		t.Fatalf("expected sqlite default, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN != sqliteDSN(dir) {
		t.Fatalf("expected dsn in data dir, got %q", cfg.Storage.DSN)
	}
	if cfg.RedirectURI != defaultRedirectURI {
		t.Fatalf("unexpected redirect uri %q", cfg.RedirectURI)
	}
}

func TestLoadSettings_ExplicitMissingFileFails(t *testing.T) {
	if _, err := loadSettings(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestServiceConfig_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "auth_rejected_policy: shrug\n")
	s, err := loadSettings("", dir)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if _, _, err := serviceConfig(context.Background(), s); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestTransformEnv(t *testing.T) {
	cases := []struct {
		key   string
		value string
		want  string
		typed any
	}{
		{key: "SAVED_REDIRECT_URI", value: "http://127.0.0.1:1/cb", want: "redirect_uri", typed: "http://127.0.0.1:1/cb"},
		{key: "SAVED_STORAGE_CACHE_TTL_SECONDS", value: "30", want: "storage.cache_ttl_seconds", typed: 30},
		{key: "SAVED_KEYS_ACCESS", value: "token", want: "keys.access", typed: "token"},
		{key: "SAVED_CLI_LOG_DEVELOPMENT", value: "true", want: "cli.log_development", typed: true},
	}
	for _, tc := range cases {
		key, value := transformEnv(tc.key, tc.value)
		if key != tc.want || value != tc.typed {
			t.Fatalf("%s: got %q=%#v", tc.key, key, value)
		}
	}
}

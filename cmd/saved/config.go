package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/goliatone/go-saved/core"
)

const (
	envPrefix          = "SAVED_"
	configFileName     = "config.yaml"
	databaseFileName   = "saved.db"
	lockFileName       = "saved.lock"
	defaultRedirectURI = "http://127.0.0.1:65010/callback"
	defaultLogLevel    = "warn"
	defaultLoginWait   = 5 * time.Minute
)

// envSections are the nested config blocks an env key can address, e.g.
// SAVED_STORAGE_DSN -> storage.dsn.
var envSections = []string{"provider", "storage", "keys", "cli"}

// settings is the CLI view of the loaded config. Service holds the raw
// map handed to the service config provider; the cli block is removed
// from it.
type settings struct {
	DataDir        string
	LogLevel       string
	LogDevelopment bool
	LoginTimeout   time.Duration
	ConfigPath     string
	Service        map[string]any
}

// loadSettings reads path (or the data dir's config.yaml when path is
// empty) and then the SAVED_* environment.
func loadSettings(path, dataDir string) (*settings, error) {
	k := koanf.New(".")

	dataDir = strings.TrimSpace(dataDir)
	configPath := strings.TrimSpace(path)
	explicit := configPath != ""
	if !explicit {
		base := dataDir
		if base == "" {
			base = defaultDataDir()
		}
		configPath = filepath.Join(base, configFileName)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config file %s: %w", configPath, err)
	} else {
		configPath = ""
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	out := &settings{
		DataDir:        k.String("cli.data_dir"),
		LogLevel:       k.String("cli.log_level"),
		LogDevelopment: k.Bool("cli.log_development"),
		LoginTimeout:   k.Duration("cli.login_timeout"),
		ConfigPath:     configPath,
	}
	if dataDir != "" {
		out.DataDir = dataDir
	}
	if out.DataDir == "" {
		out.DataDir = defaultDataDir()
	}
	out.DataDir = expandHome(out.DataDir)
	if out.LogLevel == "" {
		out.LogLevel = defaultLogLevel
	}
	if out.LoginTimeout <= 0 {
		out.LoginTimeout = defaultLoginWait
	}

	raw := k.Raw()
	delete(raw, "cli")
	out.Service = raw
	return out, nil
}

func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			key = section + "." + rest
			break
		}
	}
	value = strings.TrimSpace(value)
	switch key {
	case "scopes":
		return key, splitList(value)
	case "page_size", "storage.cache_ttl_seconds":
		if n, err := strconv.Atoi(value); err == nil {
			return key, n
		}
	case "cli.log_development":
		if b, err := strconv.ParseBool(value); err == nil {
			return key, b
		}
	}
	return key, value
}

func splitList(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// cliDefaults differs from core.DefaultConfig in what a terminal session
// needs: a durable store and a loopback redirect.
func cliDefaults() core.Config {
	cfg := core.DefaultConfig()
	cfg.UserAgent = "go:saved-cli:v1"
	cfg.RedirectURI = defaultRedirectURI
	cfg.Storage.Driver = core.StorageDriverSQLite
	return cfg
}

// serviceConfig resolves the service config from s through cfgx. An
// empty sqlite DSN points at the data dir.
func serviceConfig(ctx context.Context, s *settings) (core.Config, *core.CfgxConfigProvider, error) {
	provider := core.NewCfgxConfigProvider(core.StaticConfigLoader(s.Service))
	cfg, err := provider.Load(ctx, cliDefaults())
	if err != nil {
		return core.Config{}, nil, err
	}
	if driver, _ := core.NormalizeStorageDriver(cfg.Storage.Driver); driver == core.StorageDriverSQLite {
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			cfg.Storage.DSN = sqliteDSN(s.DataDir)
		}
	}
	return cfg, provider, nil
}

func sqliteDSN(dataDir string) string {
	return "file:" + filepath.Join(dataDir, databaseFileName) + "?_busy_timeout=5000"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "saved")
	}
	return ".saved"
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

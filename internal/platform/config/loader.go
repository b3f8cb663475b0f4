package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is read from the working directory when no path is given.
	DefaultPath = ".config.yaml"
	// PathEnv overrides the config file location.
	PathEnv = "KVMD_STREAMER_CONFIG"
	envPrefix = "KVMD_STREAMER_"
)

var knownStoreTypes = map[string]struct{}{
	"memory": {},
	"redis":  {},
	"sqlite": {},
}

// Loader reads the YAML file on top of DefaultConfig and applies
// environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that reads DefaultPath and a .env file.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file path.
func (l *Loader) WithPath(path string) *Loader {
	l.path = strings.TrimSpace(path)
	return l
}

// WithEnv replaces the environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load resolves the config path, decodes the file if it exists and
// validates the merged result. A missing file is not an error: defaults
// apply.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// .env is optional
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		if env, ok := l.lookupEnv(PathEnv); ok && strings.TrimSpace(env) != "" {
			path = strings.TrimSpace(env)
		} else {
			path = DefaultPath
		}
	}

	cfg := DefaultConfig()
	origin := "defaults"

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		origin = path
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   origin,
	}, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.env("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := l.env("SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_PORT %q: %w", envPrefix, v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := l.env("AUTH_SECRET"); ok {
		cfg.Server.Auth.Secret = v
	}
	if v, ok := l.env("STREAMER_SOCKET"); ok {
		cfg.Streamer.UnixSocket = v
	}
	if v, ok := l.env("SNAPSHOT_STORE"); ok {
		cfg.Snapshot.Store.Type = v
	}
	if v, ok := l.env("REDIS_ADDR"); ok {
		cfg.Snapshot.Store.Redis.Addr = v
	}
	return nil
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	storeType := strings.ToLower(strings.TrimSpace(c.Snapshot.Store.Type))
	if storeType == "" {
		storeType = "memory"
	}
	if _, ok := knownStoreTypes[storeType]; !ok {
		return fmt.Errorf("unsupported snapshot store type: %s", c.Snapshot.Store.Type)
	}
	c.Snapshot.Store.Type = storeType
	if storeType == "redis" && c.Snapshot.Store.Redis.Addr == "" {
		return fmt.Errorf("snapshot.store.redis.addr is required for the redis store")
	}
	for _, name := range []string{"janus", "mjpeg"} {
		if len(c.Mode.Commands[name]) == 0 {
			return fmt.Errorf("mode.commands.%s must not be empty", name)
		}
	}
	if c.Mode.CommandTimeout <= 0 {
		return fmt.Errorf("mode.command_timeout must be positive")
	}
	if c.Server.Auth.Enabled && c.Server.Auth.Secret == "" {
		return fmt.Errorf("server.auth.secret is required when auth is enabled")
	}
	return nil
}

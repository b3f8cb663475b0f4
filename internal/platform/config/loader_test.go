package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, ".config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 8080
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
  log_file: "test.log"
snapshot:
  store:
    type: "SQLite"
    ttl: 10m
mode:
  command_timeout: 5s
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	res, err := NewLoader().WithDotEnv(false).WithEnv(noEnv).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if res.Path != configFile {
		t.Errorf("expected path %s, got %s", configFile, res.Path)
	}
	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %s", cfg.Log.Level)
	}
	if cfg.Snapshot.Store.Type != "sqlite" {
		t.Errorf("expected normalised store type sqlite, got %s", cfg.Snapshot.Store.Type)
	}
	if cfg.Snapshot.Store.TTL != 10*time.Minute {
		t.Errorf("expected ttl 10m, got %s", cfg.Snapshot.Store.TTL)
	}
	if cfg.Mode.CommandTimeout != 5*time.Second {
		t.Errorf("expected command timeout 5s, got %s", cfg.Mode.CommandTimeout)
	}
	// untouched sections keep their defaults
	if got := cfg.Mode.Commands["janus"]; len(got) == 0 || got[len(got)-1] != "kvmd-webrtc" {
		t.Errorf("expected default janus command, got %v", got)
	}
	if cfg.Server.APIPrefix != "/api" {
		t.Errorf("expected default api prefix, got %s", cfg.Server.APIPrefix)
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	res, err := NewLoader().
		WithDotEnv(false).
		WithEnv(noEnv).
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).
		Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Path != "defaults" {
		t.Errorf("expected defaults origin, got %s", res.Path)
	}
	if res.Config.Snapshot.Store.Type != "memory" {
		t.Errorf("expected memory store, got %s", res.Config.Snapshot.Store.Type)
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"KVMD_STREAMER_SERVER_PORT":    "9090",
		"KVMD_STREAMER_LOG_LEVEL":      "debug",
		"KVMD_STREAMER_SNAPSHOT_STORE": "redis",
		"KVMD_STREAMER_REDIS_ADDR":     "127.0.0.1:6379",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	res, err := NewLoader().
		WithDotEnv(false).
		WithEnv(lookup).
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).
		Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := res.Config
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Log.Level)
	}
	if cfg.Snapshot.Store.Type != "redis" || cfg.Snapshot.Store.Redis.Addr != "127.0.0.1:6379" {
		t.Errorf("unexpected store config: %+v", cfg.Snapshot.Store)
	}
}

func TestLoader_InvalidPortEnv(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "KVMD_STREAMER_SERVER_PORT" {
			return "eighty", true
		}
		return "", false
	}
	_, err := NewLoader().
		WithDotEnv(false).
		WithEnv(lookup).
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).
		Load()
	if err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Snapshot.Store.Type = "etcd" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Snapshot.Store.Type = "redis" }, wantErr: true},
		{name: "empty janus command", mutate: func(c *Config) { c.Mode.Commands["janus"] = nil }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Mode.CommandTimeout = 0 }, wantErr: true},
		{name: "auth without secret", mutate: func(c *Config) { c.Server.Auth.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

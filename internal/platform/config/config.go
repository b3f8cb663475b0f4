package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	Streamer StreamerConfig `yaml:"streamer"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	OCR      OCRConfig      `yaml:"ocr"`
	Mode     ModeConfig     `yaml:"mode"`
	Storage  StorageConfig  `yaml:"storage"`
}

type ServerConfig struct {
	IP        string     `yaml:"ip"`
	Port      int        `yaml:"port"`
	APIPrefix string     `yaml:"api_prefix"`
	Auth      AuthConfig `yaml:"auth"`
}

// AuthConfig enables HS256 bearer token checks on the API group.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

// StreamerConfig points at the uStreamer HTTP endpoint. UnixSocket takes
// precedence over URL when both are set.
type StreamerConfig struct {
	UnixSocket string        `yaml:"unix_socket"`
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	Quality    int           `yaml:"quality"`
	DesiredFPS int           `yaml:"desired_fps"`
}

type SnapshotConfig struct {
	Store SnapshotStoreConfig `yaml:"store"`
}

type SnapshotStoreConfig struct {
	Type   string              `yaml:"type"`
	TTL    time.Duration       `yaml:"ttl"`
	Redis  SnapshotRedisStore  `yaml:"redis,omitempty"`
	SQLite SnapshotSQLiteStore `yaml:"sqlite,omitempty"`
}

type SnapshotRedisStore struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SnapshotSQLiteStore struct {
	DSN string `yaml:"dsn,omitempty"`
}

type OCRConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Binary       string        `yaml:"binary"`
	TessdataDir  string        `yaml:"tessdata_dir"`
	DefaultLangs []string      `yaml:"default_langs"`
	Timeout      time.Duration `yaml:"timeout"`
	Workers      int64         `yaml:"workers"`
}

// ModeConfig holds the static mode -> argv table. Commands are never taken
// from request input.
type ModeConfig struct {
	CommandTimeout time.Duration       `yaml:"command_timeout"`
	Commands       map[string][]string `yaml:"commands"`
	Processes      map[string]string   `yaml:"processes"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	DBFile  string `yaml:"db_file"`
}

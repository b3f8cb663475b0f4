package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"kvmd-streamer-go/internal/platform/config"
)

// Driver identifiers supported by the snapshot store.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// FromConfig maps the snapshot.store config section onto Config.
func FromConfig(cfg config.SnapshotStoreConfig) Config {
	out := Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Type)),
		TTL:    cfg.TTL,
	}
	if cfg.Redis.Addr != "" {
		out.Redis = &RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
	}
	return out
}

// New creates a snapshot store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverSQLite:
		if deps.SQLiteDB == nil {
			return nil, fmt.Errorf("sqlite driver requires database handle")
		}
		return NewSQLite(deps.SQLiteDB, cfg)
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported snapshot store driver: %s", driver)
	}
}

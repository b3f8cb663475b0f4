package store

import (
	"context"
	"time"

	"kvmd-streamer-go/internal/domain/streamer/model"
)

// Store keeps the single saved snapshot.
type Store interface {
	// Save replaces the saved snapshot.
	Save(ctx context.Context, snap *model.Snapshot) error
	// Load returns the saved snapshot or nil when none is saved or it expired.
	Load(ctx context.Context) (*model.Snapshot, error)
	// Remove discards the saved snapshot. Removing nothing is not an error.
	Remove(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the store selection parameters. A zero TTL keeps the
// snapshot until it is replaced or removed.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

const slot = "current"

func expiry(ttl time.Duration, now time.Time) *time.Time {
	if ttl <= 0 {
		return nil
	}
	exp := now.Add(ttl)
	return &exp
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"kvmd-streamer-go/internal/domain/streamer/model"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type redisSnapshot struct {
	Data       []byte            `json:"data"`
	Headers    map[string]string `json:"headers"`
	Online     bool              `json:"online"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	CapturedAt time.Time         `json:"captured_at"`
}

// NewRedis constructs a redis-backed snapshot store.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "kvmd:snapshot:"
	}
	return &redisStore{
		client: client,
		ttl:    cfg.TTL,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key() string {
	return s.prefix + slot
}

func (s *redisStore) Save(ctx context.Context, snap *model.Snapshot) error {
	data, err := sonic.Marshal(redisSnapshot{
		Data:       snap.Data,
		Headers:    snap.Headers,
		Online:     snap.Online,
		Width:      snap.Width,
		Height:     snap.Height,
		CapturedAt: snap.CapturedAt,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key(), data, s.ttl).Err()
}

func (s *redisStore) Load(ctx context.Context) (*model.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec redisSnapshot
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &model.Snapshot{
		Data:       rec.Data,
		Headers:    rec.Headers,
		Online:     rec.Online,
		Width:      rec.Width,
		Height:     rec.Height,
		CapturedAt: rec.CapturedAt,
	}, nil
}

func (s *redisStore) Remove(ctx context.Context) error {
	return s.client.Del(ctx, s.key()).Err()
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	exists, err := s.client.Exists(ctx, s.key()).Result()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        DriverRedis,
		"saved":       exists > 0,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}

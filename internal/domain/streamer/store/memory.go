package store

import (
	"context"
	"sync"
	"time"

	"kvmd-streamer-go/internal/domain/streamer/model"
)

type memoryStore struct {
	mutex     sync.RWMutex
	snap      *model.Snapshot
	expiresAt *time.Time
	ttl       time.Duration
}

// NewMemory builds an in-process snapshot store.
func NewMemory(cfg Config) Store {
	return &memoryStore{ttl: cfg.TTL}
}

func (s *memoryStore) Save(_ context.Context, snap *model.Snapshot) error {
	s.mutex.Lock()
	s.snap = snap
	s.expiresAt = expiry(s.ttl, time.Now())
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Load(_ context.Context) (*model.Snapshot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.expiresAt != nil && time.Now().After(*s.expiresAt) {
		return nil, nil
	}
	return s.snap, nil
}

func (s *memoryStore) Remove(_ context.Context) error {
	s.mutex.Lock()
	s.snap = nil
	s.expiresAt = nil
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(ctx context.Context) (map[string]any, error) {
	snap, _ := s.Load(ctx)
	return map[string]any{
		"type":        DriverMemory,
		"saved":       snap != nil,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

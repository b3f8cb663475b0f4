package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"kvmd-streamer-go/internal/domain/streamer/model"
	"kvmd-streamer-go/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a SQLite-backed snapshot store on a migrated database.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{
		db:  db,
		ttl: cfg.TTL,
	}, nil
}

func (s *sqliteStore) Save(ctx context.Context, snap *model.Snapshot) error {
	headers, err := json.Marshal(snap.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	now := time.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("slot = ?", slot).Delete(&storage.SnapshotRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&storage.SnapshotRecord{
			Slot:       slot,
			Data:       snap.Data,
			Headers:    headers,
			Online:     snap.Online,
			Width:      snap.Width,
			Height:     snap.Height,
			CapturedAt: snap.CapturedAt,
			ExpiresAt:  expiry(s.ttl, now),
		}).Error
	})
}

func (s *sqliteStore) Load(ctx context.Context) (*model.Snapshot, error) {
	var rec storage.SnapshotRecord
	err := s.db.WithContext(ctx).Where("slot = ?", slot).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		return nil, nil
	}

	snap := &model.Snapshot{
		Data:       rec.Data,
		Headers:    map[string]string{},
		Online:     rec.Online,
		Width:      rec.Width,
		Height:     rec.Height,
		CapturedAt: rec.CapturedAt,
	}
	if len(rec.Headers) > 0 {
		if err := json.Unmarshal(rec.Headers, &snap.Headers); err != nil {
			return nil, fmt.Errorf("decode headers: %w", err)
		}
	}
	return snap, nil
}

func (s *sqliteStore) Remove(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("slot = ?", slot).Delete(&storage.SnapshotRecord{}).Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.SnapshotRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        DriverSQLite,
		"saved":       total > 0,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

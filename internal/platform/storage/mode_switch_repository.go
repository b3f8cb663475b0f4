package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"kvmd-streamer-go/internal/platform/errors"
)

// ModeSwitchRepository persists mode switch outcomes for auditing.
type ModeSwitchRepository struct {
	db *gorm.DB
}

func NewModeSwitchRepository(db *gorm.DB) *ModeSwitchRepository {
	return &ModeSwitchRepository{db: db}
}

func (r *ModeSwitchRepository) Record(ctx context.Context, rec *ModeSwitchRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "mode_switch.record", "failed to store mode switch record", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *ModeSwitchRepository) Recent(ctx context.Context, limit int) ([]ModeSwitchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []ModeSwitchRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "mode_switch.recent", "failed to list mode switch records", err)
	}
	return records, nil
}

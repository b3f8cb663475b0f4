package storage

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotRecord backs the sqlite snapshot store. One row per slot.
type SnapshotRecord struct {
	ID         uint           `gorm:"primaryKey"`
	Slot       string         `gorm:"type:varchar(64);uniqueIndex;not null"`
	Data       []byte         `gorm:"not null"`
	Headers    datatypes.JSON `gorm:"not null"`
	Online     bool
	Width      int
	Height     int
	CapturedAt time.Time
	ExpiresAt  *time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

// ModeSwitchRecord 模式切换审计记录
type ModeSwitchRecord struct {
	ID         uint   `gorm:"primaryKey"`
	Mode       string `gorm:"type:varchar(16);index;not null"`
	Outcome    string `gorm:"type:varchar(32);not null"`
	Diagnostic string `gorm:"type:text"`
	DurationMS int64
	RequestID  string    `gorm:"type:varchar(64)"`
	CreatedAt  time.Time `gorm:"index"`
}

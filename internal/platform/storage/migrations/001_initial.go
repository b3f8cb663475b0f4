package migrations

import (
	"gorm.io/gorm"
)

// Migration001Initial creates the snapshot and mode audit tables.
type Migration001Initial struct{}

func (m *Migration001Initial) Version() string {
	return "001_initial"
}

func (m *Migration001Initial) Description() string {
	return "Create snapshot_records and mode_switch_records"
}

func (m *Migration001Initial) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slot VARCHAR(64) NOT NULL UNIQUE,
			data BLOB NOT NULL,
			headers JSON NOT NULL,
			online NUMERIC,
			width INTEGER,
			height INTEGER,
			captured_at DATETIME,
			expires_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return err
	}

	return db.Exec(`
		CREATE TABLE IF NOT EXISTS mode_switch_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mode VARCHAR(16) NOT NULL,
			outcome VARCHAR(32) NOT NULL,
			diagnostic TEXT,
			duration_ms INTEGER,
			request_id VARCHAR(64),
			created_at DATETIME
		)
	`).Error
}

func (m *Migration001Initial) Down(db *gorm.DB) error {
	for _, table := range []string{"mode_switch_records", "snapshot_records"} {
		if err := db.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

package migrations

import "gorm.io/gorm"

// Migration002Indexes adds the lookup indexes used by the audit queries
// and expiry sweeps.
type Migration002Indexes struct{}

func (m *Migration002Indexes) Version() string {
	return "002_indexes"
}

func (m *Migration002Indexes) Description() string {
	return "Index mode_switch_records and snapshot expiry"
}

var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_mode_switch_records_mode ON mode_switch_records(mode)`,
	`CREATE INDEX IF NOT EXISTS idx_mode_switch_records_created_at ON mode_switch_records(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_records_expires_at ON snapshot_records(expires_at)`,
}

func (m *Migration002Indexes) Up(db *gorm.DB) error {
	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration002Indexes) Down(db *gorm.DB) error {
	for _, name := range []string{
		"idx_mode_switch_records_mode",
		"idx_mode_switch_records_created_at",
		"idx_snapshot_records_expires_at",
	} {
		if err := db.Exec("DROP INDEX IF EXISTS " + name).Error; err != nil {
			return err
		}
	}
	return nil
}

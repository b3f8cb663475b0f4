package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kvmd-streamer-go/internal/platform/config"
	"kvmd-streamer-go/internal/platform/errors"
	"kvmd-streamer-go/internal/platform/storage/migrations"
)

// Migrations returns the schema steps in application order.
func Migrations() []Migration {
	return []Migration{
		&migrations.Migration001Initial{},
		&migrations.Migration002Indexes{},
	}
}

// Open creates the data directory, opens the sqlite database and brings
// the schema up to date.
func Open(ctx context.Context, cfg config.StorageConfig) (*gorm.DB, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}
	dbFile := cfg.DBFile
	if dbFile == "" {
		dbFile = "streamer.db"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.mkdir", "failed to create data directory", err)
	}

	return OpenDSN(ctx, filepath.Join(dataDir, dbFile))
}

// OpenDSN opens dsn with sqlite and runs the migrations.
func OpenDSN(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", fmt.Sprintf("failed to open database %s", dsn), err)
	}

	if _, err := NewMigrationManager(db, Migrations()...).RunMigrations(ctx); err != nil {
		_ = Close(db)
		return nil, err
	}
	return db, nil
}

// Close releases the underlying sql.DB.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

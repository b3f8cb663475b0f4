package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvmd-streamer-go/internal/platform/config"
)

func openTestDB(t *testing.T) *ModeSwitchRepository {
	t.Helper()
	db, err := Open(context.Background(), config.StorageConfig{
		DataDir: t.TempDir(),
		DBFile:  "test.db",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return NewModeSwitchRepository(db)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "migrate.db")

	db, err := OpenDSN(ctx, dsn)
	require.NoError(t, err)
	defer Close(db)

	ran, err := NewMigrationManager(db, Migrations()...).RunMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, ran)

	history, err := NewMigrationManager(db, Migrations()...).History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	assert.True(t, db.Migrator().HasTable("snapshot_records"))
	assert.True(t, db.Migrator().HasTable("mode_switch_records"))
}

func TestRollbackMigration(t *testing.T) {
	ctx := context.Background()
	db, err := OpenDSN(ctx, filepath.Join(t.TempDir(), "rollback.db"))
	require.NoError(t, err)
	defer Close(db)

	mgr := NewMigrationManager(db, Migrations()...)
	require.NoError(t, mgr.RollbackMigration(ctx, "002_indexes"))

	history, err := mgr.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	assert.Error(t, mgr.RollbackMigration(ctx, "002_indexes"))
	assert.Error(t, mgr.RollbackMigration(ctx, "999_missing"))
}

func TestModeSwitchRepository(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	base := time.Now().Add(-time.Minute)
	require.NoError(t, repo.Record(ctx, &ModeSwitchRecord{Mode: "janus", Outcome: "succeeded", CreatedAt: base}))
	require.NoError(t, repo.Record(ctx, &ModeSwitchRecord{
		Mode:       "mjpeg",
		Outcome:    "command_failed",
		Diagnostic: "exit status 1",
		CreatedAt:  base.Add(time.Second),
	}))

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "mjpeg", recent[0].Mode)
	assert.Equal(t, "janus", recent[1].Mode)

	recent, err = repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "command_failed", recent[0].Outcome)
}

func TestRecentEmpty(t *testing.T) {
	repo := openTestDB(t)
	recent, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

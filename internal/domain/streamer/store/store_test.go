package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvmd-streamer-go/internal/domain/streamer/model"
	"kvmd-streamer-go/internal/platform/config"
	testutil "kvmd-streamer-go/internal/platform/testing"
)

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Data:       []byte{0xFF, 0xD8, 0x01, 0x02},
		Headers:    map[string]string{"X-Timestamp": "1700000000.25", "X-Ustreamer-Online": "true"},
		Online:     true,
		Width:      1920,
		Height:     1080,
		CapturedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := sampleSnapshot()
	require.NoError(t, s.Save(ctx, want))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Data, got.Data)
	assert.Equal(t, want.Headers, got.Headers)
	assert.Equal(t, want.Width, got.Width)
	assert.Equal(t, want.Height, got.Height)
	assert.True(t, got.Online)
	assert.True(t, want.CapturedAt.Equal(got.CapturedAt))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, stats["saved"])

	replacement := sampleSnapshot()
	replacement.Width = 640
	require.NoError(t, s.Save(ctx, replacement))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 640, got.Width)

	require.NoError(t, s.Remove(ctx))
	require.NoError(t, s.Remove(ctx))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory(Config{})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	exerciseStore(t, s)
}

func TestMemoryStoreExpiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{TTL: 20 * time.Millisecond})
	require.NoError(t, s.Save(ctx, sampleSnapshot()))

	time.Sleep(40 * time.Millisecond)
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewRedis(Config{TTL: time.Minute, Redis: &RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	exerciseStore(t, s)
}

func TestRedisStoreTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewRedis(Config{TTL: time.Second, Redis: &RedisConfig{Addr: mr.Addr(), Prefix: "test:"}})
	require.NoError(t, err)
	defer s.Close(context.Background())

	require.NoError(t, s.Save(context.Background(), sampleSnapshot()))
	assert.True(t, mr.Exists("test:current"))

	mr.FastForward(2 * time.Second)
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore(t *testing.T) {
	db := testutil.OpenTestDB(t)

	s, err := NewSQLite(db, Config{TTL: time.Hour})
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFactory(t *testing.T) {
	s, err := New(Config{}, Dependencies{})
	require.NoError(t, err)
	_ = s.Close(context.Background())

	_, err = New(Config{Driver: DriverSQLite}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{Driver: DriverRedis}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{Driver: "etcd"}, Dependencies{})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.SnapshotStoreConfig{
		Type: " Redis ",
		TTL:  time.Minute,
		Redis: config.SnapshotRedisStore{
			Addr: "127.0.0.1:6379",
			DB:   2,
		},
	})
	assert.Equal(t, DriverRedis, cfg.Driver)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, 2, cfg.Redis.DB)

	cfg = FromConfig(config.SnapshotStoreConfig{Type: "memory"})
	assert.Nil(t, cfg.Redis)
}

package testing

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"kvmd-streamer-go/internal/platform/config"
	"kvmd-streamer-go/internal/platform/logging"
	"kvmd-streamer-go/internal/platform/storage"
)

// SetupTestConfig returns defaults rooted in per-test temp directories.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Log.Level = "DEBUG"
	cfg.Log.Dir = filepath.Join(t.TempDir(), "logs")
	cfg.Storage.DataDir = t.TempDir()
	cfg.OCR.TessdataDir = t.TempDir()
	return cfg
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// SetupTestLogger routes JSON log lines to t.Log.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.NewWithWriter(testWriter{t: t}, "debug")
}

// CaptureLogger returns a logger writing JSON lines into the returned buffer.
func CaptureLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return logging.NewWithWriter(buf, "debug"), buf
}

// OpenTestDB opens a migrated sqlite database in a temp directory.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := storage.OpenDSN(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	return db
}

// JPEGFixture encodes a w x h gradient JPEG.
func JPEGFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

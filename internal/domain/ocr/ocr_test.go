package ocr

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvmd-streamer-go/internal/domain/params"
	"kvmd-streamer-go/internal/platform/config"
	apperrors "kvmd-streamer-go/internal/platform/errors"
	testutil "kvmd-streamer-go/internal/platform/testing"
)

func TestRegionResolve(t *testing.T) {
	tests := []struct {
		name    string
		region  Region
		want    stdimage.Rectangle
		wantErr bool
	}{
		{name: "full frame", region: FullFrame, want: stdimage.Rect(0, 0, 640, 480)},
		{name: "left sentinel only", region: Region{Left: -1, Top: 10, Right: 100, Bottom: 50}, want: stdimage.Rect(0, 10, 100, 50)},
		{name: "right and bottom sentinel", region: Region{Left: 20, Top: 30, Right: -1, Bottom: -1}, want: stdimage.Rect(20, 30, 640, 480)},
		{name: "clamped to bounds", region: Region{Left: 600, Top: 0, Right: 9000, Bottom: 9000}, want: stdimage.Rect(600, 0, 640, 480)},
		{name: "left equals right", region: Region{Left: 100, Top: 0, Right: 100, Bottom: 10}, wantErr: true},
		{name: "left beyond right", region: Region{Left: 200, Top: 0, Right: 100, Bottom: 10}, wantErr: true},
		{name: "top beyond bottom", region: Region{Left: 0, Top: 50, Right: 10, Bottom: 20}, wantErr: true},
		{name: "left past image", region: Region{Left: 700, Top: -1, Right: -1, Bottom: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.region.Resolve(640, 480)
			if tt.wantErr {
				var verr *params.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "ocr_region", verr.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func tessdata(t *testing.T, langs ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, lang := range langs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, lang+".traineddata"), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))
	return dir
}

func newTesseract(t *testing.T, cmd CommandFunc, langs ...string) *Tesseract {
	t.Helper()
	return NewTesseract(config.OCRConfig{
		Enabled:      true,
		TessdataDir:  tessdata(t, langs...),
		DefaultLangs: []string{"ENG", "deu", "eng"},
		Timeout:      time.Second,
		Workers:      1,
	}, testutil.SetupTestLogger(t), WithCommand(cmd))
}

func TestLangsAndState(t *testing.T) {
	ocr := newTesseract(t, nil, "rus", "eng", "osd")
	ctx := context.Background()

	available, err := ocr.AvailableLangs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"eng", "rus"}, available)

	defaults, err := ocr.DefaultLangs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"eng"}, defaults)

	state, err := ocr.State(ctx)
	require.NoError(t, err)
	assert.True(t, state.Enabled)
	assert.Equal(t, available, state.Langs.Available)
	assert.Equal(t, defaults, state.Langs.Default)
}

func TestStateDisabled(t *testing.T) {
	ocr := NewTesseract(config.OCRConfig{Enabled: false, TessdataDir: tessdata(t, "eng")}, nil)
	state, err := ocr.State(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Enabled)
	assert.Empty(t, state.Langs.Available)

	_, err = ocr.Recognize(context.Background(), nil, []string{"eng"}, FullFrame)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnavailable))
}

func TestMissingTessdataDir(t *testing.T) {
	ocr := NewTesseract(config.OCRConfig{Enabled: true, TessdataDir: filepath.Join(t.TempDir(), "absent")}, nil)
	state, err := ocr.State(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Enabled)
}

func TestRecognize(t *testing.T) {
	var gotArgs []string
	var gotStdin []byte
	cmd := func(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "tesseract", name)
		gotArgs = args
		gotStdin = stdin
		return []byte("HELLO\n"), nil
	}
	ocr := newTesseract(t, cmd, "eng", "rus")
	frame := testutil.JPEGFixture(t, 120, 80)

	text, err := ocr.Recognize(context.Background(), frame, []string{"eng", "rus"}, Region{Left: 10, Top: 10, Right: 60, Bottom: -1})
	require.NoError(t, err)
	assert.Equal(t, "HELLO\n", text)
	assert.Equal(t, []string{"stdin", "stdout", "-l", "eng+rus", "--tessdata-dir", ocr.cfg.TessdataDir}, gotArgs)

	cropped, err := png.Decode(bytes.NewReader(gotStdin))
	require.NoError(t, err)
	assert.Equal(t, 50, cropped.Bounds().Dx())
	assert.Equal(t, 70, cropped.Bounds().Dy())
}

func TestRecognizeDegenerateRegionNeverRunsTesseract(t *testing.T) {
	called := false
	cmd := func(context.Context, []byte, string, ...string) ([]byte, error) {
		called = true
		return nil, nil
	}
	ocr := newTesseract(t, cmd, "eng")

	_, err := ocr.Recognize(context.Background(), testutil.JPEGFixture(t, 40, 40), []string{"eng"}, Region{Left: 30, Top: -1, Right: 10, Bottom: -1})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.False(t, called)
}

func TestRecognizeFailure(t *testing.T) {
	cmd := func(context.Context, []byte, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1: Failed loading language")
	}
	ocr := newTesseract(t, cmd, "eng")

	_, err := ocr.Recognize(context.Background(), testutil.JPEGFixture(t, 40, 40), []string{"eng"}, FullFrame)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDomain))

	_, err = ocr.Recognize(context.Background(), testutil.JPEGFixture(t, 40, 40), nil, FullFrame)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnavailable))
}

func TestRecognizeIsSerialised(t *testing.T) {
	var running, peak int32
	cmd := func(context.Context, []byte, string, ...string) ([]byte, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return []byte("ok"), nil
	}
	ocr := newTesseract(t, cmd, "eng")
	frame := testutil.JPEGFixture(t, 32, 32)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ocr.Recognize(context.Background(), frame, []string{"eng"}, FullFrame)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestRunCommandTimeoutWithPipeHolder(t *testing.T) {
	old := commandWaitDelay
	commandWaitDelay = 200 * time.Millisecond
	t.Cleanup(func() { commandWaitDelay = old })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runCommand(ctx, nil, "sh", "-c", "sleep 3; echo done")
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second)
}

func TestRunCommandOutput(t *testing.T) {
	out, err := runCommand(context.Background(), []byte("hello"), "cat")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	_, err = runCommand(context.Background(), nil, "sh", "-c", "echo bad >&2; exit 2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

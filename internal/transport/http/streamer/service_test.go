package streamer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvmd-streamer-go/internal/app/services"
	"kvmd-streamer-go/internal/domain/mode"
	"kvmd-streamer-go/internal/domain/ocr"
	domainstreamer "kvmd-streamer-go/internal/domain/streamer"
	"kvmd-streamer-go/internal/domain/streamer/model"
	"kvmd-streamer-go/internal/platform/logging"
	testutil "kvmd-streamer-go/internal/platform/testing"
	httptransport "kvmd-streamer-go/internal/transport/http"
)

type fakeSource struct {
	snap     *model.Snapshot
	err      error
	captures atomic.Int32
}

func (f *fakeSource) State(context.Context) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"source": map[string]any{"online": f.snap.Online}}, nil
}

func (f *fakeSource) Capture(context.Context) (*model.Snapshot, error) {
	f.captures.Add(1)
	return f.snap, f.err
}

type fakeRunner struct {
	err  error
	argv []string
}

func (r *fakeRunner) Run(_ context.Context, argv []string) error {
	r.argv = argv
	return r.err
}

type harness struct {
	engine     *gin.Engine
	source     *fakeSource
	runner     *fakeRunner
	recognized atomic.Int32
	logs       interface{ String() string }
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testutil.SetupTestConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OCR.TessdataDir, "eng.traineddata"), []byte("x"), 0o644))
	logger, logs := testutil.CaptureLogger(t)

	h := &harness{
		source: &fakeSource{snap: &model.Snapshot{
			Data:    testutil.JPEGFixture(t, 320, 240),
			Headers: map[string]string{"X-Timestamp": "1700000000.25", "Cache-Control": "no-store"},
			Online:  true,
			Width:   320,
			Height:  240,
		}},
		runner: &fakeRunner{},
		logs:   logs,
	}

	svc := domainstreamer.NewService(domainstreamer.Options{
		Source: h.source,
		Params: domainstreamer.Params{Quality: 80, DesiredFPS: 30},
		Logger: logger,
	})
	tess := ocr.NewTesseract(cfg.OCR, logger, ocr.WithCommand(
		func(_ context.Context, _ []byte, _ string, args ...string) ([]byte, error) {
			h.recognized.Add(1)
			return []byte("recognised with " + strings.Join(args, " ")), nil
		}))
	probe := mode.NewProbe(nil)
	controller, err := mode.NewController(mode.ControllerOptions{
		Runner:   h.runner,
		Commands: mode.CommandsFromConfig(cfg.Mode),
		Timeout:  time.Second,
		Logger:   logger,
	})
	require.NoError(t, err)

	orchestrator := services.NewSnapshotOrchestrator(services.SnapshotConfig{
		Streamer: svc,
		OCR:      tess,
		Probe:    probe,
		Logger:   logger,
	})

	router, err := httptransport.Build(httptransport.Options{Config: cfg, Logger: logging.NewNop()})
	require.NoError(t, err)
	api, err := NewService(orchestrator, controller, logger)
	require.NoError(t, err)
	require.NoError(t, api.Register(context.Background(), router.API))

	h.engine = router.Engine
	return h
}

func (h *harness) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) (bool, map[string]any) {
	t.Helper()
	var env struct {
		OK     bool           `json:"ok"`
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.OK, env.Result
}

func TestSnapshotRaw(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/streamer/snapshot")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1700000000.25", rec.Header().Get("X-Timestamp"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, h.source.snap.Data, rec.Body.Bytes())
	assert.NotEmpty(t, rec.Header().Get(httptransport.RequestIDHeader))
}

func TestSnapshotPreview(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/streamer/snapshot?preview=yes&preview_max_width=160&preview_quality=50")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Less(t, rec.Body.Len(), len(h.source.snap.Data))
	assert.Equal(t, "1700000000.25", rec.Header().Get("X-Timestamp"))
}

func TestSnapshotOCRWinsOverPreview(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/streamer/snapshot?ocr=1&preview=1&ocr_langs=eng")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "-l eng")
	assert.Equal(t, int32(1), h.recognized.Load())
}

func TestSnapshotUnknownOCRLang(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/streamer/snapshot?ocr=true&ocr_langs=eng,klingon")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	ok, result := decode(t, rec)
	assert.False(t, ok)
	assert.Equal(t, "ValidatorError", result["error"])
	assert.Contains(t, result["error_msg"], "klingon")
	assert.Zero(t, h.recognized.Load())
}

func TestSnapshotValidationErrors(t *testing.T) {
	h := newHarness(t)
	for _, query := range []string{
		"save=maybe",
		"preview_quality=0",
		"preview_quality=101",
		"preview_max_width=-5",
		"ocr_left=-2",
	} {
		rec := h.do(http.MethodGet, "/api/streamer/snapshot?"+query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		_, result := decode(t, rec)
		assert.Equal(t, "ValidatorError", result["error"], query)
	}
	assert.Zero(t, h.source.captures.Load())
}

func TestSnapshotDegenerateRegion(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/streamer/snapshot?ocr=1&ocr_left=100&ocr_right=50")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.recognized.Load())
}

func TestSnapshotUnavailable(t *testing.T) {
	h := newHarness(t)
	h.source.err = errors.New("connection refused")

	for _, query := range []string{"", "?ocr=1", "?preview=1", "?load=1", "?save=1&allow_offline=1"} {
		rec := h.do(http.MethodGet, "/api/streamer/snapshot"+query)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, query)
		ok, result := decode(t, rec)
		assert.False(t, ok)
		assert.Equal(t, "UnavailableError", result["error"])
		assert.Equal(t, "Service Unavailable", result["error_msg"])
	}
}

func TestSnapshotOffline(t *testing.T) {
	h := newHarness(t)
	h.source.snap.Online = false

	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/api/streamer/snapshot").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/streamer/snapshot?allow_offline=1").Code)
}

func TestSaveLoadAndRemove(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/streamer/snapshot?save=1").Code)
	h.source.err = errors.New("gone")

	rec := h.do(http.MethodGet, "/api/streamer/snapshot?load=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, h.source.snap.Data, rec.Body.Bytes())

	for i := 0; i < 2; i++ {
		rec = h.do(http.MethodDelete, "/api/streamer/snapshot")
		require.Equal(t, http.StatusOK, rec.Code)
		ok, result := decode(t, rec)
		assert.True(t, ok)
		assert.Empty(t, result)
	}

	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/api/streamer/snapshot?load=1").Code)
}

func TestState(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/streamer")

	require.Equal(t, http.StatusOK, rec.Code)
	ok, result := decode(t, rec)
	assert.True(t, ok)
	assert.NotNil(t, result["streamer"])
	assert.Equal(t, float64(80), result["params"].(map[string]any)["quality"])
	assert.Contains(t, result, "backends")
	snapshot := result["snapshot"].(map[string]any)
	assert.Nil(t, snapshot["saved"])
	assert.Equal(t, "memory", snapshot["store"].(map[string]any)["type"])

	h.source.err = errors.New("down")
	_, result = decode(t, h.do(http.MethodGet, "/api/streamer"))
	assert.Nil(t, result["streamer"])
}

func TestOCRState(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/streamer/ocr")

	require.Equal(t, http.StatusOK, rec.Code)
	_, result := decode(t, rec)
	state := result["ocr"].(map[string]any)
	assert.Equal(t, true, state["enabled"])
	langs := state["langs"].(map[string]any)
	assert.Equal(t, []any{"eng"}, langs["available"])
	assert.Equal(t, []any{"eng"}, langs["default"])
}

func TestSetMode(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/streamer/set_mode?mode=janus")

	require.Equal(t, http.StatusOK, rec.Code)
	ok, result := decode(t, rec)
	assert.True(t, ok)
	assert.Equal(t, "janus", result["mode"])
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, []string{"sudo", "systemctl", "restart", "kvmd-webrtc"}, h.runner.argv)
}

func TestSetModeInvalid(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/streamer/set_mode?mode=hls")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, result := decode(t, rec)
	assert.Equal(t, "Invalid mode", result["error"])
	assert.Equal(t, "hls", result["mode"])

	rec = h.do(http.MethodPost, "/api/streamer/set_mode")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, result = decode(t, rec)
	assert.Contains(t, result, "mode")
	assert.Nil(t, result["mode"])

	assert.Nil(t, h.runner.argv)
}

func TestSetModeFailures(t *testing.T) {
	h := newHarness(t)

	h.runner.err = &mode.CommandError{Argv: []string{"sudo", "systemctl", "restart", "kvmd-ustreamer"}, ExitCode: 1, Stderr: "denied"}
	rec := h.do(http.MethodPost, "/api/streamer/set_mode?mode=mjpeg")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	ok, result := decode(t, rec)
	assert.False(t, ok)
	assert.Equal(t, "mjpeg", result["mode"])
	assert.Contains(t, result["error"], "command failed")
	assert.Contains(t, result["error"], "denied")

	h.runner.err = errors.New("exec: sudo: not found")
	rec = h.do(http.MethodPost, "/api/streamer/set_mode?mode=mjpeg")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	_, result = decode(t, rec)
	assert.Equal(t, "Unknown error", result["error"])

	logs := h.logs.String()
	assert.Contains(t, logs, `"outcome":"command_failed"`)
	assert.Contains(t, logs, `"outcome":"unknown_error"`)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	assert.Error(t, err)
}

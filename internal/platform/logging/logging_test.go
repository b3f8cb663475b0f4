package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[HTTP] started", FormatLog("HTTP", "started"))
	assert.Equal(t, "[MODE] already tagged", FormatLog("HTTP", "[MODE] already tagged"))
	assert.Equal(t, "plain", FormatLog("", " plain "))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("WARNING").String())
	assert.Equal(t, "ERROR", ParseLevel("error").String())
	assert.Equal(t, "INFO", ParseLevel("bogus").String())
}

func TestNewWritesFileAndConsole(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(Config{Level: "info", Dir: dir, Filename: "test.log", Console: &console})
	require.NoError(t, err)

	logger.InfoTag("MODE", "switched to %s", "janus")
	logger.Debug("hidden")
	warnMsg := "structured"
	logger.Warn(warnMsg, "key", "value")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "[MODE] switched to janus", first["msg"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "WARN", second["level"])
	assert.Equal(t, "value", second["key"])

	out := console.String()
	assert.Contains(t, out, "[MODE] switched to janus")
	assert.Contains(t, out, "key=value")
	assert.NotContains(t, out, "hidden")
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug")
	logger.ErrorTag("OCR", "failed: %v", "boom")

	assert.Contains(t, buf.String(), `"msg":"[OCR] failed: boom"`)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewWithWriter_FiltersAndEncodesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")
	logger.Info("dropped")
	logger.Warn("kept", "state", "AVOIDING")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "AVOIDING", rec["state"])
}

func TestNew_WritesToRotatingFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "rover.log")
	logger, closer := New(Config{Level: "info", File: fn, MaxSizeMB: 1, MaxBackups: 1})
	logger.Info("health ok", "ticks", 100)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"health ok"`)
}

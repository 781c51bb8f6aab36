package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json by default", func(t *testing.T) {
		var buf bytes.Buffer
		newLogger(&buf, "debug", "").Debug("routed", "domain", "data")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "routed", line["msg"])
		assert.Equal(t, "data", line["domain"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		newLogger(&buf, "info", "TEXT").Info("routed")
		assert.Contains(t, buf.String(), "msg=routed")
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		newLogger(&buf, "warn", "json").Info("dropped")
		assert.Empty(t, buf.String())
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

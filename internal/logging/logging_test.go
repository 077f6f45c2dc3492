// ABOUTME: Tests for default logger setup
// ABOUTME: Checks level parsing and file output
package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keepDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestUnknownLevel(t *testing.T) {
	keepDefault(t)

	f, err := ConfigureDefaultLogger("loud", "", slog.HandlerOptions{})
	assert.Error(t, err)
	assert.Nil(t, f)
}

func TestNoneDiscards(t *testing.T) {
	keepDefault(t)

	f, err := ConfigureDefaultLogger("none", filepath.Join(t.TempDir(), "never.log"), slog.HandlerOptions{})
	require.NoError(t, err)
	assert.Nil(t, f, "no file is opened when logging is off")
}

func TestLevelsApplied(t *testing.T) {
	keepDefault(t)

	for _, tt := range []struct {
		level   string
		enabled slog.Level
		off     slog.Level
	}{
		{"error", slog.LevelError, slog.LevelWarn},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"info", slog.LevelInfo, slog.LevelDebug},
	} {
		_, err := ConfigureDefaultLogger(tt.level, "", slog.HandlerOptions{})
		require.NoError(t, err)

		ctx := context.Background()
		assert.True(t, slog.Default().Enabled(ctx, tt.enabled), tt.level)
		assert.False(t, slog.Default().Enabled(ctx, tt.off), tt.level)
	}
}

func TestFileGetsJSON(t *testing.T) {
	keepDefault(t)

	path := filepath.Join(t.TempDir(), "out.log")
	f, err := ConfigureDefaultLogger("debug", path, slog.HandlerOptions{})
	require.NoError(t, err)
	require.NotNil(t, f)

	slog.Debug("stream opened", "rate", 48000)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "stream opened", line["msg"])
	assert.Equal(t, float64(48000), line["rate"])
}

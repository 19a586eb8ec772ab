package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobis.log")
	logger, err := NewLogger(LogOptions{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Debug("store opened", zap.Int("count", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "store opened", entry["msg"])
	assert.EqualValues(t, 3, entry["count"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	logger, err := NewLogger(LogOptions{Level: "warn", Format: "console", Output: filepath.Join(t.TempDir(), "x.log")})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewLogger_Rejects(t *testing.T) {
	_, err := NewLogger(LogOptions{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(LogOptions{Format: "xml"})
	assert.Error(t, err)
}

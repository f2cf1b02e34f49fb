package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeMirrorsToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	t.Setenv("LOG_FILE", path)

	Initialize("debug")
	Logger.Info().Msg("file sink check")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file sink check")
}

func TestInitializeSetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		Initialize(tt.level)
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), "level %s", tt.level)
	}
}

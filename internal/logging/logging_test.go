package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-play/internal/config"
)

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	cfg := &config.Config{LogLevel: "debug", LogFile: path}

	logger, closer := New(cfg)
	l := Component(logger, "player")
	l.Info().Str("guild", "1").Msg("Now playing")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"player"`)
	assert.Contains(t, string(data), `"message":"Now playing"`)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	logger, closer := New(&config.Config{LogLevel: "chatty"})
	defer closer.Close()

	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

package logger

import (
	"testing"

	"lead-chat/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLoggerLevels(t *testing.T) {
	t.Cleanup(Replace(L))

	require.NoError(t, InitLogger(config.LogConfig{Level: "warn"}))
	assert.False(t, L.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, L.Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, InitLogger(config.LogConfig{Level: "loud", ProductionMode: true}))
	assert.True(t, L.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, L.Core().Enabled(zapcore.DebugLevel))
}

func TestReplaceRestores(t *testing.T) {
	original := L
	core, logs := observer.New(zapcore.InfoLevel)

	restore := Replace(zap.New(core))
	L.Info("captured")
	restore()
	L.Info("dropped")

	assert.Same(t, original, L)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "captured", logs.All()[0].Message)
}

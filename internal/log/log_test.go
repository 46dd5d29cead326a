package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestComponentNamesEntries(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	Component("engine").Infof("fitted %s", "kNN")
	Component("engine").Debugf("dropped below the level")
	Infof("plain %d", 1)

	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, "engine", entries[0].LoggerName)
	assert.Equal(t, "fitted kNN", entries[0].Message)
	assert.Empty(t, entries[1].LoggerName)
	assert.Equal(t, "plain 1", entries[1].Message)
}

func TestInit(t *testing.T) {
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	require.NoError(t, Init(false))
	assert.False(t, GetSugaredLogger().Desugar().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init(true))
	assert.True(t, GetSugaredLogger().Desugar().Core().Enabled(zapcore.DebugLevel))
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{level: "", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{level: "debug", enabled: zapcore.DebugLevel, muted: zapcore.DebugLevel - 1},
		{level: "warn", enabled: zapcore.WarnLevel, muted: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			l, err := New(tt.level)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.muted))
		})
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New("loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestNewConsole(t *testing.T) {
	t.Parallel()

	quiet := Must(NewConsole(false))
	assert.False(t, quiet.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.WarnLevel))

	verbose := Must(NewConsole(true))
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
}

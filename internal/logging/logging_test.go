package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuildLevels(t *testing.T) {
	testCases := []struct {
		name    string
		verbose bool
		console bool
		debug   bool
	}{
		{"json info", false, false, false},
		{"json debug", true, false, true},
		{"console info", false, true, false},
		{"console debug", true, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := build(tc.verbose, tc.console)
			require.NoError(t, err)
			assert.Equal(t, tc.debug, logger.Core().Enabled(zapcore.DebugLevel))
			assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestSetupReplacesGlobals(t *testing.T) {
	before := zap.L()

	restore, err := Setup(true)
	require.NoError(t, err)
	assert.NotSame(t, before, zap.L())
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))

	restore()
	assert.Same(t, before, zap.L())
}

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit_ProvidesBothLoggers(t *testing.T) {
	Init("delta-adapter", "prod", "debug")

	require.NotNil(t, L())
	require.NotNil(t, S())
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel), "debug level override must apply")
}

func TestAccessors_SelfInitialize(t *testing.T) {
	log = nil
	sugar = nil

	assert.NotNil(t, L())
	assert.NotNil(t, S())
}

func TestInit_InvalidLevelFallsBackToDefault(t *testing.T) {
	Init("delta-adapter", "prod", "not-a-level")
	assert.NotNil(t, L())
}

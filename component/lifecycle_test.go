package component

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestGetLoggerDefaults(t *testing.T) {
	deps := &Dependencies{}
	assert.NotNil(t, deps.GetLogger())

	custom := slog.Default().With("test", true)
	deps.Logger = custom
	assert.Equal(t, custom, deps.GetLogger())
}

func TestGetLoggerWithComponent(t *testing.T) {
	deps := &Dependencies{}
	logger := deps.GetLoggerWithComponent("meetup-receiver")
	assert.NotNil(t, logger)
}

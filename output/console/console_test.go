package console

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/event"
)

func TestSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	s := NewSinkWriter(&buf, component.Dependencies{})

	require.NoError(t, s.Initialize())
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(time.Second) }()

	ev1 := event.Event{RSVPID: 101, Response: event.Some("yes")}
	ev2 := event.Event{RSVPID: 102}

	require.NoError(t, s.Accept(context.Background(), ev1))
	require.NoError(t, s.Accept(context.Background(), ev2))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var got1 map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got1))
	assert.Equal(t, float64(101), got1["rsvp_id"])
	assert.Equal(t, "yes", got1["response"])

	var got2 map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got2))
	assert.Equal(t, float64(102), got2["rsvp_id"])
	// Absent optional fields are omitted entirely
	_, hasResponse := got2["response"]
	assert.False(t, hasResponse)
}

func TestSinkRejectsWhenNotStarted(t *testing.T) {
	var buf bytes.Buffer
	s := NewSinkWriter(&buf, component.Dependencies{})

	err := s.Accept(context.Background(), event.Event{RSVPID: 1})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestSinkCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	s := NewSinkWriter(&buf, component.Dependencies{})
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(time.Second) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Accept(ctx, event.Event{RSVPID: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSinkHealthReflectsLifecycle(t *testing.T) {
	var buf bytes.Buffer
	s := NewSinkWriter(&buf, component.Dependencies{})

	assert.False(t, s.Health().Healthy)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Health().Healthy)

	require.NoError(t, s.Stop(time.Second))
	assert.False(t, s.Health().Healthy)
}

package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/event"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Directory = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.BatchSize = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.FlushInterval = 0
	assert.Error(t, bad.Validate())
}

func TestSinkWritesBatchOnStop(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.BatchSize = 100 // larger than event count so only Stop flushes

	s, err := NewSink(cfg, component.Dependencies{})
	require.NoError(t, err)

	require.NoError(t, s.Initialize())
	require.NoError(t, s.Start(context.Background()))

	for i := int64(1); i <= 3; i++ {
		ev := event.Event{RSVPID: i, Response: event.Some("yes")}
		require.NoError(t, s.Accept(context.Background(), ev))
	}

	require.NoError(t, s.Stop(2*time.Second))

	data, err := os.ReadFile(filepath.Join(dir, "rsvps.jsonl"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)

	for i, line := range lines {
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &got))
		assert.Equal(t, float64(i+1), got["rsvp_id"])
	}
}

func TestSinkFlushesWhenBatchFull(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.BatchSize = 2
	cfg.FlushInterval = time.Hour // ticker never fires during the test

	s, err := NewSink(cfg, component.Dependencies{})
	require.NoError(t, err)

	require.NoError(t, s.Initialize())
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(2 * time.Second) }()

	require.NoError(t, s.Accept(context.Background(), event.Event{RSVPID: 1}))
	require.NoError(t, s.Accept(context.Background(), event.Event{RSVPID: 2}))

	data, err := os.ReadFile(filepath.Join(dir, "rsvps.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 2)
}

func TestSinkAppendMode(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.BatchSize = 1

	run := func(id int64) {
		s, err := NewSink(cfg, component.Dependencies{})
		require.NoError(t, err)
		require.NoError(t, s.Initialize())
		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Accept(context.Background(), event.Event{RSVPID: id}))
		require.NoError(t, s.Stop(2*time.Second))
	}

	run(1)
	run(2)

	data, err := os.ReadFile(filepath.Join(dir, "rsvps.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 2, "append mode should preserve events from prior runs")
}

func TestSinkTruncateMode(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.BatchSize = 1
	cfg.Append = false

	path := filepath.Join(dir, "rsvps.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0644))

	s, err := NewSink(cfg, component.Dependencies{})
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Accept(context.Background(), event.Event{RSVPID: 7}))
	require.NoError(t, s.Stop(2*time.Second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestSinkRejectsWhenNotStarted(t *testing.T) {
	s, err := NewSink(DefaultConfig(t.TempDir()), component.Dependencies{})
	require.NoError(t, err)

	err = s.Accept(context.Background(), event.Event{RSVPID: 1})
	assert.Error(t, err)
}

func TestSinkDoubleStart(t *testing.T) {
	s, err := NewSink(DefaultConfig(t.TempDir()), component.Dependencies{})
	require.NoError(t, err)

	require.NoError(t, s.Initialize())
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(2 * time.Second) }()

	assert.Error(t, s.Start(context.Background()))
}

// Package console provides the console sink: one JSON line per event,
// written synchronously to stdout.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/errors"
	"github.com/c360/rsvpstream/event"
	"github.com/c360/rsvpstream/output"
)

// Sink writes decoded events to a writer, one JSON line each. Writes are
// synchronous, so throughput is effectively unbounded relative to the feed
// and no internal queue is needed.
type Sink struct {
	name   string
	out    io.Writer
	outMu  sync.Mutex
	logger *slog.Logger

	// Lifecycle management
	running   atomic.Bool
	startTime time.Time

	// Statistics
	eventsWritten atomic.Int64
	writeErrors   atomic.Int64
	lastActivity  atomic.Value // stores time.Time
}

// Ensure Sink implements the sink contract
var _ output.Sink = (*Sink)(nil)

// NewSink creates a console sink writing to stdout
func NewSink(deps component.Dependencies) *Sink {
	return NewSinkWriter(os.Stdout, deps)
}

// NewSinkWriter creates a console sink writing to w
func NewSinkWriter(w io.Writer, deps component.Dependencies) *Sink {
	name := "console-sink"
	return &Sink{
		name:   name,
		out:    w,
		logger: deps.GetLoggerWithComponent(name),
	}
}

// Accept writes one event as a JSON line
func (s *Sink) Accept(ctx context.Context, ev event.Event) error {
	if !s.running.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted, "Sink", "Accept", "check running state")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := json.Marshal(ev)
	if err != nil {
		s.writeErrors.Add(1)
		return errors.WrapInvalid(err, "Sink", "Accept", "encode event")
	}

	s.outMu.Lock()
	_, err = fmt.Fprintf(s.out, "%s\n", data)
	s.outMu.Unlock()

	if err != nil {
		s.writeErrors.Add(1)
		return errors.WrapTransient(err, "Sink", "Accept", "write event")
	}

	s.eventsWritten.Add(1)
	s.lastActivity.Store(time.Now())
	return nil
}

// Meta returns component metadata
func (s *Sink) Meta() component.Metadata {
	return component.Metadata{
		Name:        s.name,
		Type:        "output",
		Description: "Console sink printing one JSON line per event",
		Version:     "1.0.0",
	}
}

// Health returns current health status
func (s *Sink) Health() component.HealthStatus {
	running := s.running.Load()
	uptime := time.Duration(0)
	if running && !s.startTime.IsZero() {
		uptime = time.Since(s.startTime)
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(s.writeErrors.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (s *Sink) DataFlow() component.FlowMetrics {
	lastAct := time.Time{}
	if val := s.lastActivity.Load(); val != nil {
		lastAct = val.(time.Time)
	}

	return component.FlowMetrics{
		LastActivity: lastAct,
	}
}

// Initialize initializes the sink (no-op for console)
func (s *Sink) Initialize() error {
	return nil
}

// Start marks the sink ready
func (s *Sink) Start(_ context.Context) error {
	if s.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Sink", "Start", "check running state")
	}
	s.startTime = time.Now()
	s.running.Store(true)
	return nil
}

// Stop marks the sink stopped. Nothing is buffered, so there is nothing
// to flush.
func (s *Sink) Stop(_ time.Duration) error {
	s.running.Store(false)
	return nil
}

// Package natspub provides a sink that publishes decoded events to a NATS
// subject for downstream consumers.
package natspub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/errors"
	"github.com/c360/rsvpstream/event"
	"github.com/c360/rsvpstream/output"
)

// Config holds configuration for the NATS publishing sink
type Config struct {
	URL     string `json:"url" yaml:"url"`
	Subject string `json:"subject" yaml:"subject"`
	// ClientName appears in NATS server monitoring
	ClientName string `json:"client_name" yaml:"client_name"`
}

// DefaultConfig returns default configuration for the NATS sink
func DefaultConfig() Config {
	return Config{
		URL:        nats.DefaultURL,
		Subject:    "rsvps.events",
		ClientName: "rsvpstream",
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "url is required")
	}
	if c.Subject == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "subject is required")
	}
	return nil
}

// Sink publishes each accepted event to a NATS subject as a JSON message.
// The client library handles reconnection internally, so Accept reports a
// transient error while disconnected rather than blocking.
type Sink struct {
	name   string
	config Config
	logger *slog.Logger

	conn   *nats.Conn
	connMu sync.Mutex

	running     atomic.Bool
	startTime   time.Time
	lifecycleMu sync.Mutex

	// Statistics
	eventsPublished atomic.Int64
	publishErrors   atomic.Int64
	lastActivity    atomic.Value // stores time.Time
}

var _ output.Sink = (*Sink)(nil)

// NewSink creates a NATS publishing sink from configuration
func NewSink(config Config, deps component.Dependencies) (*Sink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	name := "nats-sink"
	return &Sink{
		name:   name,
		config: config,
		logger: deps.GetLoggerWithComponent(name),
	}, nil
}

// Initialize is a no-op; the connection is established in Start
func (s *Sink) Initialize() error {
	return nil
}

// Start connects to the NATS server
func (s *Sink) Start(_ context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Sink", "Start", "check running state")
	}

	opts := []nats.Option{
		nats.Name(s.config.ClientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("nats connection lost", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(s.config.URL, opts...)
	if err != nil {
		return errors.WrapTransient(err, "Sink", "Start", "connect to NATS server")
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.startTime = time.Now()
	s.running.Store(true)

	s.logger.Info("nats sink started",
		"url", s.config.URL,
		"subject", s.config.Subject)

	return nil
}

// Accept publishes one event to the configured subject
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
		s.publishErrors.Add(1)
		return errors.WrapInvalid(err, "Sink", "Accept", "encode event")
	}

	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()

	if conn == nil {
		s.publishErrors.Add(1)
		return errors.WrapTransient(errors.ErrNoConnection, "Sink", "Accept", "check connection")
	}

	if err := conn.Publish(s.config.Subject, data); err != nil {
		s.publishErrors.Add(1)
		return errors.WrapTransient(err, "Sink", "Accept", "publish event")
	}

	s.eventsPublished.Add(1)
	s.lastActivity.Store(time.Now())
	return nil
}

// Stop flushes and closes the NATS connection
func (s *Sink) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running.Load() {
		return nil
	}

	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()

	if conn != nil {
		if err := conn.FlushTimeout(timeout); err != nil {
			s.logger.Warn("failed to flush pending messages", "error", err)
		}
		conn.Close()
	}

	s.running.Store(false)
	return nil
}

// Meta returns component metadata
func (s *Sink) Meta() component.Metadata {
	return component.Metadata{
		Name:        s.name,
		Type:        "output",
		Description: "NATS sink publishing events to a subject",
		Version:     "1.0.0",
	}
}

// Health returns current health status
func (s *Sink) Health() component.HealthStatus {
	s.connMu.Lock()
	connected := s.conn != nil && s.conn.IsConnected()
	s.connMu.Unlock()

	uptime := time.Duration(0)
	if s.running.Load() && !s.startTime.IsZero() {
		uptime = time.Since(s.startTime)
	}

	return component.HealthStatus{
		Healthy:    s.running.Load() && connected,
		LastCheck:  time.Now(),
		ErrorCount: int(s.publishErrors.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (s *Sink) DataFlow() component.FlowMetrics {
	published := s.eventsPublished.Load()
	errorCount := s.publishErrors.Load()

	var errorRate float64
	if published > 0 {
		errorRate = float64(errorCount) / float64(published)
	}

	lastAct := time.Time{}
	if val := s.lastActivity.Load(); val != nil {
		lastAct = val.(time.Time)
	}

	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: lastAct,
	}
}

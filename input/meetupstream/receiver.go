// Package meetupstream provides the stream receiver that ingests the meetup
// RSVP feed: a long-lived client connection, newline framing, heartbeat
// filtering, and reconnect with exponential backoff.
package meetupstream

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/errors"
	"github.com/c360/rsvpstream/pkg/backoff"
	"github.com/c360/rsvpstream/pkg/queue"
)

// ConnState is the receiver's connection state
type ConnState int32

const (
	// StateDisconnected indicates no connection and no attempt in progress
	StateDisconnected ConnState = iota
	// StateConnecting indicates a connection attempt in progress
	StateConnecting
	// StateStreaming indicates a live connection delivering frames
	StateStreaming
	// StateBackoff indicates waiting between reconnect attempts
	StateBackoff
)

// String returns a string representation of the connection state
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// Receiver maintains a continuously-available source of RSVP frames from the
// feed. It owns the connection, the framing buffer, and the bounded frame
// queue; no other component touches them. Frames enter the queue in wire
// order, including across reconnects. A full queue suspends socket reads
// (backpressure) rather than dropping frames.
type Receiver struct {
	name      string
	config    Config
	transport transport
	frames    *queue.Queue[[]byte]
	logger    *slog.Logger

	// Lifecycle management
	shutdown     chan struct{}
	shutdownOnce sync.Once
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	lifecycleMu  sync.Mutex
	started      atomic.Bool
	startTime    time.Time

	// Connection state
	state atomic.Int32

	// Statistics
	framesReceived atomic.Int64
	bytesReceived  atomic.Int64
	heartbeats     atomic.Int64
	reconnects     atomic.Int64
	errorCount     atomic.Int64
	lastActivity   atomic.Value // stores time.Time

	// Prometheus metrics
	metrics *Metrics
}

// Ensure Receiver implements all required interfaces
var _ component.LifecycleComponent = (*Receiver)(nil)

// NewReceiver creates a stream receiver from configuration
func NewReceiver(config Config, deps component.Dependencies) (*Receiver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	name := "meetup-receiver"

	r := &Receiver{
		name:     name,
		config:   config,
		frames:   queue.New[[]byte](config.QueueCapacity),
		logger:   deps.GetLoggerWithComponent(name),
		shutdown: make(chan struct{}),
		metrics:  newMetrics(deps.MetricsRegistry, name),
	}

	switch config.Transport {
	case TransportWebSocket:
		r.transport = newWSTransport(config)
	default:
		r.transport = newHTTPTransport(config)
	}

	return r, nil
}

// Frames returns the bounded queue the receiver produces into. The pipeline
// consumes from it; the queue is the only structure shared between them.
func (r *Receiver) Frames() *queue.Queue[[]byte] {
	return r.frames
}

// State returns the current connection state
func (r *Receiver) State() ConnState {
	return ConnState(r.state.Load())
}

// Meta returns component metadata
func (r *Receiver) Meta() component.Metadata {
	return component.Metadata{
		Name:        r.name,
		Type:        "input",
		Description: "Stream receiver for the meetup RSVP feed",
		Version:     "1.0.0",
	}
}

// Health returns current health status
func (r *Receiver) Health() component.HealthStatus {
	started := r.started.Load()
	uptime := time.Duration(0)
	if started && !r.startTime.IsZero() {
		uptime = time.Since(r.startTime)
	}

	return component.HealthStatus{
		Healthy:    started && r.State() == StateStreaming,
		LastCheck:  time.Now(),
		ErrorCount: int(r.errorCount.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (r *Receiver) DataFlow() component.FlowMetrics {
	frames := r.framesReceived.Load()

	var framesPerSecond float64
	if !r.startTime.IsZero() {
		uptime := time.Since(r.startTime).Seconds()
		if uptime > 0 {
			framesPerSecond = float64(frames) / uptime
		}
	}

	lastAct := time.Time{}
	if val := r.lastActivity.Load(); val != nil {
		lastAct = val.(time.Time)
	}

	return component.FlowMetrics{
		EventsPerSecond: framesPerSecond,
		BytesPerSecond:  0, // Not tracking a rate, only the total
		LastActivity:    lastAct,
	}
}

// Initialize initializes the component (no-op; setup happens in NewReceiver)
func (r *Receiver) Initialize() error {
	return nil
}

// Start begins the connect loop
func (r *Receiver) Start(ctx context.Context) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if r.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Receiver", "Start", "check started state")
	}

	receiverCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.connectLoop(receiverCtx)

	r.startTime = time.Now()
	r.started.Store(true)
	return nil
}

// Stop aborts in-flight reads, closes the connection, and stops the
// reconnect loop. The frame queue is closed so the pipeline can drain
// what was already framed.
func (r *Receiver) Stop(timeout time.Duration) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if !r.started.Load() {
		return nil // Already stopped
	}

	r.shutdownOnce.Do(func() {
		close(r.shutdown)
	})
	if r.cancel != nil {
		r.cancel()
	}

	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		// Clean shutdown
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrShuttingDown, "Receiver", "Stop", "wait for connect loop")
	}

	r.frames.Close()
	r.setState(StateDisconnected)
	r.started.Store(false)
	return nil
}

// connectLoop maintains the connection for the life of the receiver:
// connect, stream frames into the queue, back off on failure, repeat.
// Only cancellation ends the loop.
func (r *Receiver) connectLoop(ctx context.Context) {
	defer r.wg.Done()

	bo := backoff.New(r.config.Backoff)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		default:
		}

		connID := uuid.NewString()
		r.setState(StateConnecting)
		r.logger.Debug("connecting to feed",
			"endpoint", r.config.Endpoint,
			"transport", r.transport.name(),
			"conn_id", connID,
			"attempt", bo.Attempt()+1)

		err := r.transport.stream(ctx,
			func() {
				r.setState(StateStreaming)
				bo.Reset()
				r.logger.Info("feed connected",
					"endpoint", r.config.Endpoint,
					"conn_id", connID)
			},
			func(frame []byte) error {
				return r.handleFrame(ctx, frame)
			},
		)

		if ctx.Err() != nil {
			return
		}

		r.errorCount.Add(1)
		if r.metrics != nil {
			r.metrics.connectErrors.WithLabelValues(errors.Classify(err).String()).Inc()
			r.metrics.reconnects.Inc()
		}
		r.reconnects.Add(1)

		r.setState(StateBackoff)
		delay := bo.Next()
		r.logger.Warn("feed connection lost, backing off",
			"conn_id", connID,
			"error", err,
			"attempt", bo.Attempt(),
			"backoff", delay)

		if err := backoff.Sleep(ctx, delay); err != nil {
			return
		}
	}
}

// handleFrame filters heartbeats and puts real frames on the queue.
// Put blocks while the queue is full, which suspends transport reads and
// propagates backpressure to the socket.
func (r *Receiver) handleFrame(ctx context.Context, frame []byte) error {
	if len(bytes.TrimSpace(frame)) == 0 {
		// Heartbeat keep-alive, filtered before decoding
		r.heartbeats.Add(1)
		if r.metrics != nil {
			r.metrics.heartbeats.Inc()
		}
		return nil
	}

	if err := r.frames.Put(ctx, frame); err != nil {
		return err
	}

	r.framesReceived.Add(1)
	r.bytesReceived.Add(int64(len(frame)))
	r.lastActivity.Store(time.Now())

	if r.metrics != nil {
		r.metrics.framesReceived.Inc()
		r.metrics.bytesReceived.Add(float64(len(frame)))
		r.metrics.queueDepth.Set(float64(r.frames.Len()))
	}
	return nil
}

func (r *Receiver) setState(s ConnState) {
	r.state.Store(int32(s))
	if r.metrics != nil {
		r.metrics.connectionState.Set(float64(s))
	}
}

// Package pipeline connects the stream receiver to a sink: it consumes
// frames from the receiver's bounded queue, decodes them, and delivers
// events downstream in wire order.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/errors"
	"github.com/c360/rsvpstream/event"
	"github.com/c360/rsvpstream/metric"
	"github.com/c360/rsvpstream/output"
	"github.com/c360/rsvpstream/pkg/queue"
)

// Metrics holds Prometheus metrics for the pipeline
type Metrics struct {
	eventsDelivered prometheus.Counter
	decodeErrors    *prometheus.CounterVec
	sinkErrors      prometheus.Counter
}

// newMetrics creates and registers pipeline metrics
func newMetrics(registry *metric.MetricsRegistry, componentName string) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		eventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rsvpstream",
			Subsystem: "pipeline",
			Name:      "events_delivered_total",
			Help:      "Total decoded events delivered to the sink",
		}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rsvpstream",
			Subsystem: "pipeline",
			Name:      "decode_errors_total",
			Help:      "Frames dropped due to decode failure, by reason",
		}, []string{"reason"}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rsvpstream",
			Subsystem: "pipeline",
			Name:      "sink_errors_total",
			Help:      "Events the sink failed to accept",
		}),
	}

	registry.RegisterCounter(componentName, "events_delivered", metrics.eventsDelivered)
	registry.RegisterCounterVec(componentName, "decode_errors", metrics.decodeErrors)
	registry.RegisterCounter(componentName, "sink_errors", metrics.sinkErrors)

	return metrics
}

// Pipeline decodes frames from a receiver's queue and hands events to the
// sink. A single worker preserves delivery order. Decode failures drop the
// frame, bump a counter, and never halt the stream.
type Pipeline struct {
	name   string
	source *queue.Queue[[]byte]
	sink   output.Sink
	logger *slog.Logger

	// Lifecycle management
	shutdown     chan struct{}
	shutdownOnce sync.Once
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	lifecycleMu  sync.Mutex
	started      atomic.Bool
	startTime    time.Time

	// Statistics
	eventsDelivered atomic.Int64
	decodeErrors    atomic.Int64
	sinkErrors      atomic.Int64
	lastActivity    atomic.Value // stores time.Time

	// Prometheus metrics
	metrics *Metrics
}

// Ensure Pipeline implements all required interfaces
var _ component.LifecycleComponent = (*Pipeline)(nil)

// New creates a pipeline reading from source and delivering to sink
func New(source *queue.Queue[[]byte], sink output.Sink, deps component.Dependencies) *Pipeline {
	name := "pipeline"
	return &Pipeline{
		name:     name,
		source:   source,
		sink:     sink,
		logger:   deps.GetLoggerWithComponent(name),
		shutdown: make(chan struct{}),
		metrics:  newMetrics(deps.MetricsRegistry, name),
	}
}

// EventsDelivered returns the number of events handed to the sink
func (p *Pipeline) EventsDelivered() int64 {
	return p.eventsDelivered.Load()
}

// DecodeErrors returns the number of frames dropped during decoding
func (p *Pipeline) DecodeErrors() int64 {
	return p.decodeErrors.Load()
}

// Meta returns component metadata
func (p *Pipeline) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "pipeline",
		Description: "Decodes frames and delivers events to the configured sink",
		Version:     "1.0.0",
	}
}

// Health returns current health status
func (p *Pipeline) Health() component.HealthStatus {
	started := p.started.Load()
	uptime := time.Duration(0)
	if started && !p.startTime.IsZero() {
		uptime = time.Since(p.startTime)
	}

	return component.HealthStatus{
		Healthy:    started,
		LastCheck:  time.Now(),
		ErrorCount: int(p.decodeErrors.Load() + p.sinkErrors.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (p *Pipeline) DataFlow() component.FlowMetrics {
	delivered := p.eventsDelivered.Load()
	dropped := p.decodeErrors.Load()

	var errorRate float64
	if delivered+dropped > 0 {
		errorRate = float64(dropped) / float64(delivered+dropped)
	}

	var eventsPerSecond float64
	if !p.startTime.IsZero() {
		uptime := time.Since(p.startTime).Seconds()
		if uptime > 0 {
			eventsPerSecond = float64(delivered) / uptime
		}
	}

	lastAct := time.Time{}
	if val := p.lastActivity.Load(); val != nil {
		lastAct = val.(time.Time)
	}

	return component.FlowMetrics{
		EventsPerSecond: eventsPerSecond,
		ErrorRate:       errorRate,
		LastActivity:    lastAct,
	}
}

// Initialize initializes the component
func (p *Pipeline) Initialize() error {
	if p.source == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "Pipeline", "Initialize", "frame source required")
	}
	if p.sink == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "Pipeline", "Initialize", "sink required")
	}
	return nil
}

// Start begins the decode worker
func (p *Pipeline) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Pipeline", "Start", "check started state")
	}

	pipelineCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processFrames(pipelineCtx)

	p.startTime = time.Now()
	p.started.Store(true)
	return nil
}

// Stop drains buffered frames and stops the worker
func (p *Pipeline) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started.Load() {
		return nil
	}

	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})

	doneCh := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		// Clean shutdown
	case <-time.After(timeout):
		if p.cancel != nil {
			p.cancel()
		}
		return errors.WrapTransient(errors.ErrShuttingDown, "Pipeline", "Stop", "wait for worker")
	}

	if p.cancel != nil {
		p.cancel()
	}
	p.started.Store(false)
	return nil
}

// processFrames is the single decode worker. It blocks on the queue while
// the receiver is quiet and on the sink while it is slow; both directions
// of backpressure meet here.
func (p *Pipeline) processFrames(ctx context.Context) {
	defer p.wg.Done()

	// Shutdown must wake a worker blocked on the queue
	getCtx, getCancel := context.WithCancel(ctx)
	defer getCancel()
	go func() {
		select {
		case <-p.shutdown:
			getCancel()
		case <-getCtx.Done():
		}
	}()

	// Deliveries are decoupled from the caller's context: a frame taken
	// off the wire is handed to the sink even while shutdown is already
	// cancelling the rest of the process
	deliverCtx := context.WithoutCancel(ctx)

	for {
		frame, err := p.source.Get(getCtx)
		if err != nil {
			// Drain only when shutdown was requested or the receiver
			// closed the queue; bare cancellation abandons the buffer
			select {
			case <-p.shutdown:
				p.drain()
			default:
				if p.source.Closed() {
					p.drain()
				}
			}
			return
		}

		p.handleFrame(deliverCtx, frame)
	}
}

// drain processes frames that were already queued when shutdown began, so
// every frame received on the wire is accounted for, bounded by a timeout.
func (p *Pipeline) drain() {
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		if drainCtx.Err() != nil {
			if n := p.source.Len(); n > 0 {
				p.logger.Warn("drain timeout, frames remain", "remaining", n)
			}
			return
		}

		frame, ok := p.source.TryGet()
		if !ok {
			return
		}
		p.handleFrame(drainCtx, frame)
	}
}

// handleFrame decodes one frame and delivers the event to the sink
func (p *Pipeline) handleFrame(ctx context.Context, frame []byte) {
	ev, derr := event.Decode(frame)
	if derr != nil {
		p.decodeErrors.Add(1)
		if p.metrics != nil {
			p.metrics.decodeErrors.WithLabelValues(derr.Reason).Inc()
		}
		p.logger.Debug("frame dropped",
			"reason", derr.Reason,
			"field", derr.Field,
			"frame_bytes", len(derr.Frame))
		return
	}

	if err := p.sink.Accept(ctx, ev); err != nil {
		p.sinkErrors.Add(1)
		if p.metrics != nil {
			p.metrics.sinkErrors.Inc()
		}
		p.logger.Warn("sink rejected event", "rsvp_id", ev.RSVPID, "error", err)
		return
	}

	p.eventsDelivered.Add(1)
	p.lastActivity.Store(time.Now())
	if p.metrics != nil {
		p.metrics.eventsDelivered.Inc()
	}
}

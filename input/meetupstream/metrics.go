package meetupstream

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/rsvpstream/metric"
)

// Metrics holds Prometheus metrics for the stream receiver
type Metrics struct {
	framesReceived  prometheus.Counter
	bytesReceived   prometheus.Counter
	heartbeats      prometheus.Counter
	reconnects      prometheus.Counter
	connectErrors   *prometheus.CounterVec
	connectionState prometheus.Gauge
	queueDepth      prometheus.Gauge
}

// newMetrics creates and registers receiver metrics.
// Returns nil if no registry is provided (nil input = nil feature pattern).
func newMetrics(registry *metric.MetricsRegistry, componentName string) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rsvpstream",
			Subsystem: "receiver",
			Name:      "frames_received_total",
			Help:      "Total frames received from the feed",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rsvpstream",
			Subsystem: "receiver",
			Name:      "bytes_received_total",
			Help:      "Total frame bytes received from the feed",
		}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rsvpstream",
			Subsystem: "receiver",
			Name:      "heartbeats_total",
			Help:      "Empty keep-alive frames filtered before decoding",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rsvpstream",
			Subsystem: "receiver",
			Name:      "reconnects_total",
			Help:      "Total reconnection attempts",
		}),
		connectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rsvpstream",
			Subsystem: "receiver",
			Name:      "connect_errors_total",
			Help:      "Connection failures by type",
		}, []string{"type"}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rsvpstream",
			Subsystem: "receiver",
			Name:      "connection_state",
			Help:      "Connection state (0=disconnected, 1=connecting, 2=streaming, 3=backoff)",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rsvpstream",
			Subsystem: "receiver",
			Name:      "queue_depth",
			Help:      "Current frame queue depth",
		}),
	}

	registry.RegisterCounter(componentName, "frames_received", metrics.framesReceived)
	registry.RegisterCounter(componentName, "bytes_received", metrics.bytesReceived)
	registry.RegisterCounter(componentName, "heartbeats", metrics.heartbeats)
	registry.RegisterCounter(componentName, "reconnects", metrics.reconnects)
	registry.RegisterCounterVec(componentName, "connect_errors", metrics.connectErrors)
	registry.RegisterGauge(componentName, "connection_state", metrics.connectionState)
	registry.RegisterGauge(componentName, "queue_depth", metrics.queueDepth)

	return metrics
}

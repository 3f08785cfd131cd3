// Package output defines the sink contract consumed by the ingestion
// pipeline. Concrete sinks live in subpackages (console, file, natspub).
package output

import (
	"context"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/event"
)

// Sink is the downstream consumer of decoded events.
//
// Accept must not block indefinitely: it honors ctx cancellation, and any
// internal queueing is bounded. The pipeline propagates backpressure by
// calling Accept synchronously: a slow sink suspends frame production
// upstream rather than dropping events.
type Sink interface {
	component.LifecycleComponent

	Accept(ctx context.Context, ev event.Event) error
}

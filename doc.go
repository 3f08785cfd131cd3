// Package rsvpstream implements a long-lived receiver for the public
// Meetup RSVP firehose.
//
// # Overview
//
// rsvpstream connects to the streaming RSVP endpoint, keeps the connection
// alive across failures with exponential backoff, frames the byte stream
// into newline-delimited JSON records, decodes each record into a typed
// event, and delivers events to a configured sink. The process runs until
// cancelled; a lost connection is an expected condition, not an error that
// stops the program.
//
// # Architecture
//
// Data flows through three components connected by one bounded queue:
//
//	┌──────────────┐     ┌───────────────┐     ┌──────────────┐
//	│   Receiver   │ ──→ │   Pipeline    │ ──→ │     Sink     │
//	│ (connection, │     │ (decode, one  │     │ (console,    │
//	│  framing,    │     │  worker, wire │     │  file, or    │
//	│  reconnect)  │     │  order)       │     │  NATS)       │
//	└──────────────┘     └───────────────┘     └──────────────┘
//	        └── bounded frame queue ──┘
//
// The queue between receiver and pipeline is the backpressure point: when
// the sink is slow the queue fills, the receiver's Put blocks, and socket
// reads suspend. Frames are never dropped to keep up.
//
// # Packages
//
// Core data path:
//   - input/meetupstream: connection management, framing, reconnect
//   - event: wire record decoding with explicit field presence
//   - pipeline: decode worker connecting receiver to sink
//   - output/console, output/file, output/natspub: sinks
//
// Infrastructure:
//   - component: lifecycle and observability interfaces
//   - config: file-based configuration (JSON or YAML)
//   - errors: classified error handling
//   - metric: Prometheus registry and scrape endpoint
//   - pkg/backoff: reconnect delay policy
//   - pkg/queue: bounded blocking queue
//
// # Binary
//
// Run against the public feed, printing events to stdout:
//
//	./bin/rsvpstream
//
// Write events to jsonl files instead:
//
//	./bin/rsvpstream /var/data/rsvps
package rsvpstream

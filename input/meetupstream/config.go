package meetupstream

import (
	"fmt"
	"net/url"

	"github.com/c360/rsvpstream/errors"
	"github.com/c360/rsvpstream/pkg/backoff"
)

// Transport selects how the receiver connects to the feed
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// DefaultEndpoint is the public RSVP firehose
const DefaultEndpoint = "http://stream.meetup.com/2/rsvps"

// Config holds configuration for the stream receiver
type Config struct {
	// Endpoint is the streaming feed URL. http(s) scheme for the chunked
	// HTTP transport, ws(s) for the websocket transport.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Transport is "http" or "websocket"
	Transport string `json:"transport" yaml:"transport"`

	// Headers is the static header set sent on every connection attempt
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Backoff configures the reconnect delay policy
	Backoff backoff.Config `json:"backoff" yaml:"backoff"`

	// QueueCapacity bounds the frame queue between framing and decoding
	QueueCapacity int `json:"queue_capacity" yaml:"queue_capacity"`

	// MaxFrameBytes bounds a single buffered frame; 0 means unlimited
	MaxFrameBytes int `json:"max_frame_bytes" yaml:"max_frame_bytes"`
}

// DefaultConfig returns the receiver defaults for the public RSVP feed
func DefaultConfig() Config {
	return Config{
		Endpoint:      DefaultEndpoint,
		Transport:     TransportHTTP,
		Backoff:       backoff.DefaultConfig(),
		QueueCapacity: 256,
		MaxFrameBytes: 1 << 20,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "endpoint is required")
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "parse endpoint")
	}

	switch c.Transport {
	case TransportHTTP:
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.WrapInvalid(
				fmt.Errorf("endpoint scheme %q incompatible with http transport", u.Scheme),
				"Config", "Validate", "check endpoint scheme")
		}
	case TransportWebSocket:
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return errors.WrapInvalid(
				fmt.Errorf("endpoint scheme %q incompatible with websocket transport", u.Scheme),
				"Config", "Validate", "check endpoint scheme")
		}
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown transport: %s", c.Transport),
			"Config", "Validate", "check transport")
	}

	if c.QueueCapacity < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("queue_capacity must be at least 1, got %d", c.QueueCapacity),
			"Config", "Validate", "check queue capacity")
	}

	if c.MaxFrameBytes < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("max_frame_bytes cannot be negative"),
			"Config", "Validate", "check max frame bytes")
	}

	return nil
}

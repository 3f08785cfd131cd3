package meetupstream

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/c360/rsvpstream/errors"
)

// transport opens one connection to the feed and delivers frames until the
// connection ends. The receiver owns the reconnect loop; a transport only
// ever handles a single connection attempt.
type transport interface {
	name() string

	// stream connects, calls onConnect once the feed is live, then invokes
	// emit for every frame in wire order. It returns when the connection
	// ends, emit fails, or ctx is cancelled. All returned errors except
	// emit's own are transient.
	stream(ctx context.Context, onConnect func(), emit func(frame []byte) error) error
}

// httpTransport reads the feed as a long-lived chunked HTTP response and
// frames it on newline boundaries.
type httpTransport struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
	framer   *Framer
}

func newHTTPTransport(cfg Config) *httpTransport {
	return &httpTransport{
		endpoint: cfg.Endpoint,
		headers:  cfg.Headers,
		// No overall timeout: the response body is an unbounded stream
		client: &http.Client{},
		framer: NewFramer(cfg.MaxFrameBytes),
	}
}

func (t *httpTransport) name() string { return TransportHTTP }

func (t *httpTransport) stream(ctx context.Context, onConnect func(), emit func(frame []byte) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		return errors.WrapInvalid(err, "httpTransport", "stream", "build request")
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.WrapTransient(err, "httpTransport", "stream", "connect")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.WrapTransient(
			fmt.Errorf("%w: %d", errors.ErrBadStatus, resp.StatusCode),
			"httpTransport", "stream", "check response status")
	}

	onConnect()

	// A partial trailing frame can never be completed by the next
	// connection: the feed has no resumption token
	defer t.framer.Discard()

	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			frames, ferr := t.framer.Push(buf[:n])
			for _, frame := range frames {
				if err := emit(frame); err != nil {
					return err
				}
			}
			if ferr != nil {
				return errors.WrapTransient(ferr, "httpTransport", "stream", "frame stream")
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return errors.WrapTransient(errors.ErrConnectionLost, "httpTransport", "stream", "read body")
			}
			return errors.WrapTransient(readErr, "httpTransport", "stream", "read body")
		}
	}
}

// wsTransport reads the feed over a websocket connection. Each message is
// one complete frame; no newline framing is needed.
type wsTransport struct {
	endpoint string
	headers  map[string]string
	dialer   *websocket.Dialer
}

func newWSTransport(cfg Config) *wsTransport {
	return &wsTransport{
		endpoint: cfg.Endpoint,
		headers:  cfg.Headers,
		dialer:   websocket.DefaultDialer,
	}
}

func (t *wsTransport) name() string { return TransportWebSocket }

func (t *wsTransport) stream(ctx context.Context, onConnect func(), emit func(frame []byte) error) error {
	header := http.Header{}
	for k, v := range t.headers {
		header.Set(k, v)
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.endpoint, header)
	if err != nil {
		if resp != nil {
			return errors.WrapTransient(
				fmt.Errorf("%w: %d", errors.ErrBadStatus, resp.StatusCode),
				"wsTransport", "stream", "dial")
		}
		return errors.WrapTransient(err, "wsTransport", "stream", "dial")
	}
	defer conn.Close()

	onConnect()

	// Close the connection on cancellation so the blocking read aborts
	// promptly instead of waiting for the next message
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.WrapTransient(err, "wsTransport", "stream", "read message")
		}
		if err := emit(message); err != nil {
			return err
		}
	}
}

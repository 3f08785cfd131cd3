package metric

import (
	"bytes"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// syncBuffer guards concurrent writes from the server goroutine against
// reads from the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServerLogsListenFailure(t *testing.T) {
	// Occupy a port so ListenAndServe fails
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	var out syncBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&out, nil)))
	defer slog.SetDefault(prev)

	s := NewServer(port, "/metrics", NewMetricsRegistry())
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop(time.Second) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "metrics server failed")
	}, 2*time.Second, 10*time.Millisecond, "a port collision must not be silent")
}

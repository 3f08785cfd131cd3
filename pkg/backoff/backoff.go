// Package backoff provides exponential backoff with jitter for reconnect loops
package backoff

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config provides backoff configuration
type Config struct {
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Upper bound on the delay between attempts
	Multiplier   float64       // Growth factor between attempts (typically 2.0)
	Jitter       float64       // Fractional jitter applied to each delay (0.2 = ±20%)
}

// DefaultConfig returns the reconnect policy used by stream receivers:
// base 1s, cap 30s, ±20% jitter, unbounded attempts.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// Backoff tracks consecutive failures and produces the next delay.
// Not safe for concurrent use; each connection loop owns its own Backoff.
type Backoff struct {
	cfg     Config
	attempt int
}

// New creates a Backoff from the given config, applying defaults for
// unset fields.
func New(cfg Config) *Backoff {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 1 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2.0
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 1 {
		cfg.Jitter = 0.2
	}
	return &Backoff{cfg: cfg}
}

// Next returns the delay to wait before the next attempt and advances
// the attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := float64(b.cfg.InitialDelay)
	for i := 0; i < b.attempt; i++ {
		delay *= b.cfg.Multiplier
		if delay >= float64(b.cfg.MaxDelay) {
			delay = float64(b.cfg.MaxDelay)
			break
		}
	}
	b.attempt++

	if b.cfg.Jitter > 0 {
		randMu.Lock()
		// Uniform in [-jitter, +jitter]
		factor := 1 + b.cfg.Jitter*(2*randSource.Float64()-1)
		randMu.Unlock()
		delay *= factor
	}

	d := time.Duration(delay)
	if d < 0 {
		d = b.cfg.MaxDelay
	}
	return d
}

// Attempt returns the number of delays handed out since the last Reset.
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Reset clears the attempt counter after a successful connection.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Sleep waits for d or until the context is cancelled.
// Returns the context error on cancellation, nil after a full sleep.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

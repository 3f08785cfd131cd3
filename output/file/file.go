// Package file provides the persistent-storage sink: batched jsonl writes
// to a directory on disk.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/errors"
	"github.com/c360/rsvpstream/event"
	"github.com/c360/rsvpstream/output"
)

// Config holds configuration for the file sink
type Config struct {
	Directory     string        `json:"directory" yaml:"directory"`
	FilePrefix    string        `json:"file_prefix" yaml:"file_prefix"`
	BatchSize     int           `json:"batch_size" yaml:"batch_size"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
	Append        bool          `json:"append" yaml:"append"`
}

// DefaultConfig returns default configuration for the file sink
func DefaultConfig(directory string) Config {
	return Config{
		Directory:     directory,
		FilePrefix:    "rsvps",
		BatchSize:     100,
		FlushInterval: 1 * time.Second,
		Append:        true,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Directory == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "directory is required")
	}
	if c.BatchSize < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"batch_size must be at least 1")
	}
	if c.FlushInterval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"flush_interval must be positive")
	}
	return nil
}

// Sink writes decoded events to a jsonl file under the configured
// directory. Events accumulate in a bounded in-memory batch flushed when
// full and on a ticker, so slow disks see large sequential writes instead
// of per-event syscalls.
type Sink struct {
	name   string
	config Config
	logger *slog.Logger

	// File handling
	file   *os.File
	fileMu sync.Mutex

	// Batch of encoded events awaiting flush
	batch   [][]byte
	batchMu sync.Mutex

	// Lifecycle management
	shutdown    chan struct{}
	closeOnce   sync.Once
	running     atomic.Bool
	startTime   time.Time
	lifecycleMu sync.Mutex
	wg          sync.WaitGroup

	// Statistics
	eventsWritten atomic.Int64
	bytesWritten  atomic.Int64
	writeErrors   atomic.Int64
	lastActivity  atomic.Value // stores time.Time
}

// Ensure Sink implements the sink contract
var _ output.Sink = (*Sink)(nil)

// NewSink creates a file sink from configuration
func NewSink(config Config, deps component.Dependencies) (*Sink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	name := "file-sink"
	return &Sink{
		name:     name,
		config:   config,
		logger:   deps.GetLoggerWithComponent(name),
		batch:    make([][]byte, 0, config.BatchSize),
		shutdown: make(chan struct{}),
	}, nil
}

// Initialize prepares the output directory
func (s *Sink) Initialize() error {
	if err := os.MkdirAll(s.config.Directory, 0755); err != nil {
		return errors.WrapFatal(err, "Sink", "Initialize", "create output directory")
	}
	return nil
}

// Start opens the output file and begins the flush loop
func (s *Sink) Start(_ context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Sink", "Start", "check running state")
	}

	filename := filepath.Join(s.config.Directory, fmt.Sprintf("%s.jsonl", s.config.FilePrefix))
	flags := os.O_CREATE | os.O_WRONLY
	if s.config.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	var err error
	s.file, err = os.OpenFile(filename, flags, 0644)
	if err != nil {
		return errors.WrapFatal(err, "Sink", "Start", "open output file")
	}

	s.wg.Add(1)
	go s.flushLoop()

	s.startTime = time.Now()
	s.running.Store(true)

	s.logger.Info("file sink started",
		"output_file", filename,
		"batch_size", s.config.BatchSize,
		"flush_interval", s.config.FlushInterval,
		"append", s.config.Append)

	return nil
}

// Accept encodes one event and adds it to the batch, flushing when full
func (s *Sink) Accept(ctx context.Context, ev event.Event) error {
	if !s.running.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted, "Sink", "Accept", "check running state")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		s.writeErrors.Add(1)
		return errors.WrapInvalid(err, "Sink", "Accept", "encode event")
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, data)
	shouldFlush := len(s.batch) >= s.config.BatchSize
	s.batchMu.Unlock()

	if shouldFlush {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.flush()
	}

	s.eventsWritten.Add(1)
	s.lastActivity.Store(time.Now())
	return nil
}

// Stop flushes remaining events and closes the file
func (s *Sink) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running.Load() {
		return nil
	}

	s.closeOnce.Do(func() {
		close(s.shutdown)
	})

	waitCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		// Clean shutdown
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrShuttingDown, "Sink", "Stop", "wait for flush loop")
	}

	// Flush whatever the last tick missed
	s.flush()

	s.fileMu.Lock()
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			s.logger.Warn("failed to close output file", "error", err, "path", s.file.Name())
		}
		s.file = nil
	}
	s.fileMu.Unlock()

	s.running.Store(false)
	return nil
}

// flushLoop periodically flushes the batch
func (s *Sink) flushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush writes batched events to the file
func (s *Sink) flush() {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	events := s.batch
	s.batch = make([][]byte, 0, s.config.BatchSize)
	s.batchMu.Unlock()

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if s.file == nil {
		s.writeErrors.Add(int64(len(events)))
		s.logger.Error("file handle is nil during flush", "events_lost", len(events))
		return
	}

	for _, data := range events {
		n, err := s.file.Write(append(data, '\n'))
		if err != nil {
			s.writeErrors.Add(1)
			s.logger.Error("failed to write event to file", "error", err)
			continue
		}
		s.bytesWritten.Add(int64(n))
	}

	s.logger.Debug("batch flushed",
		"events", len(events),
		"total_written", s.eventsWritten.Load())
}

// Meta returns component metadata
func (s *Sink) Meta() component.Metadata {
	return component.Metadata{
		Name:        s.name,
		Type:        "output",
		Description: "File sink writing events to disk in jsonl format",
		Version:     "1.0.0",
	}
}

// Health returns current health status
func (s *Sink) Health() component.HealthStatus {
	running := s.running.Load()

	s.fileMu.Lock()
	fileOpen := s.file != nil
	s.fileMu.Unlock()

	uptime := time.Duration(0)
	if running && !s.startTime.IsZero() {
		uptime = time.Since(s.startTime)
	}

	return component.HealthStatus{
		Healthy:    running && fileOpen,
		LastCheck:  time.Now(),
		ErrorCount: int(s.writeErrors.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (s *Sink) DataFlow() component.FlowMetrics {
	written := s.eventsWritten.Load()
	errorCount := s.writeErrors.Load()

	var errorRate float64
	if written > 0 {
		errorRate = float64(errorCount) / float64(written)
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

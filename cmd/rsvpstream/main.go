// Package main implements the entry point for the rsvpstream application.
// rsvpstream is a long-lived receiver that consumes the public Meetup RSVP
// firehose, decodes each record, and delivers it to a configured sink.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/rsvpstream/component"
	"github.com/c360/rsvpstream/config"
	"github.com/c360/rsvpstream/input/meetupstream"
	"github.com/c360/rsvpstream/metric"
	"github.com/c360/rsvpstream/output"
	"github.com/c360/rsvpstream/output/console"
	"github.com/c360/rsvpstream/output/file"
	"github.com/c360/rsvpstream/output/natspub"
	"github.com/c360/rsvpstream/pipeline"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "rsvpstream"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	// The logger predates the config file; rebuild it if the file set a
	// different level
	if cfg.LogLevel != cliCfg.LogLevel {
		slog.SetDefault(setupLogger(cfg.LogLevel, cliCfg.LogFormat))
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	deps, metricsServer := setupMetrics(cfg)

	sink, err := buildSink(cfg, deps)
	if err != nil {
		return err
	}

	receiver, err := meetupstream.NewReceiver(cfg.Receiver, deps)
	if err != nil {
		return fmt.Errorf("create receiver: %w", err)
	}

	pipe := pipeline.New(receiver.Frames(), sink, deps)

	return runWithSignalHandling(receiver, pipe, sink, metricsServer, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg, err := parseFlags()
	if err != nil {
		return nil, false, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting rsvpstream",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, false, nil
}

// initializeConfiguration loads the config file if given, then applies
// command-line overrides
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg := config.Default()
	if cliCfg.ConfigPath != "" {
		loaded, err := config.Load(cliCfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	// The positional output directory selects the file sink regardless of
	// what the config file says
	if cliCfg.OutputDir != "" {
		cfg.Sink.Type = config.SinkFile
		if cfg.Sink.File.Directory == "" || cfg.Sink.File.Directory != cliCfg.OutputDir {
			fileCfg := file.DefaultConfig(cliCfg.OutputDir)
			if cfg.Sink.File.BatchSize > 0 {
				fileCfg.BatchSize = cfg.Sink.File.BatchSize
			}
			if cfg.Sink.File.FlushInterval > 0 {
				fileCfg.FlushInterval = cfg.Sink.File.FlushInterval
			}
			cfg.Sink.File = fileCfg
		}
	}

	if cliCfg.MetricsPort > 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
	}
	// An explicit flag, env var, or -debug wins; otherwise the config
	// file's log_level stands
	if cliCfg.LogLevelSet || cfg.LogLevel == "" {
		cfg.LogLevel = cliCfg.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupMetrics creates the metrics registry and, when enabled, the
// Prometheus scrape server
func setupMetrics(cfg *config.Config) (component.Dependencies, *metric.Server) {
	deps := component.Dependencies{
		Logger: slog.Default(),
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		registry := metric.NewMetricsRegistry()
		deps.MetricsRegistry = registry
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	}

	return deps, metricsServer
}

// buildSink constructs the configured output sink
func buildSink(cfg *config.Config, deps component.Dependencies) (output.Sink, error) {
	switch cfg.Sink.Type {
	case config.SinkConsole:
		return console.NewSink(deps), nil
	case config.SinkFile:
		s, err := file.NewSink(cfg.Sink.File, deps)
		if err != nil {
			return nil, fmt.Errorf("create file sink: %w", err)
		}
		return s, nil
	case config.SinkNATS:
		s, err := natspub.NewSink(cfg.Sink.NATS, deps)
		if err != nil {
			return nil, fmt.Errorf("create nats sink: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Sink.Type)
	}
}

// runWithSignalHandling starts all components and blocks until a shutdown
// signal arrives, then stops them in reverse order
func runWithSignalHandling(
	receiver *meetupstream.Receiver,
	pipe *pipeline.Pipeline,
	sink output.Sink,
	metricsServer *metric.Server,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	// Components do not run on the signal context: cancelling it mid-drain
	// would poison in-flight sink deliveries. Shutdown happens through the
	// Stop chain below, which each component cancels internally.
	componentCtx := context.Background()

	if metricsServer != nil {
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	// Initialize and start in data-flow order: sink first so the pipeline
	// never delivers into a stopped sink, receiver last so frames only
	// arrive once the rest of the chain is running
	components := []struct {
		name string
		c    component.LifecycleComponent
	}{
		{"sink", sink},
		{"pipeline", pipe},
		{"receiver", receiver},
	}

	started := make([]component.LifecycleComponent, 0, len(components))
	for _, entry := range components {
		if err := entry.c.Initialize(); err != nil {
			stopAll(started, shutdownTimeout)
			return fmt.Errorf("initialize %s: %w", entry.name, err)
		}
		if err := entry.c.Start(componentCtx); err != nil {
			stopAll(started, shutdownTimeout)
			return fmt.Errorf("start %s: %w", entry.name, err)
		}
		started = append(started, entry.c)
	}

	slog.Info("rsvpstream started")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	// Reverse order: receiver stops producing and closes the frame queue,
	// the pipeline drains what is buffered, then the sink flushes
	stopAll(started, shutdownTimeout)

	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownTimeout); err != nil {
			slog.Warn("metrics server stop failed", "error", err)
		}
	}

	slog.Info("rsvpstream shutdown complete")
	return nil
}

// stopAll stops components in reverse start order
func stopAll(started []component.LifecycleComponent, timeout time.Duration) {
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(timeout); err != nil {
			slog.Error("component stop failed", "error", err)
		}
	}
}

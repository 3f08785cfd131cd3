package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath string
	LogLevel   string
	// LogLevelSet records whether the level came from the flag, the env
	// var, or -debug, as opposed to the built-in default. Only an explicit
	// level overrides the config file's log_level.
	LogLevelSet     bool
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	MetricsPort     int
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool

	// OutputDir is the optional positional argument. When set, events go
	// to jsonl files under this directory instead of the console.
	OutputDir string
}

func parseFlags() (*CLIConfig, error) {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("RSVPSTREAM_CONFIG", ""),
		"Path to configuration file, JSON or YAML (env: RSVPSTREAM_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("RSVPSTREAM_CONFIG", ""),
		"Path to configuration file, JSON or YAML (env: RSVPSTREAM_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("RSVPSTREAM_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: RSVPSTREAM_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("RSVPSTREAM_LOG_FORMAT", "json"),
		"Log format: json, text (env: RSVPSTREAM_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("RSVPSTREAM_DEBUG", false),
		"Enable debug mode (env: RSVPSTREAM_DEBUG)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("RSVPSTREAM_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: RSVPSTREAM_SHUTDOWN_TIMEOUT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("RSVPSTREAM_METRICS_PORT", 0),
		"Prometheus metrics port override, 0 uses config (env: RSVPSTREAM_METRICS_PORT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "log-level" {
			cfg.LogLevelSet = true
		}
	})
	if os.Getenv("RSVPSTREAM_LOG_LEVEL") != "" {
		cfg.LogLevelSet = true
	}

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
		cfg.LogLevelSet = true
	}

	// At most one positional argument: an output directory for the file sink
	switch flag.NArg() {
	case 0:
	case 1:
		cfg.OutputDir = flag.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one output directory argument, got %d", flag.NArg())
	}

	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.OutputDir != "" {
		info, err := os.Stat(cfg.OutputDir)
		if err == nil && !info.IsDir() {
			return fmt.Errorf("output path is not a directory: %s", cfg.OutputDir)
		}
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - RSVP Stream Receiver

Usage: %s [options] [output-directory]

With no output directory, decoded events are printed to stdout as JSON
lines. With an output directory, events are written to jsonl files in
that directory instead.

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Stream events to the console
  %s

  # Stream events to jsonl files under ./out
  %s ./out

  # Run against a custom feed with debug logging
  %s --config=/etc/rsvpstream/config.yaml --log-level=debug --log-format=text

  # Validate configuration only
  %s --config=/etc/rsvpstream/config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

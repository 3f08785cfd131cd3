package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/rsvpstream/errors"
	"github.com/c360/rsvpstream/input/meetupstream"
	"github.com/c360/rsvpstream/output/file"
	"github.com/c360/rsvpstream/output/natspub"
)

// Sink type constants
const (
	SinkConsole = "console"
	SinkFile    = "file"
	SinkNATS    = "nats"
)

// SinkConfig selects and configures the output sink
type SinkConfig struct {
	Type string         `json:"type" yaml:"type"`
	File file.Config    `json:"file,omitempty" yaml:"file,omitempty"`
	NATS natspub.Config `json:"nats,omitempty" yaml:"nats,omitempty"`
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// Config represents the complete application configuration
type Config struct {
	Receiver meetupstream.Config `json:"receiver" yaml:"receiver"`
	Sink     SinkConfig          `json:"sink" yaml:"sink"`
	Metrics  MetricsConfig       `json:"metrics" yaml:"metrics"`
	LogLevel string              `json:"log_level" yaml:"log_level"`
}

// Default returns the configuration used when no config file is given:
// the public RSVP endpoint feeding the console sink, metrics enabled.
func Default() *Config {
	return &Config{
		Receiver: meetupstream.DefaultConfig(),
		Sink: SinkConfig{
			Type: SinkConsole,
			NATS: natspub.DefaultConfig(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from a JSON or YAML file, selected by
// extension, layered over Default
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator flags
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, "config", "Load",
				fmt.Sprintf("read %s", path))
		}
		return nil, errors.WrapFatal(err, "config", "Load", "read config file")
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse YAML config")
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse JSON config")
		}
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Load",
			fmt.Sprintf("unsupported config extension %q", filepath.Ext(path)))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := c.Receiver.Validate(); err != nil {
		return err
	}

	switch c.Sink.Type {
	case SinkConsole:
		// No sink-specific settings
	case SinkFile:
		if err := c.Sink.File.Validate(); err != nil {
			return err
		}
	case SinkNATS:
		if err := c.Sink.NATS.Validate(); err != nil {
			return err
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown sink type %q", c.Sink.Type))
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("metrics port %d out of range", c.Metrics.Port))
		}
		if c.Metrics.Path == "" || !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"metrics path must start with /")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	return nil
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rsvpstream/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfigFileLogLevelStandsWithoutExplicitFlag(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")

	cfg, err := initializeConfiguration(&CLIConfig{
		ConfigPath: path,
		LogLevel:   "info", // built-in default, not explicitly set
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestExplicitLogLevelOverridesConfigFile(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")

	cfg, err := initializeConfiguration(&CLIConfig{
		ConfigPath:  path,
		LogLevel:    "warn",
		LogLevelSet: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestNoConfigFileUsesCLILogLevel(t *testing.T) {
	cfg, err := initializeConfiguration(&CLIConfig{LogLevel: "info"})
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestOutputDirSelectsFileSink(t *testing.T) {
	dir := t.TempDir()

	cfg, err := initializeConfiguration(&CLIConfig{
		LogLevel:  "info",
		OutputDir: dir,
	})
	require.NoError(t, err)

	assert.Equal(t, config.SinkFile, cfg.Sink.Type)
	assert.Equal(t, dir, cfg.Sink.File.Directory)
}

func TestNoOutputDirKeepsConsoleSink(t *testing.T) {
	cfg, err := initializeConfiguration(&CLIConfig{LogLevel: "info"})
	require.NoError(t, err)
	assert.Equal(t, config.SinkConsole, cfg.Sink.Type)
}

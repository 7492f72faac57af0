// Package config provides configuration loading and validation for the
// registry server.
//
// Configuration can be provided via:
//   - Command line flags (highest priority)
//   - Environment variables (REGISTRY_ prefix)
//   - Configuration file (YAML or JSON)
//
// The registry root directory is fixed once at startup and never changes
// for the lifetime of the process.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the registry server.
type Config struct {
	// Listen is the address to listen on (e.g., ":8080", "127.0.0.1:8080").
	Listen string `json:"listen" yaml:"listen"`

	// Directory is the registry root: one subdirectory per package, each
	// holding one subdirectory per version. Defaults to the process
	// working directory.
	Directory string `json:"directory" yaml:"directory"`

	// Log configures logging.
	Log LogConfig `json:"log" yaml:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `json:"format" yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:    ":8080",
		Directory: ".",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a file (YAML or JSON).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		// Try YAML first, then JSON
		if err := yaml.Unmarshal(data, cfg); err != nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config (tried YAML and JSON): %w", err)
			}
		}
	}

	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to a Config.
// Environment variables use the REGISTRY_ prefix:
//   - REGISTRY_LISTEN
//   - REGISTRY_PORT
//   - REGISTRY_DIRECTORY
//   - REGISTRY_LOG_LEVEL
//   - REGISTRY_LOG_FORMAT
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("REGISTRY_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("REGISTRY_PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("REGISTRY_DIRECTORY"); v != "" {
		c.Directory = v
	}
	if v := os.Getenv("REGISTRY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REGISTRY_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Directory == "" {
		return fmt.Errorf("directory is required")
	}

	info, err := os.Stat(c.Directory)
	if err != nil {
		return fmt.Errorf("registry directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("registry directory %q is not a directory", c.Directory)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
		// OK
	default:
		return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
		// OK
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", c.Log.Format)
	}

	return nil
}

// AbsDirectory returns the registry root as an absolute path.
func (c *Config) AbsDirectory() (string, error) {
	abs, err := filepath.Abs(c.Directory)
	if err != nil {
		return "", fmt.Errorf("resolving registry directory: %w", err)
	}
	return abs, nil
}

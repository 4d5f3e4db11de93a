// Package config loads and validates the optional .makehand YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for server configuration.
const (
	DefaultTimeout  = 5 * time.Minute
	DefaultMakefile = "Makefile"
	DefaultLogLevel = "info"
)

// Config holds the parsed .makehand configuration. All fields are
// optional; zero values represent defaults.
type Config struct {
	Version        int      `yaml:"version"`
	RawMakefile    string   `yaml:"makefile"`         // path relative to the config file
	RawTimeout     string   `yaml:"timeout"`          // e.g. "5m", "30s"
	RawMaxOutput   int      `yaml:"max_output_chars"` // characters, 0 = unlimited
	WriteOutput    bool     `yaml:"write_output"`     // persist full output to disk
	RawOutputDir   string   `yaml:"output_dir"`       // base directory for full output files
	RawLogLevel    string   `yaml:"log_level"`        // trace, debug, info, warn, error
	AllowedTargets []string `yaml:"allowed_targets"`  // allowlist, empty = expose all non-internal
}

// Makefile returns the configured makefile path or the default.
func (c *Config) Makefile() string {
	if c.RawMakefile != "" {
		return c.RawMakefile
	}
	return DefaultMakefile
}

// Timeout returns the configured default timeout or the built-in default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputChars returns the inline output budget; 0 means unlimited.
func (c *Config) MaxOutputChars() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return 0
}

// OutputDir returns the base directory for full-output files.
func (c *Config) OutputDir() string {
	if c.RawOutputDir != "" {
		return c.RawOutputDir
	}
	return os.TempDir()
}

// LogLevel returns the configured log level or the default.
func (c *Config) LogLevel() string {
	if c.RawLogLevel != "" {
		return c.RawLogLevel
	}
	return DefaultLogLevel
}

// Load reads the .makehand file from dir. If no file exists, a default
// Config is returned.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ".makehand")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading .makehand: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .makehand: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays MAKEHAND_* environment variables onto the file
// values. Flags applied by the caller afterwards win over both.
// Unparseable numeric and boolean values are ignored, matching the
// accessors' fallback behavior.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MAKEHAND_MAKEFILE"); v != "" {
		c.RawMakefile = v
	}
	if v := os.Getenv("MAKEHAND_TIMEOUT"); v != "" {
		c.RawTimeout = v
	}
	if v := os.Getenv("MAKEHAND_MAX_OUTPUT_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RawMaxOutput = n
		}
	}
	if v := os.Getenv("MAKEHAND_WRITE_OUTPUT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.WriteOutput = b
		}
	}
	if v := os.Getenv("MAKEHAND_OUTPUT_DIR"); v != "" {
		c.RawOutputDir = v
	}
	if v := os.Getenv("MAKEHAND_LOG_LEVEL"); v != "" {
		c.RawLogLevel = v
	}
	if v := os.Getenv("MAKEHAND_ALLOWED_TARGETS"); v != "" {
		c.AllowedTargets = splitList(v)
	}
}

// splitList splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

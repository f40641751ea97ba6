// Package config provides YAML configuration parsing for opsboard.
//
// This package enables running opsboard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
// Every field is optional; an empty file yields the built-in defaults.
//
// Example configuration:
//
//	title: IT Operations
//	port: 8080
//
//	storage:
//	  driver: sqlite
//	  path: ${OPSBOARD_DB:-opsboard.db}
//
//	speedtest:
//	  endpoint: https://speed.cloudflare.com/__down
//	  duration: 10s
//	  interval: 1s
//	  step: 2s
//	  sizes_mb: [1, 5, 10, 25]
//	  max_mbps: 10000
//
//	monitor:
//	  interval: 5m
//	  timeout: 10s
//	  max_concurrency: 10
//	  targets:
//	    - name: Tramita UE118
//	      url: https://tramita.ue118.gob.pe/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/opsboard"
)

const (
	// minMonitorInterval keeps a misconfigured file from hammering the targets.
	minMonitorInterval = 10 * time.Second

	defaultTitle       = "IT Operations"
	defaultPort        = 8080
	defaultStoragePath = "opsboard.db"

	bytesPerMB = 1 << 20
)

// Config is the root configuration structure for opsboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "IT Operations".
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	Storage   StorageConfig   `yaml:"storage"`
	SpeedTest SpeedTestConfig `yaml:"speedtest"`
	Monitor   MonitorConfig   `yaml:"monitor"`
}

// StorageConfig selects where history is kept.
type StorageConfig struct {
	// Driver is "sqlite" (default) or "memory".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file. Supports environment variable
	// substitution: ${VAR} or ${VAR:-default}. Defaults to opsboard.db.
	Path string `yaml:"path"`
}

// SpeedTestConfig tunes the speed test. Zero fields take the defaults.
type SpeedTestConfig struct {
	// Endpoint must answer GET ?bytes=<n> with n bytes.
	// Supports environment variable substitution.
	Endpoint string `yaml:"endpoint"`

	// Duration is the length of the download phase.
	Duration Duration `yaml:"duration"`

	// Interval is the time between samples.
	Interval Duration `yaml:"interval"`

	// Step is how long each download size is used before moving up.
	Step Duration `yaml:"step"`

	// SizesMB is the ascending download size staircase in MiB.
	SizesMB []float64 `yaml:"sizes_mb"`

	// MaxMbps discards samples at or above this speed.
	MaxMbps float64 `yaml:"max_mbps"`
}

// MonitorConfig tunes the site monitor.
type MonitorConfig struct {
	// Interval is the time between sweeps. Must be at least 10s.
	Interval Duration `yaml:"interval"`

	// Timeout is how long each site has to answer.
	Timeout Duration `yaml:"timeout"`

	// MaxConcurrency bounds how many sites are probed at once.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Targets are the monitored sites. Defaults to the built-in list.
	Targets []TargetConfig `yaml:"targets"`
}

// TargetConfig defines a monitored site.
type TargetConfig struct {
	// Name is the display name shown in the dashboard.
	Name string `yaml:"name"`

	// URL is the site address.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Unknown keys are rejected. Environment variables are expanded in the
// storage path, the speed test endpoint and target URLs. Defaults are
// applied to every unset field.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty document decodes to io.EOF and means "all defaults"
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = defaultTitle
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = opsboard.DriverSQLite
	}
	if c.Storage.Driver == opsboard.DriverSQLite && c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath
	}

	st := opsboard.DefaultSpeedTestConfig()
	if c.SpeedTest.Endpoint == "" {
		c.SpeedTest.Endpoint = st.Endpoint
	}
	if c.SpeedTest.Duration == 0 {
		c.SpeedTest.Duration = Duration(st.Duration)
	}
	if c.SpeedTest.Interval == 0 {
		c.SpeedTest.Interval = Duration(st.Interval)
	}
	if c.SpeedTest.Step == 0 {
		c.SpeedTest.Step = Duration(st.Step)
	}
	if len(c.SpeedTest.SizesMB) == 0 {
		for _, n := range st.Sizes {
			c.SpeedTest.SizesMB = append(c.SpeedTest.SizesMB, float64(n)/bytesPerMB)
		}
	}
	if c.SpeedTest.MaxMbps == 0 {
		c.SpeedTest.MaxMbps = st.MaxMbps
	}

	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = Duration(5 * time.Minute)
	}
	if c.Monitor.Timeout == 0 {
		c.Monitor.Timeout = Duration(10 * time.Second)
	}
	if c.Monitor.MaxConcurrency == 0 {
		c.Monitor.MaxConcurrency = 10
	}
	if len(c.Monitor.Targets) == 0 {
		for _, t := range opsboard.DefaultTargets() {
			c.Monitor.Targets = append(c.Monitor.Targets, TargetConfig{Name: t.Name, URL: t.URL})
		}
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if err := c.Storage.expandAndValidate(); err != nil {
		return err
	}
	if err := c.SpeedTest.expandAndValidate(); err != nil {
		return err
	}
	return c.Monitor.expandAndValidate()
}

func (s *StorageConfig) expandAndValidate() error {
	s.Driver = strings.ToLower(s.Driver)
	switch s.Driver {
	case opsboard.DriverMemory:
	case opsboard.DriverSQLite:
		expanded, err := expandEnvVars(s.Path)
		if err != nil {
			return fmt.Errorf("storage.path: %w", err)
		}
		s.Path = expanded
		if s.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", opsboard.DriverSQLite, opsboard.DriverMemory, s.Driver)
	}
	return nil
}

func (s *SpeedTestConfig) expandAndValidate() error {
	expanded, err := expandEnvVars(s.Endpoint)
	if err != nil {
		return fmt.Errorf("speedtest.endpoint: %w", err)
	}
	s.Endpoint = expanded
	if err := validateHTTPURL(s.Endpoint); err != nil {
		return fmt.Errorf("speedtest.endpoint: %w", err)
	}

	if s.Duration.Duration() <= 0 {
		return fmt.Errorf("speedtest.duration must be positive, got %s", s.Duration.Duration())
	}
	if s.Interval.Duration() <= 0 {
		return fmt.Errorf("speedtest.interval must be positive, got %s", s.Interval.Duration())
	}
	if s.Interval.Duration() > s.Duration.Duration() {
		return fmt.Errorf("speedtest.interval (%s) must not exceed speedtest.duration (%s)",
			s.Interval.Duration(), s.Duration.Duration())
	}
	if s.Step.Duration() <= 0 {
		return fmt.Errorf("speedtest.step must be positive, got %s", s.Step.Duration())
	}
	for i, mb := range s.SizesMB {
		if mb <= 0 {
			return fmt.Errorf("speedtest.sizes_mb[%d] must be positive, got %v", i, mb)
		}
		if i > 0 && mb < s.SizesMB[i-1] {
			return fmt.Errorf("speedtest.sizes_mb must be ascending, got %v after %v", mb, s.SizesMB[i-1])
		}
	}
	if s.MaxMbps <= 0 {
		return fmt.Errorf("speedtest.max_mbps must be positive, got %v", s.MaxMbps)
	}
	return nil
}

func (m *MonitorConfig) expandAndValidate() error {
	if m.Interval.Duration() < minMonitorInterval {
		return fmt.Errorf("monitor.interval must be at least %s, got %s", minMonitorInterval, m.Interval.Duration())
	}
	if m.Timeout.Duration() < time.Second {
		return fmt.Errorf("monitor.timeout must be at least 1s, got %s", m.Timeout.Duration())
	}
	if m.MaxConcurrency < 1 {
		return fmt.Errorf("monitor.max_concurrency must be positive, got %d", m.MaxConcurrency)
	}

	seen := make(map[string]bool, len(m.Targets))
	for i := range m.Targets {
		t := &m.Targets[i]

		if t.Name == "" {
			return fmt.Errorf("monitor.targets[%d]: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("monitor.targets[%d]: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = true

		if t.URL == "" {
			return fmt.Errorf("monitor.targets[%d] (%s): url is required", i, t.Name)
		}
		expanded, err := expandEnvVars(t.URL)
		if err != nil {
			return fmt.Errorf("monitor.targets[%d] (%s): url: %w", i, t.Name, err)
		}
		t.URL = expanded

		if err := validateHTTPURL(t.URL); err != nil {
			return fmt.Errorf("monitor.targets[%d] (%s): %w", i, t.Name, err)
		}
	}
	return nil
}

func validateHTTPURL(raw string) error {
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}

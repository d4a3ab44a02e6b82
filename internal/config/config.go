// Package config loads, validates, and hot-reloads the scraper's YAML
// configuration. Environment variables override the file so container
// deployments can steer sinks and zones without editing it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"forexcal/internal/event"
	"forexcal/internal/parser"
	"forexcal/internal/timeconv"
)

// Sink names accepted in the sinks list.
const (
	SinkCSV      = "csv"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
)

// Config is the top-level YAML structure. A loaded Config is treated as
// immutable; reloads swap in a fresh value rather than mutating in place.
type Config struct {
	BaseURL string `yaml:"base_url"`

	SourceTimezone string `yaml:"source_timezone"`
	TargetTimezone string `yaml:"target_timezone"`

	AllowedCurrencies []string          `yaml:"allowed_currencies"`
	AllowedImpacts    []string          `yaml:"allowed_impacts"`
	ElementMap        map[string]string `yaml:"element_map"`

	Sinks       []string `yaml:"sinks"`
	CSVDir      string   `yaml:"csv_dir"`
	DatabaseURL string   `yaml:"database_url"`
	SQLitePath  string   `yaml:"sqlite_path"`

	ListenAddr string `yaml:"listen_addr"`
	Schedule   string `yaml:"schedule"`

	PageTimeoutSeconds int  `yaml:"page_timeout_seconds"`
	MaxRetries         int  `yaml:"max_retries"`
	Notify             bool `yaml:"notify"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BaseURL:            "https://www.forexfactory.com",
		SourceTimezone:     "Europe/Berlin",
		TargetTimezone:     "UTC",
		Sinks:              []string{SinkCSV},
		CSVDir:             "news",
		ListenAddr:         ":8080",
		PageTimeoutSeconds: 90,
		MaxRetries:         4,
	}
}

// Load reads the YAML file at path, fills in defaults, applies environment
// overrides, and validates the result. An empty path loads defaults plus
// environment overrides only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		applyFileDefaults(cfg)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFileDefaults(cfg *Config) {
	def := Default()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.SourceTimezone == "" {
		cfg.SourceTimezone = def.SourceTimezone
	}
	if cfg.TargetTimezone == "" {
		cfg.TargetTimezone = def.TargetTimezone
	}
	if len(cfg.Sinks) == 0 {
		cfg.Sinks = def.Sinks
	}
	if cfg.CSVDir == "" {
		cfg.CSVDir = def.CSVDir
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.PageTimeoutSeconds == 0 {
		cfg.PageTimeoutSeconds = def.PageTimeoutSeconds
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("TARGET_TIMEZONE"); v != "" {
		cfg.TargetTimezone = v
	}
	if v := os.Getenv("SOURCE_TIMEZONE"); v != "" {
		cfg.SourceTimezone = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.ListenAddr = ":" + v
	}
	if v := os.Getenv("DATA_STORAGE"); v != "" {
		switch strings.ToLower(v) {
		case "file":
			cfg.Sinks = []string{SinkCSV}
		case "db":
			cfg.Sinks = []string{SinkPostgres}
		case "both":
			cfg.Sinks = []string{SinkCSV, SinkPostgres}
		}
	}
}

// Validate checks every field the pipeline will rely on, so a bad config
// fails at startup rather than mid-run.
func (c *Config) Validate() error {
	if _, err := timeconv.LoadZone(c.SourceTimezone); err != nil {
		return fmt.Errorf("source_timezone: %w", err)
	}
	if _, err := timeconv.LoadZone(c.TargetTimezone); err != nil {
		return fmt.Errorf("target_timezone: %w", err)
	}

	for _, s := range c.AllowedImpacts {
		if _, err := event.ParseImpact(s); err != nil {
			return fmt.Errorf("allowed_impacts: %w", err)
		}
	}

	if _, err := c.FieldMap(); err != nil {
		return fmt.Errorf("element_map: %w", err)
	}

	for _, name := range c.Sinks {
		switch name {
		case SinkCSV, SinkPostgres, SinkSQLite:
		default:
			return fmt.Errorf("sinks: unknown sink %q", name)
		}
	}
	if contains(c.Sinks, SinkPostgres) && c.DatabaseURL == "" {
		return fmt.Errorf("sinks: postgres sink requires database_url or DATABASE_URL")
	}
	if contains(c.Sinks, SinkSQLite) && c.SQLitePath == "" {
		return fmt.Errorf("sinks: sqlite sink requires sqlite_path or SQLITE_PATH")
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
	}

	if c.PageTimeoutSeconds <= 0 {
		return fmt.Errorf("page_timeout_seconds must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

// FieldMap returns the default class mapping merged with element_map overrides.
func (c *Config) FieldMap() (*parser.FieldMap, error) {
	m := parser.DefaultFieldMap()
	if len(c.ElementMap) > 0 {
		if err := m.Merge(c.ElementMap); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Impacts converts the allowed_impacts strings into typed impact levels.
// Call Validate first; unparseable entries are dropped here.
func (c *Config) Impacts() []event.Impact {
	out := make([]event.Impact, 0, len(c.AllowedImpacts))
	for _, s := range c.AllowedImpacts {
		imp, err := event.ParseImpact(s)
		if err != nil {
			continue
		}
		out = append(out, imp)
	}
	return out
}

// PageTimeout returns the page load timeout as a duration.
func (c *Config) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutSeconds) * time.Second
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

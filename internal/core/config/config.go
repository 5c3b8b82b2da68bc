package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	etlerr "github.com/asiflhr/data-engineering-journey/internal/core/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application config shared by all pipelines.
type Config struct {
	API          APIConfig          `koanf:"api"`
	Paths        PathsConfig        `koanf:"paths"`
	Database     DatabaseConfig     `koanf:"database"`
	Validation   ValidationConfig   `koanf:"validation"`
	Transactions TransactionsConfig `koanf:"transactions"`
}

type APIConfig struct {
	BaseURL  string      `koanf:"base_url"`
	Timeout  string      `koanf:"timeout"` // per-call HTTP timeout
	PageSize int         `koanf:"page_size"`
	MaxItems int         `koanf:"max_items"`
	Retry    RetryConfig `koanf:"retry"`
}

type RetryConfig struct {
	MaxAttempts   int     `koanf:"max_attempts"`
	InitialDelay  string  `koanf:"initial_delay"`
	BackoffFactor float64 `koanf:"backoff_factor"`
}

type PathsConfig struct {
	InputDir      string `koanf:"input_dir"`
	OutputDir     string `koanf:"output_dir"`
	BadRecordsDir string `koanf:"bad_records_dir"`
	StateDir      string `koanf:"state_dir"`
}

type DatabaseConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	Name         string `koanf:"name"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	SSLMode      string `koanf:"sslmode"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type ValidationConfig struct {
	// RulesDir optionally shadows the built-in validation rule sets.
	RulesDir string `koanf:"rules_dir"`
}

type TransactionsConfig struct {
	HighValueThreshold float64 `koanf:"high_value_threshold"`
}

// DSN builds the postgres connection string from the individual fields.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TimeoutDuration returns the parsed per-call HTTP timeout. Validate has
// already rejected unparseable values.
func (a APIConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(a.Timeout)
	return d
}

// InitialDelayDuration returns the parsed first retry delay.
func (r RetryConfig) InitialDelayDuration() time.Duration {
	d, _ := time.ParseDuration(r.InitialDelay)
	return d
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &etlerr.ConfigError{Key: "api.base_url", Err: fmt.Errorf("invalid URL %q", c.API.BaseURL)}
		}
	}
	if d, err := time.ParseDuration(c.API.Timeout); err != nil || d <= 0 {
		return &etlerr.ConfigError{Key: "api.timeout", Err: fmt.Errorf("invalid duration %q", c.API.Timeout)}
	}
	if c.API.PageSize <= 0 {
		return &etlerr.ConfigError{Key: "api.page_size", Err: fmt.Errorf("must be > 0, got %d", c.API.PageSize)}
	}
	if c.API.MaxItems < 0 {
		return &etlerr.ConfigError{Key: "api.max_items", Err: fmt.Errorf("must be >= 0, got %d", c.API.MaxItems)}
	}
	if c.API.Retry.MaxAttempts < 1 {
		return &etlerr.ConfigError{Key: "api.retry.max_attempts", Err: fmt.Errorf("must be >= 1, got %d", c.API.Retry.MaxAttempts)}
	}
	if d, err := time.ParseDuration(c.API.Retry.InitialDelay); err != nil || d <= 0 {
		return &etlerr.ConfigError{Key: "api.retry.initial_delay", Err: fmt.Errorf("invalid duration %q", c.API.Retry.InitialDelay)}
	}
	if c.API.Retry.BackoffFactor < 1 {
		return &etlerr.ConfigError{Key: "api.retry.backoff_factor", Err: fmt.Errorf("must be >= 1, got %g", c.API.Retry.BackoffFactor)}
	}

	for key, dir := range map[string]string{
		"paths.input_dir":       c.Paths.InputDir,
		"paths.output_dir":      c.Paths.OutputDir,
		"paths.bad_records_dir": c.Paths.BadRecordsDir,
		"paths.state_dir":       c.Paths.StateDir,
	} {
		if strings.TrimSpace(dir) == "" {
			return &etlerr.ConfigError{Key: key, Err: fmt.Errorf("is required")}
		}
	}

	if strings.TrimSpace(c.Database.Host) == "" {
		return &etlerr.ConfigError{Key: "database.host", Err: fmt.Errorf("is required")}
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return &etlerr.ConfigError{Key: "database.port", Err: fmt.Errorf("must be 1-65535, got %d", c.Database.Port)}
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		return &etlerr.ConfigError{Key: "database.name", Err: fmt.Errorf("is required")}
	}
	if strings.TrimSpace(c.Database.User) == "" {
		return &etlerr.ConfigError{Key: "database.user", Err: fmt.Errorf("is required")}
	}
	if c.Database.MaxOpenConns <= 0 {
		return &etlerr.ConfigError{Key: "database.max_open_conns", Err: fmt.Errorf("must be > 0, got %d", c.Database.MaxOpenConns)}
	}
	if c.Database.MaxIdleConns <= 0 {
		return &etlerr.ConfigError{Key: "database.max_idle_conns", Err: fmt.Errorf("must be > 0, got %d", c.Database.MaxIdleConns)}
	}

	if c.Transactions.HighValueThreshold < 0 {
		return &etlerr.ConfigError{Key: "transactions.high_value_threshold", Err: fmt.Errorf("must be >= 0, got %g", c.Transactions.HighValueThreshold)}
	}

	return nil
}

// Load parses config from file + env and validates it. An empty configPath
// uses defaults and environment only. Any violation aborts before the
// pipelines perform I/O.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"api.base_url":                      "https://jsonplaceholder.typicode.com",
		"api.timeout":                       "15s",
		"api.page_size":                     20,
		"api.max_items":                     100,
		"api.retry.max_attempts":            3,
		"api.retry.initial_delay":           "500ms",
		"api.retry.backoff_factor":          2.0,
		"paths.input_dir":                   "./data",
		"paths.output_dir":                  "./processed_output",
		"paths.bad_records_dir":             "./bad_records",
		"paths.state_dir":                   "./state",
		"database.host":                     "localhost",
		"database.port":                     5432,
		"database.name":                     "de_db",
		"database.user":                     "de_user",
		"database.password":                 "",
		"database.sslmode":                  "disable",
		"database.max_open_conns":           10,
		"database.max_idle_conns":           5,
		"database.auto_migrate":             true,
		"validation.rules_dir":              "",
		"transactions.high_value_threshold": 1000.0,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, &etlerr.ConfigError{Err: fmt.Errorf("failed to load config file: %w", err)}
		}
	}

	if err := k.Load(env.Provider("DATAPIPE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DATAPIPE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, &etlerr.ConfigError{Err: fmt.Errorf("failed to load env vars: %w", err)}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &etlerr.ConfigError{Err: fmt.Errorf("failed to unmarshal config: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

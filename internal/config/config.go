// Package config loads service configuration from YAML with environment
// overrides. The resulting value is passed explicitly to each component.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tasktrack.org/internal/tracker"
)

// Environment variables that override file values.
const (
	EnvPGDSN      = "TASKTRACK_PG_DSN"
	EnvAuthSecret = "TASKTRACK_AUTH_SECRET"
	EnvHTTPAddr   = "TASKTRACK_HTTP_ADDR"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Log      LogConfig      `yaml:"log"`
	Seed     SeedConfig     `yaml:"seed"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// TrustedProxies may set X-Forwarded-For; empty means the peer address is always used.
	TrustedProxies  []string      `yaml:"trusted_proxies"`
}

// GRPCConfig controls the health listener. An empty address disables it.
type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig selects PostgreSQL. An empty DSN runs against the in-memory store.
type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type TrackerConfig struct {
	// AssignmentPolicy is "anyone" or "privileged".
	AssignmentPolicy string `yaml:"assignment_policy"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SeedConfig holds bootstrap credentials for the seeded admin and owner accounts.
type SeedConfig struct {
	AdminPassword string `yaml:"admin_password"`
	OwnerPassword string `yaml:"owner_password"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (when non-empty), applies defaults and environment
// overrides. It does not validate.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv(lookup)
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.HTTP.RateLimitRPS == 0 {
		c.HTTP.RateLimitRPS = 20
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 40
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"http://localhost:3000", "http://localhost:4200"}
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "tasktrack"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = time.Hour
	}
	if c.Tracker.AssignmentPolicy == "" {
		c.Tracker.AssignmentPolicy = string(tracker.AssignAnyone)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Seed.AdminPassword == "" {
		c.Seed.AdminPassword = "admin123"
	}
	if c.Seed.OwnerPassword == "" {
		c.Seed.OwnerPassword = "owner123"
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPGDSN); ok && strings.TrimSpace(v) != "" {
		c.Database.DSN = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvAuthSecret); ok && strings.TrimSpace(v) != "" {
		c.Auth.Secret = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvHTTPAddr); ok && strings.TrimSpace(v) != "" {
		c.HTTP.Addr = strings.TrimSpace(v)
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, fmt.Errorf("auth.secret is required (or set %s)", EnvAuthSecret))
	}
	if c.Auth.TokenTTL < 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.HTTP.RateLimitRPS < 0 || c.HTTP.RateLimitBurst < 0 {
		errs = append(errs, errors.New("http rate limit must not be negative"))
	}
	if _, err := tracker.ParseAssignmentPolicy(c.Tracker.AssignmentPolicy); err != nil {
		errs = append(errs, fmt.Errorf("tracker.assignment_policy: %w", err))
	}
	return errors.Join(errs...)
}

// Assignment returns the parsed assignment policy. Call after Validate.
func (c *Config) Assignment() tracker.AssignmentPolicy {
	p, err := tracker.ParseAssignmentPolicy(c.Tracker.AssignmentPolicy)
	if err != nil {
		return tracker.AssignAnyone
	}
	return p
}

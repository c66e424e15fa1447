// Package config loads the server configuration from an optional YAML file
// and the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aminofabian/ichama-sub002/internal/engine"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Policy    PolicyConfig    `yaml:"policy"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Events    EventsConfig    `yaml:"events"`
}

type ServerConfig struct {
	Port string `yaml:"port"`

	// AllowedOrigin is sent as Access-Control-Allow-Origin.
	AllowedOrigin string `yaml:"allowed_origin"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PolicyConfig holds the engine policy. Fractions are decimal strings.
type PolicyConfig struct {
	Quorum        string `yaml:"quorum"`
	PenaltyRate   string `yaml:"penalty_rate"`
	PenaltyPoints *int   `yaml:"penalty_points"`
}

// SchedulerConfig holds cron specs for the background jobs. An empty spec
// disables that job.
type SchedulerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sweep   string `yaml:"sweep"`
	Advance string `yaml:"advance"`
	Release string `yaml:"release"`
}

type EventsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", AllowedOrigin: "*"},
		Database: DatabaseConfig{Path: "ichama.db"},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Log:      LogConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Sweep:   "@every 1h",
			Advance: "@every 15m",
			Release: "@every 15m",
		},
		Events: EventsConfig{Timeout: 5 * time.Second},
	}
}

// Load reads the YAML file at path, if any, then applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FromEnv loads the file named by CONFIG_PATH.
func FromEnv() (*Config, error) {
	return Load(getEnv("CONFIG_PATH", ""))
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("PORT", &c.Server.Port)
	set("DB_PATH", &c.Database.Path)
	set("JWT_SECRET", &c.Auth.JWTSecret)
	set("LOG_LEVEL", &c.Log.Level)
	set("LOG_FORMAT", &c.Log.Format)
}

func (c *Config) applyDefaults() {
	def := Default()
	c.Server.Port = strings.TrimPrefix(strings.TrimSpace(c.Server.Port), ":")
	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = def.Auth.TokenTTL
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Events.Timeout == 0 {
		c.Events.Timeout = def.Events.Timeout
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (or set JWT_SECRET)")
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl cannot be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	if _, err := c.EnginePolicy(); err != nil {
		return err
	}
	for name, spec := range map[string]string{
		"sweep":   c.Scheduler.Sweep,
		"advance": c.Scheduler.Advance,
		"release": c.Scheduler.Release,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("scheduler.%s: %w", name, err)
		}
	}
	return nil
}

// EnginePolicy builds the engine policy, starting from engine.DefaultPolicy
// for anything left unset.
func (c *Config) EnginePolicy() (engine.Policy, error) {
	p := engine.DefaultPolicy()
	if c.Policy.Quorum != "" {
		q, err := decimal.NewFromString(c.Policy.Quorum)
		if err != nil {
			return p, fmt.Errorf("policy.quorum: %w", err)
		}
		p.Quorum = q
	}
	if c.Policy.PenaltyRate != "" {
		r, err := decimal.NewFromString(c.Policy.PenaltyRate)
		if err != nil {
			return p, fmt.Errorf("policy.penalty_rate: %w", err)
		}
		p.PenaltyRate = r
	}
	if c.Policy.PenaltyPoints != nil {
		p.PenaltyPoints = *c.Policy.PenaltyPoints
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("policy: %w", err)
	}
	return p, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

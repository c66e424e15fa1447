package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(body)), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Addr())
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %s", cfg.Auth.TokenTTL)
	}
	p, err := cfg.EnginePolicy()
	if err != nil {
		t.Fatalf("EnginePolicy returned error: %v", err)
	}
	if !p.Quorum.Equal(decimal.NewFromInt(1)) || p.PenaltyPoints != 1 {
		t.Fatalf("expected default policy, got %+v", p)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
database:
  path: /var/lib/ichama/chama.db
auth:
  jwt_secret: from-file
  token_ttl: 2h
log:
  level: DEBUG
policy:
  quorum: "0.75"
  penalty_rate: "0.05"
  penalty_points: 0
scheduler:
  enabled: true
  sweep: "0 6 * * *"
  advance: ""
events:
  timeout: 10s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr() != ":9090" || cfg.Database.Path != "/var/lib/ichama/chama.db" {
		t.Fatalf("unexpected server/database config: %+v %+v", cfg.Server, cfg.Database)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour || cfg.Events.Timeout != 10*time.Second {
		t.Fatalf("durations not parsed: %s %s", cfg.Auth.TokenTTL, cfg.Events.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected normalised level, got %q", cfg.Log.Level)
	}
	if cfg.Scheduler.Advance != "" || cfg.Scheduler.Release != "@every 15m" {
		t.Fatalf("unexpected scheduler config: %+v", cfg.Scheduler)
	}

	p, err := cfg.EnginePolicy()
	if err != nil {
		t.Fatalf("EnginePolicy returned error: %v", err)
	}
	if p.Quorum.String() != "0.75" || p.PenaltyRate.String() != "0.05" || p.PenaltyPoints != 0 {
		t.Fatalf("unexpected policy %+v", p)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
auth:
  jwt_secret: from-file
`)
	t.Setenv("PORT", "7070")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_PATH", "env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr() != ":7070" || cfg.Auth.JWTSecret != "from-env" || cfg.Database.Path != "env.db" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing secret", body: `log: {level: info}`, want: "jwt_secret"},
		{name: "bad level", body: "auth: {jwt_secret: x}\nlog: {level: loud}", want: "log.level"},
		{name: "weak quorum", body: "auth: {jwt_secret: x}\npolicy: {quorum: \"0.5\"}", want: "policy"},
		{name: "bad rate", body: "auth: {jwt_secret: x}\npolicy: {penalty_rate: ten}", want: "policy.penalty_rate"},
		{name: "bad cron", body: "auth: {jwt_secret: x}\nscheduler: {sweep: \"every day\"}", want: "scheduler.sweep"},
		{name: "bad yaml", body: "auth: [", want: "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.HasPrefix(err.Error(), "config: ") || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected config error containing %q, got %v", tt.want, err)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tasktrack.org/internal/tracker"
)

func noEnv(string) (string, bool) { return "", false }

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.HTTP.Addr != ":8080" || cfg.Auth.TokenTTL != time.Hour || cfg.Auth.Issuer != "tasktrack" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Assignment() != tracker.AssignAnyone {
		t.Fatalf("expected default assignment policy anyone, got %s", cfg.Assignment())
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "auth.secret") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasktrack.yaml")
	body := `
http:
  addr: ":9000"
  read_timeout: 5s
  trusted_proxies: ["10.0.0.0/8", "192.168.1.1"]
auth:
  secret: from-file
  token_ttl: 30m
tracker:
  assignment_policy: privileged
grpc:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	env := map[string]string{EnvAuthSecret: "from-env", EnvPGDSN: "postgres://db/tasks"}
	cfg, err := load(path, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" || cfg.HTTP.ReadTimeout != 5*time.Second || cfg.HTTP.WriteTimeout != 15*time.Second {
		t.Fatalf("unexpected http config: %+v", cfg.HTTP)
	}
	if len(cfg.HTTP.TrustedProxies) != 2 || cfg.HTTP.TrustedProxies[0] != "10.0.0.0/8" {
		t.Fatalf("unexpected trusted proxies: %v", cfg.HTTP.TrustedProxies)
	}
	if cfg.Auth.Secret != "from-env" || cfg.Auth.TokenTTL != 30*time.Minute {
		t.Fatalf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Database.DSN != "postgres://db/tasks" || cfg.GRPC.Addr != ":9090" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Assignment() != tracker.AssignPrivilegedOnly {
		t.Fatalf("expected privileged policy, got %s", cfg.Assignment())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "missing.yaml"), noEnv); err == nil {
		t.Fatalf("expected read error")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := load(path, noEnv); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	cfg := Default()
	cfg.Auth.Secret = "x"
	cfg.Tracker.AssignmentPolicy = "everyone"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "assignment_policy") {
		t.Fatalf("expected policy error, got %v", err)
	}
}

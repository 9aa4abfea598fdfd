package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("INTERVIEW_AUTH_JWT_SECRET", "super-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.HTTP.Port != 8080 || cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLitePath != "interview.db" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Auth.JWTSecret != "super-secret" {
		t.Fatalf("expected jwt secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Policy.Threshold != 0.75 || cfg.Policy.CancellationNotice != 4*time.Hour || cfg.Policy.ExpectedVoters != 1 {
		t.Fatalf("unexpected policy %+v", cfg.Policy)
	}
	if cfg.Service.MaxAttempts != 3 || cfg.Oracle.Timeout != 3*time.Second {
		t.Fatalf("unexpected service/oracle config %+v %+v", cfg.Service, cfg.Oracle)
	}
	if cfg.Redis.Addr != "" || cfg.NATS.URL != "" || cfg.Oracle.GeminiAPIKey != "" {
		t.Fatalf("expected optional integrations to be disabled")
	}
	if err := cfg.Policy.WeightedPolicy().Validate(); err != nil {
		t.Fatalf("expected default policy to validate: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("INTERVIEW_AUTH_JWT_SECRET", "s")
	t.Setenv("INTERVIEW_HTTP_PORT", "9090")
	t.Setenv("INTERVIEW_STORAGE_DRIVER", "Postgres")
	t.Setenv("INTERVIEW_STORAGE_POSTGRES_DSN", "postgres://localhost/interviews")
	t.Setenv("INTERVIEW_POLICY_THRESHOLD", "0.6")
	t.Setenv("INTERVIEW_SWEEP_INTERVAL", "0")
	t.Setenv("INTERVIEW_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Storage.Driver != DriverPostgres || cfg.Storage.PostgresDSN == "" {
		t.Fatalf("unexpected config %+v %+v", cfg.HTTP, cfg.Storage)
	}
	if cfg.Policy.Threshold != 0.6 || cfg.Sweep.Interval != 0 || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected overrides %+v %+v %+v", cfg.Policy, cfg.Sweep, cfg.Redis)
	}
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	t.Setenv("INTERVIEW_NATS_URL", "nats://env:4222")

	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	content := `
auth:
  jwt_secret: from-file
http:
  port: 7000
oracle:
  gemini_model: gemini-test
  cache_ttl: 30s
nats:
  url: nats://file:4222
ratelimit:
  limit: 5
  window: 10s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-file" || cfg.HTTP.Port != 7000 {
		t.Fatalf("expected file values, got %+v %+v", cfg.Auth, cfg.HTTP)
	}
	if cfg.Oracle.GeminiModel != "gemini-test" || cfg.Oracle.CacheTTL != 30*time.Second {
		t.Fatalf("unexpected oracle config %+v", cfg.Oracle)
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Fatalf("expected environment to win over file, got %q", cfg.NATS.URL)
	}
	if cfg.RateLimit.Limit != 5 || cfg.RateLimit.Window != 10*time.Second {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
}

func TestLoad_ReportsMissingAndInvalid(t *testing.T) {
	t.Setenv("INTERVIEW_AUTH_JWT_SECRET", "")
	t.Setenv("INTERVIEW_HTTP_PORT", "eighty")
	t.Setenv("INTERVIEW_ORACLE_TIMEOUT", "-1s")
	t.Setenv("INTERVIEW_STORAGE_DRIVER", "postgres")
	t.Setenv("INTERVIEW_LOG_FORMAT", "xml")

	_, err := Load("")
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	for _, want := range []string{
		"INTERVIEW_AUTH_JWT_SECRET",
		"INTERVIEW_STORAGE_POSTGRES_DSN",
		"INTERVIEW_HTTP_PORT",
		"INTERVIEW_ORACLE_TIMEOUT",
		"INTERVIEW_LOG_FORMAT",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %s in error, got %q", want, msg)
		}
	}
}

func TestLoad_RejectsInvalidPolicy(t *testing.T) {
	t.Setenv("INTERVIEW_AUTH_JWT_SECRET", "s")
	t.Setenv("INTERVIEW_POLICY_THRESHOLD", "0")

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "policy") {
		t.Fatalf("expected policy error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("INTERVIEW_AUTH_JWT_SECRET", "s")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

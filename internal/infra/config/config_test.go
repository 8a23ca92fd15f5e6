package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Session.Lifetime != 24*time.Hour {
		t.Fatalf("expected 24h session lifetime, got %v", cfg.Session.Lifetime)
	}
	if cfg.Session.CachePrefix != "session" {
		t.Fatalf("expected session cache prefix, got %q", cfg.Session.CachePrefix)
	}
	if cfg.Session.CacheMissPolicy != "strict" {
		t.Fatalf("expected strict cache miss policy, got %q", cfg.Session.CacheMissPolicy)
	}
	if cfg.Lockout.MaxAttempts != nonProductionLockoutMaxAttempts || cfg.Lockout.Duration != 0 {
		t.Fatalf("expected lockout disabled outside production, got %+v", cfg.Lockout)
	}
}

func TestLoadProductionLockoutDefaults(t *testing.T) {
	t.Setenv("LMS_APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !cfg.IsProduction() {
		t.Fatal("expected production environment")
	}
	if cfg.Lockout.MaxAttempts != 5 || cfg.Lockout.Duration != 30*time.Minute {
		t.Fatalf("expected 5 attempts / 30m, got %+v", cfg.Lockout)
	}
}

func TestLoadExplicitLockoutOverridesEnvDefaults(t *testing.T) {
	t.Setenv("LMS_APP_ENV", "production")
	t.Setenv("LMS_LOCKOUT_MAX_ATTEMPTS", "3")
	t.Setenv("LOCKOUT_DURATION", "10m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Lockout.MaxAttempts != 3 || cfg.Lockout.Duration != 10*time.Minute {
		t.Fatalf("expected overrides to win, got %+v", cfg.Lockout)
	}
}

func TestLoadRejectsUnknownCacheMissPolicy(t *testing.T) {
	t.Setenv("LMS_SESSION_CACHE_MISS_POLICY", "lenient")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown cache miss policy")
	}
}

func TestPostgresURL(t *testing.T) {
	settings := PostgresSettings{User: "lms", Password: "secret", Host: "db", Port: 5433, Database: "lms", SSLMode: "require"}

	if got, want := settings.URL(), "postgres://lms:secret@db:5433/lms?sslmode=require"; got != want {
		t.Fatalf("URL() = %q, want %q", got, want)
	}
}

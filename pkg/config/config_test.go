package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-key-of-sufficient-length")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.APIPort)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("JWTExpiry = %v, want 24h", cfg.JWTExpiry)
	}
	if cfg.Sweeper.Interval != 10*time.Second {
		t.Errorf("Sweeper.Interval = %v, want 10s", cfg.Sweeper.Interval)
	}
	if cfg.SMTP.Host != "" {
		t.Errorf("SMTP.Host = %q, want empty", cfg.SMTP.Host)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("JWT_EXPIRY", "1h")
	t.Setenv("DATABASE_URL", "postgres://db:5432/chronus_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.Sweeper.Interval != 30*time.Second {
		t.Errorf("Sweeper.Interval = %v, want 30s", cfg.Sweeper.Interval)
	}
	if cfg.JWTExpiry != time.Hour {
		t.Errorf("JWTExpiry = %v, want 1h", cfg.JWTExpiry)
	}
	if cfg.DatabaseDSN != "postgres://db:5432/chronus_test" {
		t.Errorf("DatabaseDSN = %q", cfg.DatabaseDSN)
	}
}

func TestYAMLOverlay(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")

	path := filepath.Join(t.TempDir(), "chronus.yaml")
	if err := os.WriteFile(path, []byte("api_port: 7070\napi_host: 127.0.0.1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHRONUS_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIPort != 7070 {
		t.Errorf("APIPort = %d, want the YAML override 7070", cfg.APIPort)
	}
	if cfg.APIHost != "127.0.0.1" {
		t.Errorf("APIHost = %q, want the YAML override", cfg.APIHost)
	}
	// Values absent from the file keep their environment defaults
	if cfg.Sweeper.Interval != 10*time.Second {
		t.Errorf("Sweeper.Interval = %v, want 10s", cfg.Sweeper.Interval)
	}
}

func TestValidate(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	cfg.JWTSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing JWT secret to fail validation")
	}

	cfg.JWTSecret = "too-short"
	if err := cfg.Validate(); err == nil {
		t.Error("expected short JWT secret to fail validation")
	}

	cfg.JWTSecret = "test-secret-key-of-sufficient-length"
	cfg.Sweeper.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected zero sweep interval to fail validation")
	}
}

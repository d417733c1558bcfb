package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iho/vslaledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := config.LoadFrom()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.StorageBackend != "postgres" {
		t.Fatalf("expected postgres backend by default, got %q", cfg.StorageBackend)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.LoanGraceDays != 7 || cfg.AssessmentValidity != 90*24*time.Hour {
		t.Fatalf("unexpected lending defaults: grace=%d validity=%s", cfg.LoanGraceDays, cfg.AssessmentValidity)
	}

	rate, err := cfg.LateFee()
	if err != nil || rate.String() != "0.001" {
		t.Fatalf("expected default late fee 0.001, got %s err=%v", rate, err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("NOTIFY_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := config.LoadFrom()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.StorageBackend != "memory" || cfg.NotifyBackend != "kafka" {
		t.Fatalf("expected backend overrides, got storage=%s notify=%s", cfg.StorageBackend, cfg.NotifyBackend)
	}

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("expected two kafka brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.LoadFrom(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"storage backend", "STORAGE_BACKEND", "sqlite"},
		{"notify backend", "NOTIFY_BACKEND", "smtp"},
		{"late fee", "LATE_FEE_DAILY_RATE", "abc"},
		{"negative late fee", "LATE_FEE_DAILY_RATE", "-0.1"},
		{"negative grace", "LOAN_GRACE_DAYS", "-1"},
		{"queue size", "NOTIFY_QUEUE_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := config.LoadFrom(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	if err := os.WriteFile(file, []byte("LOAN_GRACE_DAYS=14\nHTTP_PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	// real environment wins over the file
	t.Setenv("HTTP_PORT", "6060")
	t.Setenv("LOAN_GRACE_DAYS", "")
	_ = os.Unsetenv("LOAN_GRACE_DAYS")

	cfg, err := config.LoadFrom(file, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.LoanGraceDays != 14 {
		t.Fatalf("expected grace days from env file, got %d", cfg.LoanGraceDays)
	}
	if cfg.HTTPPort != "6060" {
		t.Fatalf("expected environment to override env file, got %s", cfg.HTTPPort)
	}
}

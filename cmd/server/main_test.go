package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/vslaledger/internal/infrastructure/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StorageBackend:      "memory",
		HTTPPort:            "0",
		HTTPShutdownTimeout: time.Second,
		RateLimitRPS:        100,
		RateLimitBurst:      100,
		IdempotencyTTL:      time.Hour,
		NotifyBackend:       "log",
		NotifyQueueSize:     16,
		NotifyWorkers:       1,
		LoanGraceDays:       7,
		LateFeeDailyRate:    "0.001",
		AssessmentValidity:  90 * 24 * time.Hour,
		ReconcileSchedule:   "0 2 * * *",
		OverdueSchedule:     "0 7 * * *",
	}
}

func TestNewAppMemoryBackend(t *testing.T) {
	a, err := newApp(context.Background(), memoryConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.close()

	if a.dispatcher == nil {
		t.Fatal("expected a dispatcher for the log backend")
	}

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}

	body := strings.NewReader(`{"category":"DEPOSIT","amounts":{"personal":"50"}}`)
	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/groups/1/entries", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 posting an entry, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewAppNotificationsDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.NotifyBackend = "none"
	cfg.ReconcileSchedule = ""
	cfg.OverdueSchedule = ""

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.close()

	if a.dispatcher != nil {
		t.Fatal("expected no dispatcher")
	}
}

func TestNewAppRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"storage", func(c *config.Config) { c.StorageBackend = "sqlite" }},
		{"notify", func(c *config.Config) { c.NotifyBackend = "smtp" }},
		{"schedule", func(c *config.Config) { c.OverdueSchedule = "every tuesday" }},
		{"late fee", func(c *config.Config) { c.LateFeeDailyRate = "abc" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(cfg)
			if _, err := newApp(context.Background(), cfg, zerolog.Nop()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := memoryConfig()
	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRejectedPath(t *testing.T) {
	tests := map[string]string{
		"/api/v1/groups/5/entries": "/api/v1/groups",
		"/api/v1/loans":            "/api/v1/loans",
		"/health":                  "/health",
		"/":                        "/",
	}
	for in, want := range tests {
		if got := rejectedPath(in); got != want {
			t.Fatalf("rejectedPath(%q) = %q, want %q", in, got, want)
		}
	}
}

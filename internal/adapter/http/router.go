package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/vslaledger/internal/adapter/http/handler"
	"github.com/iho/vslaledger/internal/adapter/http/middleware"
	"github.com/iho/vslaledger/internal/infrastructure/metrics"
	"github.com/iho/vslaledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler      *handler.LedgerHandler
	LoanHandler        *handler.LoanHandler
	EligibilityHandler *handler.EligibilityHandler
	HealthHandler      *handler.HealthHandler
	IdempotencyStore   usecase.IdempotencyStore
	IdempotencyTTL     time.Duration
	RateLimiter        *middleware.RateLimiter
	Metrics            *metrics.Metrics
	Gatherer           prometheus.Gatherer
	Logger             zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/groups/{groupID}", func(r chi.Router) {
			r.Get("/balance", cfg.LedgerHandler.GetBalance)
			r.Get("/reconciliation", cfg.LedgerHandler.Reconcile)

			r.Route("/entries", func(r chi.Router) {
				r.Post("/", cfg.LedgerHandler.PostEntry)
				r.Get("/", cfg.LedgerHandler.ListEntries)
				r.Get("/{entryID}", cfg.LedgerHandler.GetEntry)
				r.Post("/{entryID}/status", cfg.LedgerHandler.MarkStatus)
			})

			r.Route("/loans", func(r chi.Router) {
				r.Post("/", cfg.LoanHandler.Request)
				r.Get("/", cfg.LoanHandler.List)
				r.Get("/overdue", cfg.LoanHandler.ListOverdue)
			})

			r.Get("/members/{memberID}/eligibility", cfg.EligibilityHandler.Check)
		})

		r.Route("/loans/{loanID}", func(r chi.Router) {
			r.Get("/", cfg.LoanHandler.Get)
			r.Get("/schedule", cfg.LoanHandler.Schedule)
			r.Post("/approve", cfg.LoanHandler.Approve)
			r.Post("/disburse", cfg.LoanHandler.Disburse)
			r.Post("/cancel", cfg.LoanHandler.Cancel)
			r.Post("/default", cfg.LoanHandler.Default)
			r.Post("/repayments", cfg.LoanHandler.RecordRepayment)
		})

		r.Route("/members/{memberID}/assessments", func(r chi.Router) {
			r.Post("/", cfg.EligibilityHandler.Assess)
			r.Get("/", cfg.EligibilityHandler.History)
			r.Get("/current", cfg.EligibilityHandler.Current)
		})
	})

	return r
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	EntriesPosted   *prometheus.CounterVec
	EntryDuplicates *prometheus.CounterVec
	EntriesRejected *prometheus.CounterVec
	PostDuration    prometheus.Histogram

	// Loan metrics
	LoanTransitions *prometheus.CounterVec
	LoanAmount      *prometheus.HistogramVec

	// Eligibility metrics
	Assessments      *prometheus.CounterVec
	EligibilityScore prometheus.Histogram

	// Reconciliation metrics
	LedgerVerifications prometheus.Counter
	LedgerMismatches    *prometheus.CounterVec

	// Notification metrics
	Notifications     *prometheus.CounterVec
	NotificationQueue prometheus.Gauge

	// Scheduler metrics
	JobRuns *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all Prometheus metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EntriesPosted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_entries_posted_total",
				Help: "Total ledger entries posted by category",
			},
			[]string{"category"},
		),
		EntryDuplicates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_entry_duplicates_total",
				Help: "Total posts ignored as duplicates of an external reference",
			},
			[]string{"category"},
		),
		EntriesRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_entries_rejected_total",
				Help: "Total rejected ledger operations by reason",
			},
			[]string{"reason"},
		),
		PostDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vslaledger_post_duration_seconds",
			Help:    "Duration of ledger post operations",
			Buckets: prometheus.DefBuckets,
		}),

		LoanTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_loan_transitions_total",
				Help: "Total loan state transitions by target status",
			},
			[]string{"status"},
		),
		LoanAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vslaledger_loan_amount",
				Help:    "Amounts moved by loan transitions",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"status"},
		),

		Assessments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_eligibility_assessments_total",
				Help: "Total eligibility assessments by risk tier",
			},
			[]string{"tier"},
		),
		EligibilityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vslaledger_eligibility_score",
			Help:    "Eligibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),

		LedgerVerifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "vslaledger_ledger_verifications_total",
			Help: "Total group ledger verifications",
		}),
		LedgerMismatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_ledger_mismatches_total",
				Help: "Total running-balance violations found by group",
			},
			[]string{"group_id"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_notifications_total",
				Help: "Total notifications by outcome",
			},
			[]string{"outcome"},
		),
		NotificationQueue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vslaledger_notification_queue_depth",
			Help: "Notifications waiting to be published",
		}),

		JobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_job_runs_total",
				Help: "Total scheduled job runs by job and outcome",
			},
			[]string{"job", "outcome"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vslaledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vslaledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vslaledger_rate_limit_hits_total",
				Help: "Total requests rejected by the rate limiter",
			},
			[]string{"path"},
		),
	}
}

// EntryPosted implements usecase.Observer.
func (m *Metrics) EntryPosted(category domain.EntryCategory, duplicate bool, elapsed time.Duration) {
	if duplicate {
		m.EntryDuplicates.WithLabelValues(string(category)).Inc()
	} else {
		m.EntriesPosted.WithLabelValues(string(category)).Inc()
	}
	m.PostDuration.Observe(elapsed.Seconds())
}

// EntryRejected implements usecase.Observer.
func (m *Metrics) EntryRejected(reason string) {
	m.EntriesRejected.WithLabelValues(reason).Inc()
}

// LoanTransition implements usecase.Observer.
func (m *Metrics) LoanTransition(status domain.LoanStatus, amount decimal.Decimal) {
	m.LoanTransitions.WithLabelValues(string(status)).Inc()
	if amount.IsPositive() {
		m.LoanAmount.WithLabelValues(string(status)).Observe(amount.InexactFloat64())
	}
}

// Assessed implements usecase.Observer.
func (m *Metrics) Assessed(tier domain.RiskTier, score decimal.Decimal) {
	m.Assessments.WithLabelValues(string(tier)).Inc()
	m.EligibilityScore.Observe(score.InexactFloat64())
}

// LedgerVerified implements usecase.Observer.
func (m *Metrics) LedgerVerified(groupID int64, violations int) {
	m.LedgerVerifications.Inc()
	if violations > 0 {
		m.LedgerMismatches.WithLabelValues(strconv.FormatInt(groupID, 10)).Add(float64(violations))
	}
}

var _ usecase.Observer = (*Metrics)(nil)

// Notified counts a notification outcome.
func (m *Metrics) Notified(outcome string) {
	m.Notifications.WithLabelValues(outcome).Inc()
}

// QueueDepth records how many notifications are waiting.
func (m *Metrics) QueueDepth(n int) {
	m.NotificationQueue.Set(float64(n))
}

// JobRun counts a scheduled job run.
func (m *Metrics) JobRun(job, outcome string) {
	m.JobRuns.WithLabelValues(job, outcome).Inc()
}

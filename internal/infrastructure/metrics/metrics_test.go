package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.EntriesPosted == nil || m.HTTPRequests == nil || m.LoanTransitions == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.LedgerVerifications.Inc()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestObserverCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.EntryPosted(domain.CategoryDeposit, false, 5*time.Millisecond)
	m.EntryPosted(domain.CategoryDeposit, false, 5*time.Millisecond)
	m.EntryPosted(domain.CategoryDeposit, true, time.Millisecond)
	m.EntryRejected("insufficient_funds")
	m.LoanTransition(domain.LoanStatusDisbursed, decimal.NewFromInt(1200))
	m.Assessed(domain.RiskLow, decimal.RequireFromString("77.5"))
	m.LedgerVerified(10, 0)
	m.LedgerVerified(11, 3)

	if got := testutil.ToFloat64(m.EntriesPosted.WithLabelValues("DEPOSIT")); got != 2 {
		t.Fatalf("expected 2 deposits, got %v", got)
	}
	if got := testutil.ToFloat64(m.EntryDuplicates.WithLabelValues("DEPOSIT")); got != 1 {
		t.Fatalf("expected 1 duplicate, got %v", got)
	}
	if got := testutil.ToFloat64(m.EntriesRejected.WithLabelValues("insufficient_funds")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.LoanTransitions.WithLabelValues("DISBURSED")); got != 1 {
		t.Fatalf("expected 1 disbursement, got %v", got)
	}
	if got := testutil.ToFloat64(m.Assessments.WithLabelValues("LOW")); got != 1 {
		t.Fatalf("expected 1 LOW assessment, got %v", got)
	}
	if got := testutil.ToFloat64(m.LedgerVerifications); got != 2 {
		t.Fatalf("expected 2 verifications, got %v", got)
	}
	if got := testutil.ToFloat64(m.LedgerMismatches.WithLabelValues("11")); got != 3 {
		t.Fatalf("expected 3 mismatches for group 11, got %v", got)
	}
	if got := testutil.CollectAndCount(m.LedgerMismatches); got != 1 {
		t.Fatalf("expected only group 11 to report mismatches, got %d series", got)
	}
}

func TestNotificationAndJobMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Notified("queued")
	m.Notified("queued")
	m.Notified("failed")
	m.QueueDepth(3)
	m.JobRun("reconcile", "success")

	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("queued")); got != 2 {
		t.Fatalf("queued = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.NotificationQueue); got != 3 {
		t.Fatalf("queue depth = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.JobRuns.WithLabelValues("reconcile", "success")); got != 1 {
		t.Fatalf("job runs = %v, want 1", got)
	}
}

package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
)

// Observer receives business measurements. The metrics package implements
// it with prometheus collectors.
type Observer interface {
	EntryPosted(category domain.EntryCategory, duplicate bool, elapsed time.Duration)
	EntryRejected(reason string)
	LoanTransition(status domain.LoanStatus, amount decimal.Decimal)
	Assessed(tier domain.RiskTier, score decimal.Decimal)
	LedgerVerified(groupID int64, violations int)
}

// NopObserver discards all measurements.
type NopObserver struct{}

func (NopObserver) EntryPosted(domain.EntryCategory, bool, time.Duration) {}
func (NopObserver) EntryRejected(string) {}
func (NopObserver) LoanTransition(domain.LoanStatus, decimal.Decimal) {}
func (NopObserver) Assessed(domain.RiskTier, decimal.Decimal) {}
func (NopObserver) LedgerVerified(int64, int) {}

// emitter builds events and hands them to the notifier after commit.
type emitter struct {
	notifier Notifier
	idGen    IDGenerator
	logger   zerolog.Logger
}

func (e emitter) emit(ctx context.Context, event *domain.Event) {
	if e.notifier == nil {
		return
	}

	if event.ID == "" && e.idGen != nil {
		event.ID = e.idGen.Generate()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := e.notifier.Notify(ctx, event); err != nil {
		e.logger.Warn().
			Err(err).
			Str("event_type", event.EventType).
			Int64("aggregate_id", event.AggregateID).
			Msg("notification dropped")
	}
}

func entryEvent(eventType string, entry *domain.LedgerEntry, at time.Time) *domain.Event {
	return &domain.Event{
		AggregateID:   entry.ID,
		AggregateType: domain.AggregateTypeEntry,
		EventType:     eventType,
		GroupID:       entry.GroupID,
		MemberID:      entry.MemberID,
		Payload: map[string]any{
			"category":      string(entry.Category),
			"status":        string(entry.Status),
			"total_balance": entry.TotalBalance.StringFixed(domain.MoneyScale),
			"date":          entry.TransactionDate.Format(time.DateOnly),
		},
		OccurredAt: at,
	}
}

func loanEvent(eventType string, loan *domain.Loan, at time.Time) *domain.Event {
	borrower := loan.BorrowerID
	return &domain.Event{
		AggregateID:   loan.ID,
		AggregateType: domain.AggregateTypeLoan,
		EventType:     eventType,
		GroupID:       loan.GroupID,
		MemberID:      &borrower,
		Payload: map[string]any{
			"status":      string(loan.Status),
			"principal":   loan.Principal.StringFixed(domain.MoneyScale),
			"outstanding": loan.OutstandingBalance.StringFixed(domain.MoneyScale),
			"repaid":      loan.TotalRepaid.StringFixed(domain.MoneyScale),
		},
		OccurredAt: at,
	}
}

// rejectionReason labels a failed operation for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	}
	return "internal"
}

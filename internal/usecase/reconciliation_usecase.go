package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
)

// Violation kinds
const (
	ViolationRunningBalance = "running_balance"
	ViolationTotal          = "total_balance"
)

// LedgerViolation is one broken balance invariant.
type LedgerViolation struct {
	EntryID  int64
	Kind     string
	Fund     domain.Fund
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

// LedgerVerification is the result of walking a group's ACTIVE entries.
type LedgerVerification struct {
	GroupID        int64
	EntriesChecked int
	Violations     []LedgerViolation
	Consistent     bool
	CheckedAt      time.Time
}

// ReconciliationUseCase verifies stored running balances.
type ReconciliationUseCase struct {
	ledgerRepo LedgerRepository
	observer   Observer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(ledgerRepo LedgerRepository, observer Observer, logger zerolog.Logger) *ReconciliationUseCase {
	if observer == nil {
		observer = NopObserver{}
	}

	return &ReconciliationUseCase{
		ledgerRepo: ledgerRepo,
		observer:   observer,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// VerifyGroupLedger recomputes every ACTIVE entry's closing balances from
// a zero baseline in (date, id) order and reports where the stored
// balances or totals disagree.
//
// Entries marked REVERSED or CORRECTED drop out of the sequence without
// later balances being recomputed, so such marks surface here.
func (uc *ReconciliationUseCase) VerifyGroupLedger(ctx context.Context, groupID int64) (*LedgerVerification, error) {
	if groupID <= 0 {
		return nil, domain.ErrMissingID
	}

	entries, err := uc.ledgerRepo.ListActive(ctx, groupID)
	if err != nil {
		return nil, err
	}

	report := &LedgerVerification{
		GroupID:        groupID,
		EntriesChecked: len(entries),
		Violations:     make([]LedgerViolation, 0),
		CheckedAt:      uc.now(),
	}

	running := domain.FundAmounts{}.Normalized()
	for _, entry := range entries {
		running = running.Add(entry.Deltas)

		for _, f := range domain.Funds {
			if !running.Get(f).Equal(entry.Balances.Get(f)) {
				report.Violations = append(report.Violations, LedgerViolation{
					EntryID:  entry.ID,
					Kind:     ViolationRunningBalance,
					Fund:     f,
					Expected: running.Get(f),
					Actual:   entry.Balances.Get(f),
				})
			}
		}

		if sum := entry.Balances.Total(); !sum.Equal(entry.TotalBalance) {
			report.Violations = append(report.Violations, LedgerViolation{
				EntryID:  entry.ID,
				Kind:     ViolationTotal,
				Expected: sum,
				Actual:   entry.TotalBalance,
			})
		}

		// continue from what was stored so one bad row is reported once
		running = entry.Balances.Normalized()
	}

	report.Consistent = len(report.Violations) == 0
	uc.observer.LedgerVerified(groupID, len(report.Violations))

	return report, nil
}

// VerifyAll verifies every group that has postings.
func (uc *ReconciliationUseCase) VerifyAll(ctx context.Context) ([]*LedgerVerification, error) {
	groupIDs, err := uc.ledgerRepo.ListGroupIDs(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*LedgerVerification, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		report, err := uc.VerifyGroupLedger(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify group %d: %w", groupID, err)
		}

		if !report.Consistent {
			uc.logger.Warn().
				Int64("group_id", groupID).
				Int("violations", len(report.Violations)).
				Msg("ledger inconsistency detected")
		}

		reports = append(reports, report)
	}

	return reports, nil
}

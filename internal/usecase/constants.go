package usecase

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long HTTP idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending marks a key whose first request is still in flight.
	IdempotencyPending = "processing"

	// DefaultGraceDays is how long past its due date a loan may run before it is overdue.
	DefaultGraceDays = 7

	// DefaultLateFeeDailyRate is the advisory late fee per day overdue (0.1%).
	DefaultLateFeeDailyRate = "0.001"

	// overdueSweepPage is how many repayable loans an overdue sweep loads per query.
	overdueSweepPage = 500
)

// LoanPolicy holds group lending parameters that are not part of a loan's terms.
type LoanPolicy struct {
	GraceDays        int
	LateFeeDailyRate decimal.Decimal
}

// DefaultLoanPolicy returns the policy used when none is configured.
func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{
		GraceDays:        DefaultGraceDays,
		LateFeeDailyRate: decimal.RequireFromString(DefaultLateFeeDailyRate),
	}
}

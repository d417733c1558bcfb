package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every error returned by the core wraps exactly one of these.
var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

var (
	// Validation errors
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrNegativeAmount   = fmt.Errorf("%w: fund amounts must not be negative", ErrValidation)
	ErrEmptyDeltas      = fmt.Errorf("%w: at least one fund amount is required", ErrValidation)
	ErrUnknownFund      = fmt.Errorf("%w: unknown fund category", ErrValidation)
	ErrUnknownCategory  = fmt.Errorf("%w: unknown entry category", ErrValidation)
	ErrBackdatedEntry   = fmt.Errorf("%w: entry date precedes latest posting", ErrValidation)
	ErrFutureEntry      = fmt.Errorf("%w: entry date is in the future", ErrValidation)
	ErrInvalidTerm      = fmt.Errorf("%w: term must be between 1 and %d months", ErrValidation, MaxTermMonths)
	ErrInvalidRate      = fmt.Errorf("%w: interest rate must not be negative", ErrValidation)
	ErrInvalidMetric    = fmt.Errorf("%w: invalid eligibility metric", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrMissingID        = fmt.Errorf("%w: identifier is required", ErrValidation)
	ErrInvalidDateRange = fmt.Errorf("%w: range end precedes range start", ErrValidation)

	// State machine errors
	ErrLoanNotPending     = fmt.Errorf("%w: loan is not pending", ErrInvalidState)
	ErrLoanNotApproved    = fmt.Errorf("%w: loan is not approved", ErrInvalidState)
	ErrLoanNotRepayable   = fmt.Errorf("%w: loan does not accept repayments", ErrInvalidState)
	ErrLoanNotCancellable = fmt.Errorf("%w: loan cannot be cancelled", ErrInvalidState)
	ErrLoanNotDefaultable = fmt.Errorf("%w: loan cannot be defaulted", ErrInvalidState)
	ErrEntryNotActive     = fmt.Errorf("%w: entry is not active", ErrInvalidState)
	ErrInstallmentSettled = fmt.Errorf("%w: installment is already paid", ErrInvalidState)

	// Lookup errors
	ErrEntryNotFound       = fmt.Errorf("%w: ledger entry", ErrNotFound)
	ErrLoanNotFound        = fmt.Errorf("%w: loan", ErrNotFound)
	ErrInstallmentNotFound = fmt.Errorf("%w: installment", ErrNotFound)
	ErrAssessmentNotFound  = fmt.Errorf("%w: eligibility assessment", ErrNotFound)
)

// InsufficientFundsError reports which fund a debit would have driven negative.
type InsufficientFundsError struct {
	Fund      Fund
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %s: available %s, requested %s",
		e.Fund, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

// Unwrap lets errors.Is match ErrInsufficientFunds.
func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

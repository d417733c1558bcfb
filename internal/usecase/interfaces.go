package usecase

import (
	"context"
	"time"

	"github.com/iho/vslaledger/internal/domain"
)

// LedgerRepository defines data access for a group's cashbook entries.
type LedgerRepository interface {
	// LockGroup serializes ledger writers of a group until tx ends.
	LockGroup(ctx context.Context, tx Transaction, groupID int64) error
	// GetLatestActive returns the newest ACTIVE entry by (date, id), or nil.
	GetLatestActive(ctx context.Context, tx Transaction, groupID int64) (*domain.LedgerEntry, error)
	// GetByExternalRef returns the ACTIVE entry carrying ref, or domain.ErrEntryNotFound.
	GetByExternalRef(ctx context.Context, tx Transaction, groupID int64, ref string) (*domain.LedgerEntry, error)
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, groupID, id int64) (*domain.LedgerEntry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, groupID, id int64) (*domain.LedgerEntry, error)
	UpdateStatus(ctx context.Context, tx Transaction, id int64, status domain.EntryStatus, reason string, updatedAt time.Time) error
	// GetLatestActiveAsOf returns the newest ACTIVE entry dated on or before
	// asOf (any date when nil), or nil.
	GetLatestActiveAsOf(ctx context.Context, groupID int64, asOf *time.Time) (*domain.LedgerEntry, error)
	List(ctx context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, int, error)
	// ListActive returns ACTIVE entries ascending by (date, id).
	ListActive(ctx context.Context, groupID int64) ([]*domain.LedgerEntry, error)
	ListGroupIDs(ctx context.Context) ([]int64, error)
}

// LoanRepository defines data access for loans.
type LoanRepository interface {
	Create(ctx context.Context, tx Transaction, loan *domain.Loan) error
	GetByID(ctx context.Context, id int64) (*domain.Loan, error)
	// GetByIDForUpdate locks the loan row until tx ends.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id int64) (*domain.Loan, error)
	Update(ctx context.Context, tx Transaction, loan *domain.Loan) error
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)
}

// InstallmentRepository defines data access for repayment schedules.
type InstallmentRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, installments []*domain.RepaymentInstallment) error
	ListByLoan(ctx context.Context, loanID int64) ([]*domain.RepaymentInstallment, error)
	ListByLoanForUpdate(ctx context.Context, tx Transaction, loanID int64) ([]*domain.RepaymentInstallment, error)
	Update(ctx context.Context, tx Transaction, installment *domain.RepaymentInstallment) error
}

// AssessmentRepository defines data access for eligibility assessments.
type AssessmentRepository interface {
	// LockMember serializes assessment writers of a member until tx ends.
	LockMember(ctx context.Context, tx Transaction, memberID int64) error
	MarkNotCurrent(ctx context.Context, tx Transaction, memberID int64) error
	Create(ctx context.Context, tx Transaction, assessment *domain.EligibilityAssessment) error
	// GetCurrent returns the current assessment, or domain.ErrAssessmentNotFound.
	GetCurrent(ctx context.Context, memberID int64) (*domain.EligibilityAssessment, error)
	ListByMember(ctx context.Context, memberID int64, limit, offset int) ([]*domain.EligibilityAssessment, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient concurrency conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Notifier hands committed events to the notification pipeline. It must
// not block; errors are reported, never propagated to callers.
type Notifier interface {
	Notify(ctx context.Context, event *domain.Event) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request failed so it can be retried.
	Release(ctx context.Context, key string) error
}

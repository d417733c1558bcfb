package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository in memory.
type LoanRepository struct {
	store *Store
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(store *Store) *LoanRepository {
	return &LoanRepository{store: store}
}

func loanLockKey(id int64) string {
	return fmt.Sprintf("loan:%d", id)
}

// Create stores loan and assigns its ID.
func (r *LoanRepository) Create(_ context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.loanSeq++
	loan.ID = r.store.loanSeq
	r.store.loans[loan.ID] = cloneLoan(loan)

	id := loan.ID
	t.onRollback(func() { delete(r.store.loans, id) })
	return nil
}

// GetByID returns a loan by ID.
func (r *LoanRepository) GetByID(_ context.Context, id int64) (*domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	loan, ok := r.store.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return cloneLoan(loan), nil
}

// GetByIDForUpdate locks the loan until tx ends and returns it.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Loan, error) {
	t, err := r.store.txOf(tx)
	if err != nil {
		return nil, err
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if err := t.lock(ctx, loanLockKey(id)); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Update replaces the stored loan. The stored version must be one behind.
func (r *LoanRepository) Update(_ context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	prev, ok := r.store.loans[loan.ID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if prev.Version != loan.Version-1 {
		return fmt.Errorf("%w: loan %d version %d", domain.ErrConcurrencyConflict, loan.ID, prev.Version)
	}

	r.store.loans[loan.ID] = cloneLoan(loan)
	t.onRollback(func() { r.store.loans[prev.ID] = prev })
	return nil
}

// List returns loans matching filter, newest first.
func (r *LoanRepository) List(_ context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	statuses := make(map[domain.LoanStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = true
	}

	matched := make([]*domain.Loan, 0)
	for _, loan := range r.store.loans {
		if filter.GroupID != 0 && loan.GroupID != filter.GroupID {
			continue
		}
		if filter.BorrowerID != 0 && loan.BorrowerID != filter.BorrowerID {
			continue
		}
		if len(statuses) > 0 && !statuses[loan.Status] {
			continue
		}
		matched = append(matched, loan)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if filter.Offset >= len(matched) {
		return []*domain.Loan{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	loans := make([]*domain.Loan, 0, len(matched))
	for _, loan := range matched {
		loans = append(loans, cloneLoan(loan))
	}
	return loans, nil
}

func cloneLoan(l *domain.Loan) *domain.Loan {
	c := *l
	c.ApprovalDate = cloneTime(l.ApprovalDate)
	c.DisbursalDate = cloneTime(l.DisbursalDate)
	c.DueDate = cloneTime(l.DueDate)
	c.ClosedDate = cloneTime(l.ClosedDate)
	c.DisbursementEntryID = cloneInt64(l.DisbursementEntryID)
	return &c
}

var _ usecase.LoanRepository = (*LoanRepository)(nil)

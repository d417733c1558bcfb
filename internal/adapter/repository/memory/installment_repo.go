package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// InstallmentRepository implements usecase.InstallmentRepository in memory.
type InstallmentRepository struct {
	store *Store
}

// NewInstallmentRepository creates a new InstallmentRepository.
func NewInstallmentRepository(store *Store) *InstallmentRepository {
	return &InstallmentRepository{store: store}
}

// CreateBatch stores a loan's schedule. Installment numbers are unique per loan.
func (r *InstallmentRepository) CreateBatch(_ context.Context, tx usecase.Transaction, installments []*domain.RepaymentInstallment) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	touched := make(map[int64][]*domain.RepaymentInstallment)
	for _, inst := range installments {
		if _, ok := touched[inst.LoanID]; !ok {
			touched[inst.LoanID] = r.store.installments[inst.LoanID]
		}
		for _, existing := range r.store.installments[inst.LoanID] {
			if existing.InstallmentNumber == inst.InstallmentNumber {
				return fmt.Errorf("%w: installment %d of loan %d exists", domain.ErrConcurrencyConflict, inst.InstallmentNumber, inst.LoanID)
			}
		}
	}

	now := time.Now().UTC()
	for _, inst := range installments {
		r.store.installmentSeq++
		inst.ID = r.store.installmentSeq
		inst.CreatedAt = now
		inst.UpdatedAt = now
		r.store.installments[inst.LoanID] = append(r.store.installments[inst.LoanID], cloneInstallment(inst))
	}

	t.onRollback(func() {
		for loanID, prev := range touched {
			if prev == nil {
				delete(r.store.installments, loanID)
				continue
			}
			r.store.installments[loanID] = prev
		}
	})
	return nil
}

// ListByLoan returns a loan's schedule ordered by installment number.
func (r *InstallmentRepository) ListByLoan(_ context.Context, loanID int64) ([]*domain.RepaymentInstallment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.RepaymentInstallment, 0, len(r.store.installments[loanID]))
	for _, inst := range r.store.installments[loanID] {
		out = append(out, cloneInstallment(inst))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].InstallmentNumber < out[j].InstallmentNumber })
	return out, nil
}

// ListByLoanForUpdate returns the schedule; the caller holds the loan lock.
func (r *InstallmentRepository) ListByLoanForUpdate(ctx context.Context, tx usecase.Transaction, loanID int64) ([]*domain.RepaymentInstallment, error) {
	if _, err := r.store.txOf(tx); err != nil {
		return nil, err
	}
	return r.ListByLoan(ctx, loanID)
}

// Update replaces a stored installment's payment state.
func (r *InstallmentRepository) Update(_ context.Context, tx usecase.Transaction, installment *domain.RepaymentInstallment) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	schedule := r.store.installments[installment.LoanID]
	for i, inst := range schedule {
		if inst.ID != installment.ID {
			continue
		}

		prev := inst
		updated := cloneInstallment(installment)
		updated.UpdatedAt = time.Now().UTC()
		schedule[i] = updated

		t.onRollback(func() { r.restore(prev) })
		return nil
	}

	return domain.ErrInstallmentNotFound
}

// restore puts back a previous version. Must be called with store.mu held.
func (r *InstallmentRepository) restore(prev *domain.RepaymentInstallment) {
	for i, inst := range r.store.installments[prev.LoanID] {
		if inst.ID == prev.ID {
			r.store.installments[prev.LoanID][i] = prev
			return
		}
	}
}

func cloneInstallment(i *domain.RepaymentInstallment) *domain.RepaymentInstallment {
	c := *i
	c.PaidDate = cloneTime(i.PaidDate)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

var _ usecase.InstallmentRepository = (*InstallmentRepository)(nil)

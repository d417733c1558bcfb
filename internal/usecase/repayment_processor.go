package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
)

// RepaymentProcessor allocates payments across a loan's installments.
type RepaymentProcessor struct {
	installmentRepo InstallmentRepository
}

// NewRepaymentProcessor creates a new RepaymentProcessor.
func NewRepaymentProcessor(installmentRepo InstallmentRepository) *RepaymentProcessor {
	return &RepaymentProcessor{
		installmentRepo: installmentRepo,
	}
}

// RepaymentApplication describes where a payment went.
type RepaymentApplication struct {
	Allocations []domain.Allocation
	// Unallocated is the part of the payment no installment absorbed.
	Unallocated decimal.Decimal
}

// ApplyRepayment locks the loan's schedule, allocates amount and persists
// the installments it touched. It must run inside the caller's transaction
// after the loan row is locked.
func (p *RepaymentProcessor) ApplyRepayment(
	ctx context.Context,
	tx Transaction,
	loanID int64,
	amount decimal.Decimal,
	installmentNumber *int,
	on time.Time,
) (*RepaymentApplication, error) {
	schedule, err := p.installmentRepo.ListByLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}

	allocations, unallocated, err := domain.AllocateRepayment(schedule, amount, installmentNumber, on)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.RepaymentInstallment, len(schedule))
	for _, inst := range schedule {
		byID[inst.ID] = inst
	}

	for _, a := range allocations {
		if err := p.installmentRepo.Update(ctx, tx, byID[a.InstallmentID]); err != nil {
			return nil, err
		}
	}

	return &RepaymentApplication{
		Allocations: allocations,
		Unallocated: unallocated,
	}, nil
}

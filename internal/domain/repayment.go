package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is the part of a payment applied to one installment.
type Allocation struct {
	InstallmentID     int64
	InstallmentNumber int
	Amount            decimal.Decimal
	Status            InstallmentStatus
}

// AllocateRepayment spreads amount over the schedule and mutates the
// touched installments. With a named installment the whole amount goes to
// it, clamped to what it still owes; overflow is dropped, not carried to
// later installments. Otherwise installments are filled in ascending
// number order, skipping PAID ones, until the amount runs out.
//
// Allocations are returned in the order applied; unallocated is whatever
// could not be placed.
func AllocateRepayment(schedule []*RepaymentInstallment, amount decimal.Decimal, number *int, on time.Time) (allocations []Allocation, unallocated decimal.Decimal, err error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, decimal.Zero, err
	}

	if number != nil {
		inst := findInstallment(schedule, *number)
		if inst == nil {
			return nil, decimal.Zero, ErrInstallmentNotFound
		}
		if inst.IsPaid() {
			return nil, decimal.Zero, ErrInstallmentSettled
		}

		applied := inst.Pay(amount, on)
		return []Allocation{allocationOf(inst, applied)}, amount.Sub(applied), nil
	}

	left := amount
	for _, inst := range sortedByNumber(schedule) {
		if !left.IsPositive() {
			break
		}
		if inst.IsPaid() {
			continue
		}

		applied := inst.Pay(left, on)
		if applied.IsZero() {
			continue
		}
		left = left.Sub(applied)
		allocations = append(allocations, allocationOf(inst, applied))
	}

	return allocations, left, nil
}

func allocationOf(inst *RepaymentInstallment, applied decimal.Decimal) Allocation {
	return Allocation{
		InstallmentID:     inst.ID,
		InstallmentNumber: inst.InstallmentNumber,
		Amount:            applied,
		Status:            inst.Status,
	}
}

func findInstallment(schedule []*RepaymentInstallment, number int) *RepaymentInstallment {
	for _, inst := range schedule {
		if inst.InstallmentNumber == number {
			return inst
		}
	}
	return nil
}

// sortedByNumber returns the schedule ordered by installment number
// without reordering the caller's slice.
func sortedByNumber(schedule []*RepaymentInstallment) []*RepaymentInstallment {
	out := make([]*RepaymentInstallment, len(schedule))
	copy(out, schedule)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InstallmentNumber < out[j].InstallmentNumber
	})
	return out
}

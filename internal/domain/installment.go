package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is the payment state of one scheduled installment.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPartial InstallmentStatus = "PARTIAL"
	InstallmentPaid    InstallmentStatus = "PAID"
	// InstallmentOverdue is never stored; it is derived on read.
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

// RepaymentInstallment is one line of a loan's repayment schedule.
type RepaymentInstallment struct {
	ID                int64
	LoanID            int64
	InstallmentNumber int
	DueDate           time.Time
	PrincipalAmount   decimal.Decimal
	InterestAmount    decimal.Decimal
	TotalAmount       decimal.Decimal
	AmountPaid        decimal.Decimal
	Status            InstallmentStatus
	PaidDate          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Remaining is what is still owed on the installment.
func (i *RepaymentInstallment) Remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, i.TotalAmount.Sub(i.AmountPaid))
}

// IsPaid reports whether the installment is fully settled.
func (i *RepaymentInstallment) IsPaid() bool {
	return i.AmountPaid.GreaterThanOrEqual(i.TotalAmount)
}

// Pay applies up to amount to the installment and returns the part used.
func (i *RepaymentInstallment) Pay(amount decimal.Decimal, on time.Time) decimal.Decimal {
	applied := decimal.Min(amount, i.Remaining())
	if !applied.IsPositive() {
		return decimal.Zero
	}

	i.AmountPaid = i.AmountPaid.Add(applied)
	i.refreshStatus(on)
	return applied
}

func (i *RepaymentInstallment) refreshStatus(on time.Time) {
	switch {
	case i.IsPaid():
		paid := DateOf(on)
		i.PaidDate = &paid
		i.Status = InstallmentPaid
	case i.AmountPaid.IsPositive():
		i.Status = InstallmentPartial
	default:
		i.Status = InstallmentPending
	}
}

// EffectiveStatus resolves OVERDUE for unpaid or partial installments
// whose due date has passed.
func (i *RepaymentInstallment) EffectiveStatus(today time.Time) InstallmentStatus {
	if i.IsPaid() {
		return InstallmentPaid
	}
	if i.DueDate.Before(DateOf(today)) {
		return InstallmentOverdue
	}
	if i.AmountPaid.IsPositive() {
		return InstallmentPartial
	}
	return InstallmentPending
}

// DaysOverdue is the number of days past due, zero when not overdue.
func (i *RepaymentInstallment) DaysOverdue(today time.Time) int {
	if i.EffectiveStatus(today) != InstallmentOverdue {
		return 0
	}
	return DaysBetween(i.DueDate, today)
}

// LateFee is the advisory penalty total × dailyRate × days overdue. It is
// informational and never applied to balances.
func (i *RepaymentInstallment) LateFee(today time.Time, dailyRate decimal.Decimal) decimal.Decimal {
	days := i.DaysOverdue(today)
	if days == 0 {
		return decimal.Zero
	}
	return i.TotalAmount.Mul(dailyRate).Mul(decimal.NewFromInt(int64(days))).Round(MoneyScale)
}

package domain

import (
	"testing"
	"time"
)

func TestRepaymentInstallment_PayAndStatus(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	inst := &RepaymentInstallment{
		InstallmentNumber: 1,
		DueDate:           due,
		TotalAmount:       d("100"),
		AmountPaid:        d("0"),
		Status:            InstallmentPending,
	}

	if got := inst.EffectiveStatus(due); got != InstallmentPending {
		t.Fatalf("expected PENDING on due date, got %s", got)
	}
	if got := inst.EffectiveStatus(due.AddDate(0, 0, 1)); got != InstallmentOverdue {
		t.Fatalf("expected OVERDUE after due date, got %s", got)
	}

	applied := inst.Pay(d("40"), due)
	if !applied.Equal(d("40")) || inst.Status != InstallmentPartial {
		t.Fatalf("expected partial payment of 40, got %s status %s", applied, inst.Status)
	}
	if got := inst.EffectiveStatus(due.AddDate(0, 0, 3)); got != InstallmentOverdue {
		t.Fatalf("expected partial installment past due to be OVERDUE, got %s", got)
	}

	applied = inst.Pay(d("100"), due)
	if !applied.Equal(d("60")) {
		t.Fatalf("expected payment clamped to 60, got %s", applied)
	}
	if inst.Status != InstallmentPaid || inst.PaidDate == nil {
		t.Fatalf("expected PAID with date, got %s", inst.Status)
	}
	if got := inst.EffectiveStatus(due.AddDate(1, 0, 0)); got != InstallmentPaid {
		t.Fatalf("paid installment must stay PAID, got %s", got)
	}

	if applied := inst.Pay(d("5"), due); !applied.IsZero() {
		t.Fatalf("expected nothing applied to paid installment, got %s", applied)
	}
}

func TestRepaymentInstallment_LateFee(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	inst := &RepaymentInstallment{DueDate: due, TotalAmount: d("1000"), AmountPaid: d("0")}

	if fee := inst.LateFee(due, d("0.001")); !fee.IsZero() {
		t.Fatalf("expected no fee on due date, got %s", fee)
	}

	today := due.AddDate(0, 0, 10)
	if days := inst.DaysOverdue(today); days != 10 {
		t.Fatalf("expected 10 days overdue, got %d", days)
	}
	if fee := inst.LateFee(today, d("0.001")); !fee.Equal(d("10")) {
		t.Fatalf("expected fee 10, got %s", fee)
	}
	if !inst.AmountPaid.IsZero() || !inst.TotalAmount.Equal(d("1000")) {
		t.Fatalf("late fee must not change balances")
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuildSchedule splits principal plus simple interest into termMonths
// flat installments. Installments 1..N-1 carry P/N and I/N rounded half
// away from zero to cents; the last one takes whatever remains so the sums
// are exact. When rounding up would leave the last installment negative
// (sub-cent shares), the share is truncated instead.
// Installment i is due 30×i days after start.
func BuildSchedule(loanID int64, principal, annualRatePct decimal.Decimal, termMonths int, start time.Time) ([]*RepaymentInstallment, error) {
	if err := ValidateAmount(principal); err != nil {
		return nil, err
	}
	if termMonths <= 0 || termMonths > MaxTermMonths {
		return nil, ErrInvalidTerm
	}
	if annualRatePct.IsNegative() {
		return nil, ErrInvalidRate
	}

	totalInterest := SimpleInterest(principal, annualRatePct, termMonths)
	principalPart := splitShare(principal, termMonths)
	interestPart := splitShare(totalInterest, termMonths)

	schedule := make([]*RepaymentInstallment, 0, termMonths)
	principalLeft := principal
	interestLeft := totalInterest

	for number := 1; number <= termMonths; number++ {
		p, i := principalPart, interestPart
		if number == termMonths {
			p, i = principalLeft, interestLeft
		}
		principalLeft = principalLeft.Sub(p)
		interestLeft = interestLeft.Sub(i)

		schedule = append(schedule, &RepaymentInstallment{
			LoanID:            loanID,
			InstallmentNumber: number,
			DueDate:           AddDays(start, DaysPerMonth*number),
			PrincipalAmount:   p,
			InterestAmount:    i,
			TotalAmount:       p.Add(i),
			AmountPaid:        decimal.Zero,
			Status:            InstallmentPending,
		})
	}

	return schedule, nil
}

// splitShare is amount/n in cents, rounded unless that overdraws the
// final share.
func splitShare(amount decimal.Decimal, n int) decimal.Decimal {
	exact := amount.Div(decimal.NewFromInt(int64(n)))
	share := exact.Round(MoneyScale)
	if share.Mul(decimal.NewFromInt(int64(n - 1))).GreaterThan(amount) {
		return exact.Truncate(MoneyScale)
	}
	return share
}

// ScheduleTotals sums a schedule's principal and total amounts.
func ScheduleTotals(schedule []*RepaymentInstallment) (principal, total decimal.Decimal) {
	principal, total = decimal.Zero, decimal.Zero
	for _, inst := range schedule {
		principal = principal.Add(inst.PrincipalAmount)
		total = total.Add(inst.TotalAmount)
	}
	return principal, total
}

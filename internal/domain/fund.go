package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places money is persisted with.
const MoneyScale = 2

// Fund is a named sub-account of a group's cashbook.
type Fund string

const (
	FundPersonal      Fund = "personal"
	FundECD           Fund = "ecd"
	FundSocial        Fund = "social"
	FundTarget        Fund = "target"
	FundFines         Fund = "fines"
	FundLoanTaken     Fund = "loan_taken"
	FundLoanRepayment Fund = "loan_repayment"
	FundInterest      Fund = "interest"
)

// Funds lists every fund in storage column order.
var Funds = []Fund{
	FundPersonal,
	FundECD,
	FundSocial,
	FundTarget,
	FundFines,
	FundLoanTaken,
	FundLoanRepayment,
	FundInterest,
}

// IsValid reports whether f is one of the known funds.
func (f Fund) IsValid() bool {
	for _, known := range Funds {
		if f == known {
			return true
		}
	}
	return false
}

// IsContra reports whether the fund may carry a negative balance.
// The loan fund records money lent out and goes negative by design of
// the cashbook; group liquidity is guarded through the total instead.
func (f Fund) IsContra() bool {
	return f == FundLoanTaken
}

// ParseFund converts a raw name to a Fund.
func ParseFund(s string) (Fund, error) {
	f := Fund(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFund, s)
	}
	return f, nil
}

// FundAmounts maps funds to amounts. Missing funds are zero.
type FundAmounts map[Fund]decimal.Decimal

// Get returns the amount for f, zero when absent.
func (a FundAmounts) Get(f Fund) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	v, ok := a[f]
	if !ok {
		return decimal.Zero
	}
	return v
}

// Total sums all funds.
func (a FundAmounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, f := range Funds {
		total = total.Add(a.Get(f))
	}
	return total
}

// Add returns a new FundAmounts with every fund of other added.
func (a FundAmounts) Add(other FundAmounts) FundAmounts {
	out := make(FundAmounts, len(Funds))
	for _, f := range Funds {
		out[f] = a.Get(f).Add(other.Get(f))
	}
	return out
}

// Neg returns a copy with every amount negated.
func (a FundAmounts) Neg() FundAmounts {
	out := make(FundAmounts, len(Funds))
	for _, f := range Funds {
		out[f] = a.Get(f).Neg()
	}
	return out
}

// Normalized returns a dense copy with every fund present and rounded to
// MoneyScale.
func (a FundAmounts) Normalized() FundAmounts {
	out := make(FundAmounts, len(Funds))
	for _, f := range Funds {
		out[f] = a.Get(f).Round(MoneyScale)
	}
	return out
}

// IsZero reports whether every fund is zero.
func (a FundAmounts) IsZero() bool {
	for _, f := range Funds {
		if !a.Get(f).IsZero() {
			return false
		}
	}
	return true
}

// Equal compares two amount sets fund by fund.
func (a FundAmounts) Equal(other FundAmounts) bool {
	for _, f := range Funds {
		if !a.Get(f).Equal(other.Get(f)) {
			return false
		}
	}
	return true
}

// ValidateInput checks caller-supplied fund amounts: known funds only,
// non-negative, and at least one non-zero.
func (a FundAmounts) ValidateInput() error {
	for f, v := range a {
		if !f.IsValid() {
			return fmt.Errorf("%w: %q", ErrUnknownFund, string(f))
		}
		if v.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeAmount, f)
		}
	}
	if a.IsZero() {
		return ErrEmptyDeltas
	}
	return nil
}

// FundBalances is a point-in-time snapshot of a group's cashbook.
type FundBalances struct {
	GroupID int64
	// EntryID is the ACTIVE entry the snapshot was taken from; zero when
	// the group has no postings yet.
	EntryID  int64
	AsOf     *time.Time
	Balances FundAmounts
	Total    decimal.Decimal
}

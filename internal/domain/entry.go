package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryCategory classifies a cashbook posting.
type EntryCategory string

const (
	CategoryDeposit          EntryCategory = "DEPOSIT"
	CategoryWithdrawal       EntryCategory = "WITHDRAWAL"
	CategoryFinePayment      EntryCategory = "FINE_PAYMENT"
	CategoryInterestIncome   EntryCategory = "INTEREST_INCOME"
	CategoryLoanDisbursement EntryCategory = "LOAN_DISBURSEMENT"
	CategoryLoanRepayment    EntryCategory = "LOAN_REPAYMENT"
)

var validCategories = map[EntryCategory]bool{
	CategoryDeposit:          true,
	CategoryWithdrawal:       true,
	CategoryFinePayment:      true,
	CategoryInterestIncome:   true,
	CategoryLoanDisbursement: true,
	CategoryLoanRepayment:    true,
}

// IsValid reports whether c is a known category.
func (c EntryCategory) IsValid() bool {
	return validCategories[c]
}

// IsDebit reports whether postings of this category take money out.
func (c EntryCategory) IsDebit() bool {
	return c == CategoryWithdrawal || c == CategoryLoanDisbursement
}

// ParseEntryCategory converts a raw name to an EntryCategory.
func ParseEntryCategory(s string) (EntryCategory, error) {
	c := EntryCategory(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// EntryStatus is the lifecycle status of a ledger entry.
type EntryStatus string

const (
	EntryStatusActive    EntryStatus = "ACTIVE"
	EntryStatusReversed  EntryStatus = "REVERSED"
	EntryStatusCorrected EntryStatus = "CORRECTED"
)

// IsValid reports whether s is a known status.
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusActive, EntryStatusReversed, EntryStatusCorrected:
		return true
	}
	return false
}

// LedgerEntry is one immutable cashbook row of a group. Deltas are signed;
// Balances are the closing balance of every fund after this entry.
type LedgerEntry struct {
	ID              int64
	GroupID         int64
	MemberID        *int64
	LoanID          *int64
	TransactionDate time.Time
	Category        EntryCategory
	Deltas          FundAmounts
	Balances        FundAmounts
	TotalBalance    decimal.Decimal
	ExternalRef     *string
	Description     string
	Status          EntryStatus
	StatusReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SignedDeltas turns caller-supplied non-negative amounts into signed
// deltas according to the category.
func SignedDeltas(category EntryCategory, amounts FundAmounts) FundAmounts {
	normalized := amounts.Normalized()
	if category.IsDebit() {
		return normalized.Neg()
	}
	return normalized
}

// ApplyDeltas computes the closing balances of an entry from the opening
// balances. Debits may not drive any regular fund negative, and the group
// total (cash on hand) must stay non-negative.
func ApplyDeltas(category EntryCategory, opening, deltas FundAmounts) (FundAmounts, decimal.Decimal, error) {
	closing := opening.Add(deltas)
	total := closing.Total()

	if !category.IsDebit() {
		return closing, total, nil
	}

	for _, f := range Funds {
		if deltas.Get(f).IsZero() || f.IsContra() {
			continue
		}
		if closing.Get(f).IsNegative() {
			return nil, decimal.Zero, &InsufficientFundsError{
				Fund:      f,
				Available: opening.Get(f),
				Requested: deltas.Get(f).Abs(),
			}
		}
	}

	if total.IsNegative() {
		return nil, decimal.Zero, &InsufficientFundsError{
			Fund:      FundLoanTaken,
			Available: opening.Total(),
			Requested: deltas.Total().Abs(),
		}
	}

	return closing, total, nil
}

// IsActive reports whether the entry participates in running balances.
func (e *LedgerEntry) IsActive() bool {
	return e.Status == EntryStatusActive
}

// Snapshot converts the entry's closing balances to a FundBalances view.
func (e *LedgerEntry) Snapshot() *FundBalances {
	date := e.TransactionDate
	return &FundBalances{
		GroupID:  e.GroupID,
		EntryID:  e.ID,
		AsOf:     &date,
		Balances: e.Balances.Normalized(),
		Total:    e.TotalBalance,
	}
}

// EmptyBalances is the all-zero snapshot of a group with no postings.
func EmptyBalances(groupID int64) *FundBalances {
	return &FundBalances{
		GroupID:  groupID,
		Balances: FundAmounts{}.Normalized(),
		Total:    decimal.Zero,
	}
}

// EntryFilter selects entries for paginated listing.
type EntryFilter struct {
	GroupID  int64
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// EntryPage is one page of entries, newest first.
type EntryPage struct {
	Entries  []*LedgerEntry
	Page     int
	PageSize int
	Total    int
}

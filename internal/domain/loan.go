package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxTermMonths is the longest loan term a group may grant.
const MaxTermMonths = 24

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusPending         LoanStatus = "PENDING"
	LoanStatusApproved        LoanStatus = "APPROVED"
	LoanStatusDisbursed       LoanStatus = "DISBURSED"
	LoanStatusPartiallyRepaid LoanStatus = "PARTIALLY_REPAID"
	LoanStatusClosed          LoanStatus = "CLOSED"
	LoanStatusDefaulted       LoanStatus = "DEFAULTED"
	LoanStatusCancelled       LoanStatus = "CANCELLED"
)

// ActiveLoanStatuses are the states in which a member holds a live loan.
var ActiveLoanStatuses = []LoanStatus{
	LoanStatusApproved,
	LoanStatusDisbursed,
	LoanStatusPartiallyRepaid,
}

// IsValid reports whether s is a known loan status.
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusDisbursed, LoanStatusPartiallyRepaid,
		LoanStatusClosed, LoanStatusDefaulted, LoanStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusClosed || s == LoanStatusCancelled || s == LoanStatusDefaulted
}

// IsActive reports whether the loan counts against the member's one-loan limit.
func (s LoanStatus) IsActive() bool {
	for _, a := range ActiveLoanStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsRepayable reports whether repayments may be recorded in this state.
func (s LoanStatus) IsRepayable() bool {
	return s == LoanStatusDisbursed || s == LoanStatusPartiallyRepaid
}

// Loan is a member's loan from the group fund.
type Loan struct {
	ID                 int64
	GroupID            int64
	BorrowerID         int64
	Principal          decimal.Decimal
	AnnualInterestRate decimal.Decimal
	TermMonths         int
	Status             LoanStatus
	OutstandingBalance decimal.Decimal
	TotalRepaid        decimal.Decimal
	Purpose            string
	RequestDate        time.Time
	ApprovalDate       *time.Time
	DisbursalDate      *time.Time
	DueDate            *time.Time
	ClosedDate         *time.Time
	// DisbursementEntryID links the LOAN_DISBURSEMENT cashbook row.
	DisbursementEntryID *int64
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewLoan validates terms and returns a PENDING loan.
func NewLoan(groupID, borrowerID int64, principal, annualRate decimal.Decimal, termMonths int, purpose string, requestDate time.Time) (*Loan, error) {
	if groupID <= 0 || borrowerID <= 0 {
		return nil, ErrMissingID
	}

	if err := ValidateAmount(principal); err != nil {
		return nil, err
	}

	if termMonths <= 0 || termMonths > MaxTermMonths {
		return nil, ErrInvalidTerm
	}

	if annualRate.IsNegative() {
		return nil, ErrInvalidRate
	}

	if err := ValidateDescription(purpose); err != nil {
		return nil, err
	}

	return &Loan{
		GroupID:            groupID,
		BorrowerID:         borrowerID,
		Principal:          principal,
		AnnualInterestRate: annualRate,
		TermMonths:         termMonths,
		Status:             LoanStatusPending,
		OutstandingBalance: decimal.Zero,
		TotalRepaid:        decimal.Zero,
		Purpose:            purpose,
		RequestDate:        DateOf(requestDate),
	}, nil
}

// Approve moves a PENDING loan to APPROVED.
func (l *Loan) Approve(on time.Time) error {
	if l.Status != LoanStatusPending {
		return ErrLoanNotPending
	}

	date := DateOf(on)
	l.ApprovalDate = &date
	l.Status = LoanStatusApproved
	return nil
}

// Disburse moves an APPROVED loan to DISBURSED, starting the term on the
// given date.
func (l *Loan) Disburse(on time.Time) error {
	if l.Status != LoanStatusApproved {
		return ErrLoanNotApproved
	}

	disbursed := DateOf(on)
	due := AddDays(disbursed, DaysPerMonth*l.TermMonths)

	l.DisbursalDate = &disbursed
	l.DueDate = &due
	l.OutstandingBalance = l.Principal
	l.Status = LoanStatusDisbursed
	return nil
}

// Repay records a payment. Outstanding never goes below zero; reaching
// zero closes the loan.
func (l *Loan) Repay(amount decimal.Decimal, on time.Time) error {
	if !l.Status.IsRepayable() {
		return ErrLoanNotRepayable
	}

	if err := ValidateAmount(amount); err != nil {
		return err
	}

	l.TotalRepaid = l.TotalRepaid.Add(amount)
	l.OutstandingBalance = decimal.Max(decimal.Zero, l.OutstandingBalance.Sub(amount))

	if l.OutstandingBalance.IsZero() {
		closed := DateOf(on)
		l.ClosedDate = &closed
		l.Status = LoanStatusClosed
	} else {
		l.Status = LoanStatusPartiallyRepaid
	}
	return nil
}

// Cancel withdraws a loan that has not been disbursed.
func (l *Loan) Cancel(on time.Time) error {
	if l.Status != LoanStatusPending && l.Status != LoanStatusApproved {
		return ErrLoanNotCancellable
	}

	closed := DateOf(on)
	l.ClosedDate = &closed
	l.Status = LoanStatusCancelled
	return nil
}

// MarkDefaulted writes off a live loan. Policy decides when; nothing calls
// this automatically.
func (l *Loan) MarkDefaulted(on time.Time) error {
	if !l.Status.IsActive() {
		return ErrLoanNotDefaultable
	}

	closed := DateOf(on)
	l.ClosedDate = &closed
	l.Status = LoanStatusDefaulted
	return nil
}

// IsOverdue reports whether a disbursed loan is past due plus grace.
func (l *Loan) IsOverdue(today time.Time, graceDays int) bool {
	if !l.Status.IsRepayable() || l.DueDate == nil {
		return false
	}
	return AddDays(*l.DueDate, graceDays).Before(DateOf(today))
}

// TotalInterest is the simple interest over the whole term.
func (l *Loan) TotalInterest() decimal.Decimal {
	return SimpleInterest(l.Principal, l.AnnualInterestRate, l.TermMonths)
}

// MonthlyPayment is the informational flat installment amount.
func (l *Loan) MonthlyPayment() decimal.Decimal {
	return MonthlyPayment(l.Principal, l.AnnualInterestRate, l.TermMonths)
}

// SimpleInterest returns principal × rate/100 × months/12, rounded to cents.
func SimpleInterest(principal, annualRatePct decimal.Decimal, termMonths int) decimal.Decimal {
	months := decimal.NewFromInt(int64(termMonths))
	return principal.Mul(annualRatePct).Mul(months).Div(hundred.Mul(twelve)).Round(MoneyScale)
}

// MonthlyPayment returns (principal + simple interest) / months, rounded to cents.
func MonthlyPayment(principal, annualRatePct decimal.Decimal, termMonths int) decimal.Decimal {
	if termMonths <= 0 {
		return decimal.Zero
	}
	total := principal.Add(SimpleInterest(principal, annualRatePct, termMonths))
	return total.Div(decimal.NewFromInt(int64(termMonths))).Round(MoneyScale)
}

// LoanFilter selects loans of a group.
type LoanFilter struct {
	GroupID    int64
	BorrowerID int64
	Statuses   []LoanStatus
	Limit      int
	Offset     int
}

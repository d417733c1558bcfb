package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = time.DateOnly

// ParseDate parses an optional YYYY-MM-DD value.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrValidation, s)
	}
	return &t, nil
}

// PostEntryRequest represents a request to post a cashbook entry.
type PostEntryRequest struct {
	MemberID    *int64                     `json:"member_id,omitempty"`
	LoanID      *int64                     `json:"loan_id,omitempty"`
	Date        string                     `json:"date,omitempty"`
	Category    string                     `json:"category"`
	Amounts     map[string]decimal.Decimal `json:"amounts"`
	ExternalRef *string                    `json:"external_ref,omitempty"`
	Description string                     `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *PostEntryRequest) ToUseCaseInput(groupID int64) (usecase.PostEntryInput, error) {
	category, err := domain.ParseEntryCategory(r.Category)
	if err != nil {
		return usecase.PostEntryInput{}, err
	}

	amounts, err := fundAmounts(r.Amounts)
	if err != nil {
		return usecase.PostEntryInput{}, err
	}

	input := usecase.PostEntryInput{
		GroupID:     groupID,
		MemberID:    r.MemberID,
		LoanID:      r.LoanID,
		Category:    category,
		Amounts:     amounts,
		ExternalRef: r.ExternalRef,
		Description: r.Description,
	}

	date, err := ParseDate(r.Date)
	if err != nil {
		return usecase.PostEntryInput{}, err
	}
	if date != nil {
		input.Date = *date
	}

	return input, nil
}

func fundAmounts(raw map[string]decimal.Decimal) (domain.FundAmounts, error) {
	amounts := make(domain.FundAmounts, len(raw))
	for name, amount := range raw {
		fund, err := domain.ParseFund(name)
		if err != nil {
			return nil, err
		}
		amounts[fund] = amount
	}
	return amounts, nil
}

// MarkEntryStatusRequest flags an entry REVERSED or CORRECTED.
type MarkEntryStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ToUseCaseInput converts to use case input.
func (r *MarkEntryStatusRequest) ToUseCaseInput(groupID, entryID int64) usecase.MarkEntryStatusInput {
	return usecase.MarkEntryStatusInput{
		GroupID: groupID,
		EntryID: entryID,
		Status:  domain.EntryStatus(r.Status),
		Reason:  r.Reason,
	}
}

// RequestLoanRequest represents a loan application.
type RequestLoanRequest struct {
	BorrowerID         int64           `json:"borrower_id"`
	Principal          decimal.Decimal `json:"principal"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate"`
	TermMonths         int             `json:"term_months"`
	Purpose            string          `json:"purpose,omitempty"`
	RequestDate        string          `json:"request_date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RequestLoanRequest) ToUseCaseInput(groupID int64) (usecase.RequestLoanInput, error) {
	date, err := ParseDate(r.RequestDate)
	if err != nil {
		return usecase.RequestLoanInput{}, err
	}

	return usecase.RequestLoanInput{
		GroupID:            groupID,
		BorrowerID:         r.BorrowerID,
		Principal:          r.Principal,
		AnnualInterestRate: r.AnnualInterestRate,
		TermMonths:         r.TermMonths,
		Purpose:            r.Purpose,
		RequestDate:        date,
	}, nil
}

// RecordRepaymentRequest represents money received against a loan.
type RecordRepaymentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Date              string          `json:"date,omitempty"`
	InstallmentNumber *int            `json:"installment_number,omitempty"`
	ExternalRef       *string         `json:"external_ref,omitempty"`
	Description       string          `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RecordRepaymentRequest) ToUseCaseInput(loanID int64) (usecase.RecordRepaymentInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return usecase.RecordRepaymentInput{}, err
	}

	return usecase.RecordRepaymentInput{
		LoanID:            loanID,
		Amount:            r.Amount,
		Date:              date,
		InstallmentNumber: r.InstallmentNumber,
		ExternalRef:       r.ExternalRef,
		Description:       r.Description,
	}, nil
}

// AssessEligibilityRequest carries the member metrics to score.
type AssessEligibilityRequest struct {
	TotalSavings          decimal.Decimal `json:"total_savings"`
	MonthsActive          int             `json:"months_active"`
	AttendanceRatePct     decimal.Decimal `json:"attendance_rate_pct"`
	PaymentConsistencyPct decimal.Decimal `json:"payment_consistency_pct"`
	OutstandingFines      decimal.Decimal `json:"outstanding_fines"`
}

// ToDomain converts to domain metrics.
func (r *AssessEligibilityRequest) ToDomain() domain.EligibilityMetrics {
	return domain.EligibilityMetrics{
		TotalSavings:          r.TotalSavings,
		MonthsActive:          r.MonthsActive,
		AttendanceRatePct:     r.AttendanceRatePct,
		PaymentConsistencyPct: r.PaymentConsistencyPct,
		OutstandingFines:      r.OutstandingFines,
	}
}

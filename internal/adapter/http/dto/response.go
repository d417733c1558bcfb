package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID              int64                      `json:"id"`
	GroupID         int64                      `json:"group_id"`
	MemberID        *int64                     `json:"member_id,omitempty"`
	LoanID          *int64                     `json:"loan_id,omitempty"`
	TransactionDate string                     `json:"transaction_date"`
	Category        domain.EntryCategory       `json:"category"`
	Deltas          map[string]decimal.Decimal `json:"deltas"`
	Balances        map[string]decimal.Decimal `json:"balances"`
	TotalBalance    decimal.Decimal            `json:"total_balance"`
	ExternalRef     *string                    `json:"external_ref,omitempty"`
	Description     string                     `json:"description,omitempty"`
	Status          domain.EntryStatus         `json:"status"`
	StatusReason    string                     `json:"status_reason,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// EntryFromDomain converts a domain entry to response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:              e.ID,
		GroupID:         e.GroupID,
		MemberID:        e.MemberID,
		LoanID:          e.LoanID,
		TransactionDate: e.TransactionDate.Format(DateLayout),
		Category:        e.Category,
		Deltas:          fundMap(e.Deltas),
		Balances:        fundMap(e.Balances),
		TotalBalance:    e.TotalBalance,
		ExternalRef:     e.ExternalRef,
		Description:     e.Description,
		Status:          e.Status,
		StatusReason:    e.StatusReason,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// fundMap lists every fund, zero when absent.
func fundMap(amounts domain.FundAmounts) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(domain.Funds))
	for _, f := range domain.Funds {
		result[string(f)] = amounts.Get(f)
	}
	return result
}

// PostEntryResponse is the posted entry plus the replay flag.
type PostEntryResponse struct {
	Entry     *EntryResponse `json:"entry"`
	Duplicate bool           `json:"duplicate"`
}

// ListEntriesResponse is one page of entries.
type ListEntriesResponse struct {
	Entries  []*EntryResponse `json:"entries"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int              `json:"total"`
}

// EntryPageFromDomain converts a page of entries.
func EntryPageFromDomain(p *domain.EntryPage) *ListEntriesResponse {
	return &ListEntriesResponse{
		Entries:  EntriesFromDomain(p.Entries),
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
	}
}

// BalanceResponse is a group's fund balances.
type BalanceResponse struct {
	GroupID  int64                      `json:"group_id"`
	EntryID  int64                      `json:"entry_id,omitempty"`
	AsOf     *string                    `json:"as_of,omitempty"`
	Balances map[string]decimal.Decimal `json:"balances"`
	Total    decimal.Decimal            `json:"total_balance"`
}

// BalanceFromDomain converts a balance snapshot.
func BalanceFromDomain(b *domain.FundBalances) *BalanceResponse {
	resp := &BalanceResponse{
		GroupID:  b.GroupID,
		EntryID:  b.EntryID,
		Balances: fundMap(b.Balances),
		Total:    b.Total,
	}
	if b.AsOf != nil {
		asOf := b.AsOf.Format(DateLayout)
		resp.AsOf = &asOf
	}
	return resp
}

// ViolationResponse is one reconciliation finding.
type ViolationResponse struct {
	EntryID  int64           `json:"entry_id"`
	Kind     string          `json:"kind"`
	Fund     string          `json:"fund,omitempty"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
}

// VerificationResponse is a reconciliation report.
type VerificationResponse struct {
	GroupID        int64                `json:"group_id"`
	EntriesChecked int                  `json:"entries_checked"`
	Consistent     bool                 `json:"consistent"`
	Violations     []*ViolationResponse `json:"violations"`
	CheckedAt      time.Time            `json:"checked_at"`
}

// VerificationFromUseCase converts a reconciliation report.
func VerificationFromUseCase(v *usecase.LedgerVerification) *VerificationResponse {
	resp := &VerificationResponse{
		GroupID:        v.GroupID,
		EntriesChecked: v.EntriesChecked,
		Consistent:     v.Consistent,
		Violations:     make([]*ViolationResponse, len(v.Violations)),
		CheckedAt:      v.CheckedAt,
	}
	for i, violation := range v.Violations {
		resp.Violations[i] = &ViolationResponse{
			EntryID:  violation.EntryID,
			Kind:     violation.Kind,
			Fund:     string(violation.Fund),
			Expected: violation.Expected,
			Actual:   violation.Actual,
		}
	}
	return resp
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID                  int64             `json:"id"`
	GroupID             int64             `json:"group_id"`
	BorrowerID          int64             `json:"borrower_id"`
	Principal           decimal.Decimal   `json:"principal"`
	AnnualInterestRate  decimal.Decimal   `json:"annual_interest_rate"`
	TermMonths          int               `json:"term_months"`
	Status              domain.LoanStatus `json:"status"`
	OutstandingBalance  decimal.Decimal   `json:"outstanding_balance"`
	TotalRepaid         decimal.Decimal   `json:"total_repaid"`
	MonthlyPayment      decimal.Decimal   `json:"monthly_payment"`
	Purpose             string            `json:"purpose,omitempty"`
	RequestDate         string            `json:"request_date"`
	ApprovalDate        *string           `json:"approval_date,omitempty"`
	DisbursalDate       *string           `json:"disbursal_date,omitempty"`
	DueDate             *string           `json:"due_date,omitempty"`
	ClosedDate          *string           `json:"closed_date,omitempty"`
	DisbursementEntryID *int64            `json:"disbursement_entry_id,omitempty"`
	Version             int64             `json:"version"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// LoanFromDomain converts a domain loan to response.
func LoanFromDomain(l *domain.Loan) *LoanResponse {
	return &LoanResponse{
		ID:                  l.ID,
		GroupID:             l.GroupID,
		BorrowerID:          l.BorrowerID,
		Principal:           l.Principal,
		AnnualInterestRate:  l.AnnualInterestRate,
		TermMonths:          l.TermMonths,
		Status:              l.Status,
		OutstandingBalance:  l.OutstandingBalance,
		TotalRepaid:         l.TotalRepaid,
		MonthlyPayment:      l.MonthlyPayment(),
		Purpose:             l.Purpose,
		RequestDate:         l.RequestDate.Format(DateLayout),
		ApprovalDate:        formatDate(l.ApprovalDate),
		DisbursalDate:       formatDate(l.DisbursalDate),
		DueDate:             formatDate(l.DueDate),
		ClosedDate:          formatDate(l.ClosedDate),
		DisbursementEntryID: l.DisbursementEntryID,
		Version:             l.Version,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

// LoansFromDomain converts domain loans to responses.
func LoansFromDomain(loans []*domain.Loan) []*LoanResponse {
	result := make([]*LoanResponse, len(loans))
	for i, l := range loans {
		result[i] = LoanFromDomain(l)
	}
	return result
}

// ListLoansResponse wraps a list of loans.
type ListLoansResponse struct {
	Loans []*LoanResponse `json:"loans"`
	Total int             `json:"total"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// AllocationResponse is the share of a repayment applied to an installment.
type AllocationResponse struct {
	InstallmentNumber int                      `json:"installment_number"`
	Amount            decimal.Decimal          `json:"amount"`
	Status            domain.InstallmentStatus `json:"status"`
}

// RepaymentResponse is the loan after a repayment.
type RepaymentResponse struct {
	Loan        *LoanResponse         `json:"loan"`
	Entry       *EntryResponse        `json:"entry,omitempty"`
	Allocations []*AllocationResponse `json:"allocations"`
	Unallocated decimal.Decimal       `json:"unallocated"`
	Duplicate   bool                  `json:"duplicate"`
}

// RepaymentFromUseCase converts a repayment result.
func RepaymentFromUseCase(r *usecase.RepaymentResult) *RepaymentResponse {
	resp := &RepaymentResponse{
		Loan:        LoanFromDomain(r.Loan),
		Allocations: make([]*AllocationResponse, len(r.Allocations)),
		Unallocated: r.Unallocated,
		Duplicate:   r.Duplicate,
	}
	if r.Entry != nil {
		resp.Entry = EntryFromDomain(r.Entry)
	}
	for i, a := range r.Allocations {
		resp.Allocations[i] = &AllocationResponse{
			InstallmentNumber: a.InstallmentNumber,
			Amount:            a.Amount,
			Status:            a.Status,
		}
	}
	return resp
}

// InstallmentResponse is one line of a repayment schedule.
type InstallmentResponse struct {
	InstallmentNumber int                      `json:"installment_number"`
	DueDate           string                   `json:"due_date"`
	PrincipalAmount   decimal.Decimal          `json:"principal_amount"`
	InterestAmount    decimal.Decimal          `json:"interest_amount"`
	TotalAmount       decimal.Decimal          `json:"total_amount"`
	AmountPaid        decimal.Decimal          `json:"amount_paid"`
	Status            domain.InstallmentStatus `json:"status"`
	PaidDate          *string                  `json:"paid_date,omitempty"`
	DaysOverdue       int                      `json:"days_overdue"`
	LateFee           decimal.Decimal          `json:"late_fee"`
}

// ScheduleResponse is a loan's schedule as of a day.
type ScheduleResponse struct {
	Loan           *LoanResponse          `json:"loan"`
	Installments   []*InstallmentResponse `json:"installments"`
	MonthlyPayment decimal.Decimal        `json:"monthly_payment"`
	TotalDue       decimal.Decimal        `json:"total_due"`
	TotalPaid      decimal.Decimal        `json:"total_paid"`
	TotalLateFees  decimal.Decimal        `json:"total_late_fees"`
	Overdue        bool                   `json:"overdue"`
	AsOf           string                 `json:"as_of"`
}

// ScheduleFromUseCase converts a resolved schedule.
func ScheduleFromUseCase(s *usecase.RepaymentSchedule) *ScheduleResponse {
	resp := &ScheduleResponse{
		Loan:           LoanFromDomain(s.Loan),
		Installments:   make([]*InstallmentResponse, len(s.Lines)),
		MonthlyPayment: s.MonthlyPayment,
		TotalDue:       s.TotalDue,
		TotalPaid:      s.TotalPaid,
		TotalLateFees:  s.TotalLateFees,
		Overdue:        s.Overdue,
		AsOf:           s.AsOf.Format(DateLayout),
	}
	for i, line := range s.Lines {
		inst := line.Installment
		resp.Installments[i] = &InstallmentResponse{
			InstallmentNumber: inst.InstallmentNumber,
			DueDate:           inst.DueDate.Format(DateLayout),
			PrincipalAmount:   inst.PrincipalAmount,
			InterestAmount:    inst.InterestAmount,
			TotalAmount:       inst.TotalAmount,
			AmountPaid:        inst.AmountPaid,
			Status:            line.EffectiveStatus,
			PaidDate:          formatDate(inst.PaidDate),
			DaysOverdue:       line.DaysOverdue,
			LateFee:           line.LateFee,
		}
	}
	return resp
}

// AssessmentResponse represents an eligibility assessment.
type AssessmentResponse struct {
	ID                    int64           `json:"id"`
	MemberID              int64           `json:"member_id"`
	ComputedAt            time.Time       `json:"computed_at"`
	TotalSavings          decimal.Decimal `json:"total_savings"`
	MonthsActive          int             `json:"months_active"`
	AttendanceRatePct     decimal.Decimal `json:"attendance_rate_pct"`
	PaymentConsistencyPct decimal.Decimal `json:"payment_consistency_pct"`
	OutstandingFines      decimal.Decimal `json:"outstanding_fines"`
	Score                 decimal.Decimal `json:"score"`
	Eligible              bool            `json:"eligible"`
	MaxLoanAmount         decimal.Decimal `json:"max_loan_amount"`
	RiskTier              domain.RiskTier `json:"risk_tier"`
	RecommendedTerm       *int            `json:"recommended_term,omitempty"`
	ValidUntil            time.Time       `json:"valid_until"`
	IsCurrent             bool            `json:"is_current"`
}

// AssessmentFromDomain converts a domain assessment.
func AssessmentFromDomain(a *domain.EligibilityAssessment) *AssessmentResponse {
	return &AssessmentResponse{
		ID:                    a.ID,
		MemberID:              a.MemberID,
		ComputedAt:            a.ComputedAt,
		TotalSavings:          a.Metrics.TotalSavings,
		MonthsActive:          a.Metrics.MonthsActive,
		AttendanceRatePct:     a.Metrics.AttendanceRatePct,
		PaymentConsistencyPct: a.Metrics.PaymentConsistencyPct,
		OutstandingFines:      a.Metrics.OutstandingFines,
		Score:                 a.Score,
		Eligible:              a.Eligible,
		MaxLoanAmount:         a.MaxLoanAmount,
		RiskTier:              a.RiskTier,
		RecommendedTerm:       a.RecommendedTerm,
		ValidUntil:            a.ValidUntil,
		IsCurrent:             a.IsCurrent,
	}
}

// AssessmentsFromDomain converts domain assessments.
func AssessmentsFromDomain(assessments []*domain.EligibilityAssessment) []*AssessmentResponse {
	result := make([]*AssessmentResponse, len(assessments))
	for i, a := range assessments {
		result[i] = AssessmentFromDomain(a)
	}
	return result
}

// EligibilityResponse is the answer to a loan eligibility check.
type EligibilityResponse struct {
	MemberID        int64            `json:"member_id"`
	GroupID         int64            `json:"group_id"`
	RequestedAmount decimal.Decimal  `json:"requested_amount"`
	Eligible        bool             `json:"eligible"`
	Reason          string           `json:"reason,omitempty"`
	RiskTier        domain.RiskTier  `json:"risk_tier"`
	Score           decimal.Decimal  `json:"score"`
	MaxLoanAmount   decimal.Decimal  `json:"max_loan_amount"`
	SuggestedAmount *decimal.Decimal `json:"suggested_amount,omitempty"`
	SuggestedTerm   *int             `json:"suggested_term,omitempty"`
	SuggestedRate   *decimal.Decimal `json:"suggested_rate,omitempty"`
	AssessmentID    int64            `json:"assessment_id,omitempty"`
}

// EligibilityFromDomain converts an eligibility result.
func EligibilityFromDomain(r *domain.EligibilityResult) *EligibilityResponse {
	return &EligibilityResponse{
		MemberID:        r.MemberID,
		GroupID:         r.GroupID,
		RequestedAmount: r.RequestedAmount,
		Eligible:        r.Eligible,
		Reason:          r.Reason,
		RiskTier:        r.RiskTier,
		Score:           r.Score,
		MaxLoanAmount:   r.MaxLoanAmount,
		SuggestedAmount: r.SuggestedAmount,
		SuggestedTerm:   r.SuggestedTerm,
		SuggestedRate:   r.SuggestedRate,
		AssessmentID:    r.AssessmentID,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

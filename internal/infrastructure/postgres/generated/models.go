package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type EligibilityAssessment struct {
	ID                    int64              `json:"id"`
	MemberID              int64              `json:"member_id"`
	ComputedAt            pgtype.Timestamptz `json:"computed_at"`
	TotalSavings          pgtype.Numeric     `json:"total_savings"`
	MonthsActive          int32              `json:"months_active"`
	AttendanceRatePct     pgtype.Numeric     `json:"attendance_rate_pct"`
	PaymentConsistencyPct pgtype.Numeric     `json:"payment_consistency_pct"`
	OutstandingFines      pgtype.Numeric     `json:"outstanding_fines"`
	Score                 pgtype.Numeric     `json:"score"`
	Eligible              bool               `json:"eligible"`
	MaxLoanAmount         pgtype.Numeric     `json:"max_loan_amount"`
	RiskTier              string             `json:"risk_tier"`
	RecommendedTerm       pgtype.Int4        `json:"recommended_term"`
	ValidUntil            pgtype.Timestamptz `json:"valid_until"`
	IsCurrent             bool               `json:"is_current"`
}

type LedgerEntry struct {
	ID                   int64              `json:"id"`
	GroupID              int64              `json:"group_id"`
	MemberID             pgtype.Int8        `json:"member_id"`
	LoanID               pgtype.Int8        `json:"loan_id"`
	TransactionDate      pgtype.Date        `json:"transaction_date"`
	Category             string             `json:"category"`
	PersonalDelta        pgtype.Numeric     `json:"personal_delta"`
	EcdDelta             pgtype.Numeric     `json:"ecd_delta"`
	SocialDelta          pgtype.Numeric     `json:"social_delta"`
	TargetDelta          pgtype.Numeric     `json:"target_delta"`
	FinesDelta           pgtype.Numeric     `json:"fines_delta"`
	LoanTakenDelta       pgtype.Numeric     `json:"loan_taken_delta"`
	LoanRepaymentDelta   pgtype.Numeric     `json:"loan_repayment_delta"`
	InterestDelta        pgtype.Numeric     `json:"interest_delta"`
	PersonalBalance      pgtype.Numeric     `json:"personal_balance"`
	EcdBalance           pgtype.Numeric     `json:"ecd_balance"`
	SocialBalance        pgtype.Numeric     `json:"social_balance"`
	TargetBalance        pgtype.Numeric     `json:"target_balance"`
	FinesBalance         pgtype.Numeric     `json:"fines_balance"`
	LoanTakenBalance     pgtype.Numeric     `json:"loan_taken_balance"`
	LoanRepaymentBalance pgtype.Numeric     `json:"loan_repayment_balance"`
	InterestBalance      pgtype.Numeric     `json:"interest_balance"`
	TotalBalance         pgtype.Numeric     `json:"total_balance"`
	ExternalRef          pgtype.Text        `json:"external_ref"`
	Description          string             `json:"description"`
	Status               string             `json:"status"`
	StatusReason         string             `json:"status_reason"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

type Loan struct {
	ID                  int64              `json:"id"`
	GroupID             int64              `json:"group_id"`
	BorrowerID          int64              `json:"borrower_id"`
	Principal           pgtype.Numeric     `json:"principal"`
	AnnualInterestRate  pgtype.Numeric     `json:"annual_interest_rate"`
	TermMonths          int32              `json:"term_months"`
	Status              string             `json:"status"`
	OutstandingBalance  pgtype.Numeric     `json:"outstanding_balance"`
	TotalRepaid         pgtype.Numeric     `json:"total_repaid"`
	Purpose             string             `json:"purpose"`
	RequestDate         pgtype.Date        `json:"request_date"`
	ApprovalDate        pgtype.Date        `json:"approval_date"`
	DisbursalDate       pgtype.Date        `json:"disbursal_date"`
	DueDate             pgtype.Date        `json:"due_date"`
	ClosedDate          pgtype.Date        `json:"closed_date"`
	DisbursementEntryID pgtype.Int8        `json:"disbursement_entry_id"`
	Version             int64              `json:"version"`
	CreatedAt           pgtype.Timestamptz `json:"created_at"`
	UpdatedAt           pgtype.Timestamptz `json:"updated_at"`
}

type RepaymentInstallment struct {
	ID                int64              `json:"id"`
	LoanID            int64              `json:"loan_id"`
	InstallmentNumber int32              `json:"installment_number"`
	DueDate           pgtype.Date        `json:"due_date"`
	PrincipalAmount   pgtype.Numeric     `json:"principal_amount"`
	InterestAmount    pgtype.Numeric     `json:"interest_amount"`
	TotalAmount       pgtype.Numeric     `json:"total_amount"`
	AmountPaid        pgtype.Numeric     `json:"amount_paid"`
	Status            string             `json:"status"`
	PaidDate          pgtype.Date        `json:"paid_date"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

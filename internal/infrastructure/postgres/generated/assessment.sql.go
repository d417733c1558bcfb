package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAssessment = `-- name: CreateAssessment :one
INSERT INTO eligibility_assessments (
    member_id, computed_at, total_savings, months_active, attendance_rate_pct, payment_consistency_pct,
    outstanding_fines, score, eligible, max_loan_amount, risk_tier, recommended_term, valid_until,
    is_current
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
)
RETURNING id
`

type CreateAssessmentParams struct {
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

func (q *Queries) CreateAssessment(ctx context.Context, arg CreateAssessmentParams) (int64, error) {
	row := q.db.QueryRow(ctx, createAssessment,
		arg.MemberID,
		arg.ComputedAt,
		arg.TotalSavings,
		arg.MonthsActive,
		arg.AttendanceRatePct,
		arg.PaymentConsistencyPct,
		arg.OutstandingFines,
		arg.Score,
		arg.Eligible,
		arg.MaxLoanAmount,
		arg.RiskTier,
		arg.RecommendedTerm,
		arg.ValidUntil,
		arg.IsCurrent,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getCurrentAssessment = `-- name: GetCurrentAssessment :one
SELECT id, member_id, computed_at, total_savings, months_active, attendance_rate_pct, payment_consistency_pct, outstanding_fines, score, eligible, max_loan_amount, risk_tier, recommended_term, valid_until, is_current FROM eligibility_assessments
WHERE member_id = $1 AND is_current
ORDER BY id DESC
LIMIT 1
`

func (q *Queries) GetCurrentAssessment(ctx context.Context, memberID int64) (EligibilityAssessment, error) {
	row := q.db.QueryRow(ctx, getCurrentAssessment, memberID)
	var i EligibilityAssessment
	err := row.Scan(
	&i.ID,
	&i.MemberID,
	&i.ComputedAt,
	&i.TotalSavings,
	&i.MonthsActive,
	&i.AttendanceRatePct,
	&i.PaymentConsistencyPct,
	&i.OutstandingFines,
	&i.Score,
	&i.Eligible,
	&i.MaxLoanAmount,
	&i.RiskTier,
	&i.RecommendedTerm,
	&i.ValidUntil,
	&i.IsCurrent,
	)
	return i, err
}

const listAssessmentsByMember = `-- name: ListAssessmentsByMember :many
SELECT id, member_id, computed_at, total_savings, months_active, attendance_rate_pct, payment_consistency_pct, outstanding_fines, score, eligible, max_loan_amount, risk_tier, recommended_term, valid_until, is_current FROM eligibility_assessments
WHERE member_id = $1
ORDER BY id DESC
LIMIT $2 OFFSET $3
`

type ListAssessmentsByMemberParams struct {
	MemberID int64 `json:"member_id"`
	Limit    int32 `json:"limit"`
	Offset   int32 `json:"offset"`
}

func (q *Queries) ListAssessmentsByMember(ctx context.Context, arg ListAssessmentsByMemberParams) ([]EligibilityAssessment, error) {
	rows, err := q.db.Query(ctx, listAssessmentsByMember,
		arg.MemberID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []EligibilityAssessment{}
	for rows.Next() {
		var i EligibilityAssessment
		if err := rows.Scan(
			&i.ID,
			&i.MemberID,
			&i.ComputedAt,
			&i.TotalSavings,
			&i.MonthsActive,
			&i.AttendanceRatePct,
			&i.PaymentConsistencyPct,
			&i.OutstandingFines,
			&i.Score,
			&i.Eligible,
			&i.MaxLoanAmount,
			&i.RiskTier,
			&i.RecommendedTerm,
			&i.ValidUntil,
			&i.IsCurrent,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const lockMemberAssessments = `-- name: LockMemberAssessments :exec
SELECT pg_advisory_xact_lock(hashtextextended('member:' || $1::bigint::text, 0))
`

func (q *Queries) LockMemberAssessments(ctx context.Context, memberID int64) error {
	_, err := q.db.Exec(ctx, lockMemberAssessments, memberID)
	return err
}

const markAssessmentsNotCurrent = `-- name: MarkAssessmentsNotCurrent :exec
UPDATE eligibility_assessments SET is_current = FALSE
WHERE member_id = $1 AND is_current
`

func (q *Queries) MarkAssessmentsNotCurrent(ctx context.Context, memberID int64) error {
	_, err := q.db.Exec(ctx, markAssessmentsNotCurrent, memberID)
	return err
}

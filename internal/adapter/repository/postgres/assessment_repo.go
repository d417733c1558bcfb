package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/infrastructure/postgres/generated"
	"github.com/iho/vslaledger/internal/usecase"
)

const currentAssessmentConstraint = "uq_eligibility_assessments_current"

// AssessmentRepository implements usecase.AssessmentRepository.
type AssessmentRepository struct {
	queries *generated.Queries
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return newAssessmentRepository(pool)
}

func newAssessmentRepository(db generated.DBTX) *AssessmentRepository {
	return &AssessmentRepository{queries: generated.New(db)}
}

// LockMember takes a transaction-scoped advisory lock on the member's assessments.
func (r *AssessmentRepository) LockMember(ctx context.Context, tx usecase.Transaction, memberID int64) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}
	return queries.LockMemberAssessments(ctx, memberID)
}

// MarkNotCurrent clears the current flag on the member's assessments.
func (r *AssessmentRepository) MarkNotCurrent(ctx context.Context, tx usecase.Transaction, memberID int64) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}
	return queries.MarkAssessmentsNotCurrent(ctx, memberID)
}

// Create inserts an assessment and assigns its ID.
func (r *AssessmentRepository) Create(ctx context.Context, tx usecase.Transaction, a *domain.EligibilityAssessment) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	id, err := queries.CreateAssessment(ctx, generated.CreateAssessmentParams{
		MemberID:              a.MemberID,
		ComputedAt:            timeToPgTimestamptz(a.ComputedAt),
		TotalSavings:          decimalToNumeric(a.Metrics.TotalSavings),
		MonthsActive:          int32(a.Metrics.MonthsActive),
		AttendanceRatePct:     decimalToNumeric(a.Metrics.AttendanceRatePct),
		PaymentConsistencyPct: decimalToNumeric(a.Metrics.PaymentConsistencyPct),
		OutstandingFines:      decimalToNumeric(a.Metrics.OutstandingFines),
		Score:                 decimalToNumeric(a.Score),
		Eligible:              a.Eligible,
		MaxLoanAmount:         decimalToNumeric(a.MaxLoanAmount),
		RiskTier:              string(a.RiskTier),
		RecommendedTerm:       intPtrToPgInt4(a.RecommendedTerm),
		ValidUntil:            timeToPgTimestamptz(a.ValidUntil),
		IsCurrent:             a.IsCurrent,
	})
	if err != nil {
		if isUniqueViolation(err, currentAssessmentConstraint) {
			return fmt.Errorf("%w: member %d already has a current assessment", domain.ErrConcurrencyConflict, a.MemberID)
		}
		return err
	}

	a.ID = id
	return nil
}

// GetCurrent returns the member's current assessment.
func (r *AssessmentRepository) GetCurrent(ctx context.Context, memberID int64) (*domain.EligibilityAssessment, error) {
	row, err := r.queries.GetCurrentAssessment(ctx, memberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssessmentNotFound
		}
		return nil, err
	}

	return rowToAssessment(row), nil
}

// ListByMember returns the member's assessments, newest first.
func (r *AssessmentRepository) ListByMember(ctx context.Context, memberID int64, limit, offset int) ([]*domain.EligibilityAssessment, error) {
	rows, err := r.queries.ListAssessmentsByMember(ctx, generated.ListAssessmentsByMemberParams{
		MemberID: memberID,
		Limit:    clampInt32(limit),
		Offset:   clampInt32(offset),
	})
	if err != nil {
		return nil, err
	}

	assessments := make([]*domain.EligibilityAssessment, 0, len(rows))
	for _, row := range rows {
		assessments = append(assessments, rowToAssessment(row))
	}
	return assessments, nil
}

func rowToAssessment(row generated.EligibilityAssessment) *domain.EligibilityAssessment {
	return &domain.EligibilityAssessment{
		ID:         row.ID,
		MemberID:   row.MemberID,
		ComputedAt: pgTimestamptzToTime(row.ComputedAt),
		Metrics: domain.EligibilityMetrics{
			TotalSavings:          numericToDecimal(row.TotalSavings),
			MonthsActive:          int(row.MonthsActive),
			AttendanceRatePct:     numericToDecimal(row.AttendanceRatePct),
			PaymentConsistencyPct: numericToDecimal(row.PaymentConsistencyPct),
			OutstandingFines:      numericToDecimal(row.OutstandingFines),
		},
		Score:           numericToDecimal(row.Score),
		Eligible:        row.Eligible,
		MaxLoanAmount:   numericToDecimal(row.MaxLoanAmount),
		RiskTier:        domain.RiskTier(row.RiskTier),
		RecommendedTerm: pgInt4ToIntPtr(row.RecommendedTerm),
		ValidUntil:      pgTimestamptzToTime(row.ValidUntil),
		IsCurrent:       row.IsCurrent,
	}
}

var _ usecase.AssessmentRepository = (*AssessmentRepository)(nil)

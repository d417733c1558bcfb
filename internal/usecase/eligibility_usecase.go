package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
)

// EligibilityUseCase scores members and answers loan eligibility questions.
type EligibilityUseCase struct {
	txManager      TransactionManager
	assessmentRepo AssessmentRepository
	loanRepo       LoanRepository
	validity       time.Duration
	retrier        Retrier
	observer       Observer
	events         emitter
	now            func() time.Time
}

// NewEligibilityUseCase creates a new EligibilityUseCase. A non-positive
// validity falls back to domain.AssessmentValidity.
func NewEligibilityUseCase(
	txManager TransactionManager,
	assessmentRepo AssessmentRepository,
	loanRepo LoanRepository,
	validity time.Duration,
	retrier Retrier,
	notifier Notifier,
	idGen IDGenerator,
	observer Observer,
	logger zerolog.Logger,
) *EligibilityUseCase {
	if observer == nil {
		observer = NopObserver{}
	}
	if validity <= 0 {
		validity = domain.AssessmentValidity
	}

	return &EligibilityUseCase{
		txManager:      txManager,
		assessmentRepo: assessmentRepo,
		loanRepo:       loanRepo,
		validity:       validity,
		retrier:        retrier,
		observer:       observer,
		events:         emitter{notifier: notifier, idGen: idGen, logger: logger},
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (uc *EligibilityUseCase) WithClock(now func() time.Time) *EligibilityUseCase {
	uc.now = now
	return uc
}

// AssessEligibility scores a member from externally computed metrics and
// makes the result the member's current assessment.
func (uc *EligibilityUseCase) AssessEligibility(ctx context.Context, memberID int64, metrics domain.EligibilityMetrics) (*domain.EligibilityAssessment, error) {
	assessment, err := domain.NewAssessment(memberID, metrics, uc.now(), uc.validity)
	if err != nil {
		return nil, err
	}

	err = retry(ctx, uc.retrier, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := uc.assessmentRepo.LockMember(ctx, tx, memberID); err != nil {
			return err
		}

		if err := uc.assessmentRepo.MarkNotCurrent(ctx, tx, memberID); err != nil {
			return err
		}

		if err := uc.assessmentRepo.Create(ctx, tx, assessment); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	uc.observer.Assessed(assessment.RiskTier, assessment.Score)

	member := memberID
	uc.events.emit(ctx, &domain.Event{
		AggregateID:   assessment.ID,
		AggregateType: domain.AggregateTypeAssessment,
		EventType:     domain.EventTypeMemberAssessed,
		MemberID:      &member,
		Payload: map[string]any{
			"score":           assessment.Score.String(),
			"risk_tier":       string(assessment.RiskTier),
			"eligible":        assessment.Eligible,
			"max_loan_amount": assessment.MaxLoanAmount.StringFixed(domain.MoneyScale),
		},
		OccurredAt: assessment.ComputedAt,
	})

	return assessment, nil
}

// CheckLoanEligibility decides whether a member may borrow amount in a
// group now, using the member's current unexpired assessment.
func (uc *EligibilityUseCase) CheckLoanEligibility(ctx context.Context, groupID, memberID int64, amount decimal.Decimal) (*domain.EligibilityResult, error) {
	if groupID <= 0 || memberID <= 0 {
		return nil, domain.ErrMissingID
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	assessment, err := uc.assessmentRepo.GetCurrent(ctx, memberID)
	if err != nil && !errors.Is(err, domain.ErrAssessmentNotFound) {
		return nil, err
	}

	if assessment == nil || !assessment.IsValidAt(uc.now()) {
		return &domain.EligibilityResult{
			MemberID:        memberID,
			GroupID:         groupID,
			RequestedAmount: amount,
			Reason:          domain.ReasonNoAssessment,
			RiskTier:        domain.RiskIneligible,
			Score:           decimal.Zero,
			MaxLoanAmount:   decimal.Zero,
		}, nil
	}

	result := assessment.Evaluate(groupID, amount)
	if !result.Eligible {
		return result, nil
	}

	active, err := uc.loanRepo.List(ctx, domain.LoanFilter{
		GroupID:    groupID,
		BorrowerID: memberID,
		Statuses:   domain.ActiveLoanStatuses,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}

	if len(active) > 0 {
		result.Eligible = false
		result.Reason = domain.ReasonHasActiveLoan
		result.SuggestedTerm = nil
		result.SuggestedRate = nil
	}

	return result, nil
}

// GetCurrentAssessment returns the member's current assessment.
func (uc *EligibilityUseCase) GetCurrentAssessment(ctx context.Context, memberID int64) (*domain.EligibilityAssessment, error) {
	if memberID <= 0 {
		return nil, domain.ErrMissingID
	}
	return uc.assessmentRepo.GetCurrent(ctx, memberID)
}

// ListAssessments returns a member's assessment history, newest first.
func (uc *EligibilityUseCase) ListAssessments(ctx context.Context, memberID int64, page, pageSize int) ([]*domain.EligibilityAssessment, error) {
	if memberID <= 0 {
		return nil, domain.ErrMissingID
	}

	page, pageSize = domain.ValidatePagination(page, pageSize)
	return uc.assessmentRepo.ListByMember(ctx, memberID, pageSize, (page-1)*pageSize)
}

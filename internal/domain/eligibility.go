package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RiskTier buckets members by eligibility score.
type RiskTier string

const (
	RiskLow        RiskTier = "LOW"
	RiskMedium     RiskTier = "MEDIUM"
	RiskHigh       RiskTier = "HIGH"
	RiskIneligible RiskTier = "INELIGIBLE"
)

// AssessmentValidity is how long an assessment stays usable.
const AssessmentValidity = 90 * 24 * time.Hour

var (
	scoreMax            = decimal.NewFromInt(100)
	attendanceWeight    = decimal.NewFromInt(25)
	consistencyWeight   = decimal.NewFromInt(25)
	maxFinePenalty      = decimal.NewFromInt(10)
	finePenaltyDivisor  = decimal.NewFromInt(100)
	lowRiskThreshold    = decimal.NewFromInt(70)
	mediumRiskThreshold = decimal.NewFromInt(50)
	highRiskThreshold   = decimal.NewFromInt(30)
)

type savingsBand struct {
	min   decimal.Decimal
	bonus decimal.Decimal
}

// Highest band first.
var savingsBands = []savingsBand{
	{decimal.NewFromInt(1000), decimal.NewFromInt(20)},
	{decimal.NewFromInt(500), decimal.NewFromInt(15)},
	{decimal.NewFromInt(200), decimal.NewFromInt(10)},
	{decimal.NewFromInt(100), decimal.NewFromInt(5)},
}

// tierPolicy is what a risk tier grants.
type tierPolicy struct {
	LoanMultiplier  decimal.Decimal
	RecommendedTerm int
	SuggestedTerm   int
	SuggestedRate   decimal.Decimal
}

var tierPolicies = map[RiskTier]tierPolicy{
	RiskLow:    {decimal.RequireFromString("3.0"), 12, 12, decimal.NewFromInt(15)},
	RiskMedium: {decimal.RequireFromString("2.0"), 6, 8, decimal.NewFromInt(18)},
	RiskHigh:   {decimal.RequireFromString("1.0"), 3, 6, decimal.NewFromInt(22)},
}

// EligibilityMetrics are the externally computed inputs of a score.
type EligibilityMetrics struct {
	TotalSavings          decimal.Decimal
	MonthsActive          int
	AttendanceRatePct     decimal.Decimal
	PaymentConsistencyPct decimal.Decimal
	OutstandingFines      decimal.Decimal
}

// Validate rejects out-of-range metrics.
func (m EligibilityMetrics) Validate() error {
	switch {
	case m.TotalSavings.IsNegative():
		return fmt.Errorf("%w: total savings is negative", ErrInvalidMetric)
	case m.MonthsActive < 0:
		return fmt.Errorf("%w: months active is negative", ErrInvalidMetric)
	case m.AttendanceRatePct.IsNegative() || m.AttendanceRatePct.GreaterThan(scoreMax):
		return fmt.Errorf("%w: attendance rate must be within 0..100", ErrInvalidMetric)
	case m.PaymentConsistencyPct.IsNegative() || m.PaymentConsistencyPct.GreaterThan(scoreMax):
		return fmt.Errorf("%w: payment consistency must be within 0..100", ErrInvalidMetric)
	case m.OutstandingFines.IsNegative():
		return fmt.Errorf("%w: outstanding fines is negative", ErrInvalidMetric)
	}
	return nil
}

// Score computes the composite 0..100 creditworthiness score.
func (m EligibilityMetrics) Score() decimal.Decimal {
	score := tenurePoints(m.MonthsActive).
		Add(m.AttendanceRatePct.Div(scoreMax).Mul(attendanceWeight)).
		Add(m.PaymentConsistencyPct.Div(scoreMax).Mul(consistencyWeight)).
		Sub(decimal.Min(maxFinePenalty, m.OutstandingFines.Div(finePenaltyDivisor))).
		Add(savingsBonus(m.TotalSavings))

	return clampScore(score).Round(MoneyScale)
}

func tenurePoints(months int) decimal.Decimal {
	switch {
	case months >= 12:
		return decimal.NewFromInt(30)
	case months >= 6:
		return decimal.NewFromInt(20)
	case months >= 3:
		return decimal.NewFromInt(10)
	}
	return decimal.Zero
}

func savingsBonus(savings decimal.Decimal) decimal.Decimal {
	for _, band := range savingsBands {
		if savings.GreaterThanOrEqual(band.min) {
			return band.bonus
		}
	}
	return decimal.Zero
}

func clampScore(score decimal.Decimal) decimal.Decimal {
	if score.IsNegative() {
		return decimal.Zero
	}
	if score.GreaterThan(scoreMax) {
		return scoreMax
	}
	return score
}

// TierForScore maps a score to its risk tier.
func TierForScore(score decimal.Decimal) RiskTier {
	switch {
	case score.GreaterThanOrEqual(lowRiskThreshold):
		return RiskLow
	case score.GreaterThanOrEqual(mediumRiskThreshold):
		return RiskMedium
	case score.GreaterThanOrEqual(highRiskThreshold):
		return RiskHigh
	}
	return RiskIneligible
}

// EligibilityAssessment is a stored scoring of one member.
type EligibilityAssessment struct {
	ID              int64
	MemberID        int64
	ComputedAt      time.Time
	Metrics         EligibilityMetrics
	Score           decimal.Decimal
	Eligible        bool
	MaxLoanAmount   decimal.Decimal
	RiskTier        RiskTier
	RecommendedTerm *int
	ValidUntil      time.Time
	IsCurrent       bool
}

// NewAssessment scores the metrics and derives the lending terms.
func NewAssessment(memberID int64, metrics EligibilityMetrics, now time.Time, validity time.Duration) (*EligibilityAssessment, error) {
	if memberID <= 0 {
		return nil, ErrMissingID
	}
	if err := metrics.Validate(); err != nil {
		return nil, err
	}
	if validity <= 0 {
		validity = AssessmentValidity
	}

	score := metrics.Score()
	tier := TierForScore(score)

	a := &EligibilityAssessment{
		MemberID:      memberID,
		ComputedAt:    now,
		Metrics:       metrics,
		Score:         score,
		RiskTier:      tier,
		MaxLoanAmount: decimal.Zero,
		ValidUntil:    now.Add(validity),
		IsCurrent:     true,
	}

	if policy, ok := tierPolicies[tier]; ok {
		term := policy.RecommendedTerm
		a.Eligible = true
		a.MaxLoanAmount = metrics.TotalSavings.Mul(policy.LoanMultiplier).Round(MoneyScale)
		a.RecommendedTerm = &term
	}

	return a, nil
}

// IsValidAt reports whether the assessment can still be relied on.
func (a *EligibilityAssessment) IsValidAt(now time.Time) bool {
	return a.IsCurrent && now.Before(a.ValidUntil)
}

// EligibilityResult answers whether a member may borrow an amount now.
type EligibilityResult struct {
	MemberID        int64
	GroupID         int64
	RequestedAmount decimal.Decimal
	Eligible        bool
	Reason          string
	RiskTier        RiskTier
	Score           decimal.Decimal
	MaxLoanAmount   decimal.Decimal
	// SuggestedAmount is the cap offered when the request exceeds it.
	SuggestedAmount *decimal.Decimal
	SuggestedTerm   *int
	SuggestedRate   *decimal.Decimal
	AssessmentID    int64
}

// Rejection reasons
const (
	ReasonNoAssessment  = "no current eligibility assessment"
	ReasonNotEligible   = "member is not eligible for a loan"
	ReasonExceedsCap    = "requested amount exceeds maximum loan amount"
	ReasonHasActiveLoan = "member already has an active loan in this group"
)

// Evaluate checks a requested amount against the assessment. Active-loan
// checks happen in the caller, which owns loan lookups.
func (a *EligibilityAssessment) Evaluate(groupID int64, requested decimal.Decimal) *EligibilityResult {
	result := &EligibilityResult{
		MemberID:        a.MemberID,
		GroupID:         groupID,
		RequestedAmount: requested,
		RiskTier:        a.RiskTier,
		Score:           a.Score,
		MaxLoanAmount:   a.MaxLoanAmount,
		AssessmentID:    a.ID,
	}

	if !a.Eligible {
		result.Reason = ReasonNotEligible
		return result
	}

	if requested.GreaterThan(a.MaxLoanAmount) {
		capped := a.MaxLoanAmount
		result.Reason = ReasonExceedsCap
		result.SuggestedAmount = &capped
		return result
	}

	policy := tierPolicies[a.RiskTier]
	term := policy.SuggestedTerm
	if a.RecommendedTerm != nil && *a.RecommendedTerm < term {
		term = *a.RecommendedTerm
	}
	rate := policy.SuggestedRate

	result.Eligible = true
	result.SuggestedTerm = &term
	result.SuggestedRate = &rate
	return result
}

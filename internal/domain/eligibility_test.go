package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseMetrics() EligibilityMetrics {
	return EligibilityMetrics{
		TotalSavings:          d("600"),
		MonthsActive:          7,
		AttendanceRatePct:     d("80"),
		PaymentConsistencyPct: d("90"),
		OutstandingFines:      decimal.Zero,
	}
}

func TestNewAssessment_LowRisk(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	a, err := NewAssessment(9, baseMetrics(), now, 0)
	require.NoError(t, err)

	assert.True(t, a.Score.Equal(d("77.5")), "score %s", a.Score)
	assert.True(t, a.Eligible)
	assert.Equal(t, RiskLow, a.RiskTier)
	assert.True(t, a.MaxLoanAmount.Equal(d("1800")), "max %s", a.MaxLoanAmount)
	require.NotNil(t, a.RecommendedTerm)
	assert.Equal(t, 12, *a.RecommendedTerm)
	assert.Equal(t, now.Add(90*24*time.Hour), a.ValidUntil)
	assert.True(t, a.IsValidAt(now.Add(89*24*time.Hour)))
	assert.False(t, a.IsValidAt(now.Add(90*24*time.Hour)))
}

func TestTierMapping(t *testing.T) {
	tests := []struct {
		score    string
		tier     RiskTier
		eligible bool
	}{
		{"100", RiskLow, true},
		{"70", RiskLow, true},
		{"69.99", RiskMedium, true},
		{"50", RiskMedium, true},
		{"49.99", RiskHigh, true},
		{"30", RiskHigh, true},
		{"29.99", RiskIneligible, false},
		{"0", RiskIneligible, false},
	}

	for _, tt := range tests {
		tier := TierForScore(d(tt.score))
		assert.Equal(t, tt.tier, tier, "score %s", tt.score)
		_, ok := tierPolicies[tier]
		assert.Equal(t, tt.eligible, ok, "score %s", tt.score)
	}
}

func TestNewAssessment_Ineligible(t *testing.T) {
	m := EligibilityMetrics{
		TotalSavings:          d("50"),
		MonthsActive:          1,
		AttendanceRatePct:     d("40"),
		PaymentConsistencyPct: d("20"),
		OutstandingFines:      d("5000"),
	}

	a, err := NewAssessment(1, m, time.Now(), 0)
	require.NoError(t, err)

	// 0 + 10 + 5 - 10 + 0
	assert.True(t, a.Score.Equal(d("5")), "score %s", a.Score)
	assert.False(t, a.Eligible)
	assert.True(t, a.MaxLoanAmount.IsZero())
	assert.Nil(t, a.RecommendedTerm)
}

func TestScore_Clamped(t *testing.T) {
	m := EligibilityMetrics{
		TotalSavings:          d("5000"),
		MonthsActive:          48,
		AttendanceRatePct:     d("100"),
		PaymentConsistencyPct: d("100"),
	}
	assert.True(t, m.Score().Equal(d("100")), "score %s", m.Score())

	m = EligibilityMetrics{OutstandingFines: d("900")}
	assert.True(t, m.Score().IsZero(), "score %s", m.Score())
}

func TestScore_Monotonic(t *testing.T) {
	pcts := []string{"0", "10", "33.3", "50", "75", "99.9", "100"}
	fines := []string{"0", "1", "99", "100", "550", "999", "1000", "5000"}

	prev := decimal.NewFromInt(-1)
	for _, p := range pcts {
		m := baseMetrics()
		m.AttendanceRatePct = d(p)
		s := m.Score()
		assert.True(t, s.GreaterThanOrEqual(prev), "attendance %s lowered score", p)
		prev = s
	}

	prev = decimal.NewFromInt(-1)
	for _, p := range pcts {
		m := baseMetrics()
		m.PaymentConsistencyPct = d(p)
		s := m.Score()
		assert.True(t, s.GreaterThanOrEqual(prev), "consistency %s lowered score", p)
		prev = s
	}

	prev = decimal.NewFromInt(101)
	for _, f := range fines {
		m := baseMetrics()
		m.OutstandingFines = d(f)
		s := m.Score()
		assert.True(t, s.LessThanOrEqual(prev), "fines %s raised score", f)
		prev = s
	}
}

func TestEligibilityMetrics_Validate(t *testing.T) {
	bad := []EligibilityMetrics{
		{TotalSavings: d("-1")},
		{MonthsActive: -1},
		{AttendanceRatePct: d("101")},
		{PaymentConsistencyPct: d("-3")},
		{OutstandingFines: d("-0.01")},
	}
	for _, m := range bad {
		err := m.Validate()
		assert.True(t, errors.Is(err, ErrInvalidMetric), "expected ErrInvalidMetric for %+v, got %v", m, err)
	}
	assert.NoError(t, baseMetrics().Validate())
}

func TestEvaluate(t *testing.T) {
	now := time.Now()
	low, _ := NewAssessment(1, baseMetrics(), now, 0)

	res := low.Evaluate(3, d("1000"))
	assert.True(t, res.Eligible)
	require.NotNil(t, res.SuggestedTerm)
	assert.Equal(t, 12, *res.SuggestedTerm)
	assert.True(t, res.SuggestedRate.Equal(d("15")))

	res = low.Evaluate(3, d("1800.01"))
	assert.False(t, res.Eligible)
	assert.Equal(t, ReasonExceedsCap, res.Reason)
	require.NotNil(t, res.SuggestedAmount)
	assert.True(t, res.SuggestedAmount.Equal(d("1800")))

	medium := baseMetrics()
	medium.MonthsActive = 2
	medium.TotalSavings = d("150")
	// 0 + 20 + 22.5 + 5 = 47.5 -> HIGH
	high, _ := NewAssessment(1, medium, now, 0)
	assert.Equal(t, RiskHigh, high.RiskTier)
	res = high.Evaluate(3, d("100"))
	assert.True(t, res.Eligible)
	assert.Equal(t, 3, *res.SuggestedTerm, "term capped by recommended term")
	assert.True(t, res.SuggestedRate.Equal(d("22")))

	medium.MonthsActive = 6
	// 20 + 20 + 22.5 + 5 = 67.5 -> MEDIUM
	med, _ := NewAssessment(1, medium, now, 0)
	assert.Equal(t, RiskMedium, med.RiskTier)
	res = med.Evaluate(3, d("300"))
	assert.True(t, res.Eligible)
	assert.Equal(t, 6, *res.SuggestedTerm)
	assert.True(t, res.SuggestedRate.Equal(d("18")))
}

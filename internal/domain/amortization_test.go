package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule_EvenSplit(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	schedule, err := BuildSchedule(1, d("1200000"), d("12"), 12, start)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	for i, inst := range schedule {
		assert.Equal(t, i+1, inst.InstallmentNumber)
		assert.True(t, inst.PrincipalAmount.Equal(d("100000")), "principal %s", inst.PrincipalAmount)
		assert.True(t, inst.InterestAmount.Equal(d("12000")), "interest %s", inst.InterestAmount)
		assert.True(t, inst.TotalAmount.Equal(d("112000")))
		assert.Equal(t, InstallmentPending, inst.Status)
		assert.True(t, start.AddDate(0, 0, 30*(i+1)).Equal(inst.DueDate), "due %s", inst.DueDate)
	}

	principal, total := ScheduleTotals(schedule)
	assert.True(t, principal.Equal(d("1200000")))
	assert.True(t, total.Equal(d("1344000")))
}

func TestBuildSchedule_LastInstallmentAbsorbsRemainder(t *testing.T) {
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	schedule, err := BuildSchedule(1, d("100000"), d("15"), 3, start)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	assert.True(t, schedule[0].TotalAmount.Equal(d("34583.33")), "got %s", schedule[0].TotalAmount)
	assert.True(t, schedule[1].TotalAmount.Equal(d("34583.33")))
	assert.True(t, schedule[2].PrincipalAmount.Equal(d("33333.34")), "got %s", schedule[2].PrincipalAmount)
	assert.True(t, schedule[2].InterestAmount.Equal(d("1250")))
	assert.True(t, schedule[2].TotalAmount.Equal(d("34583.34")))

	principal, total := ScheduleTotals(schedule)
	assert.True(t, principal.Equal(d("100000")))
	assert.True(t, total.Equal(d("103750.00")), "got %s", total)
}

func TestBuildSchedule_SumsAreExact(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		term      int
	}{
		{"1000", "10", 7},
		{"999.99", "18", 24},
		{"0.12", "22", 24},
		{"250000", "0", 9},
		{"12345.67", "13.5", 11},
	}

	for _, c := range cases {
		schedule, err := BuildSchedule(1, d(c.principal), d(c.rate), c.term, time.Now())
		require.NoError(t, err)

		interest := SimpleInterest(d(c.principal), d(c.rate), c.term)
		principal, total := ScheduleTotals(schedule)

		assert.True(t, principal.Equal(d(c.principal)), "principal sum %s for %+v", principal, c)
		assert.True(t, total.Equal(d(c.principal).Add(interest)), "total sum %s for %+v", total, c)
		for _, inst := range schedule {
			assert.False(t, inst.PrincipalAmount.IsNegative())
			assert.False(t, inst.InterestAmount.IsNegative())
		}
	}
}

func TestBuildSchedule_RejectsBadTerms(t *testing.T) {
	_, err := BuildSchedule(1, d("0"), d("10"), 3, time.Now())
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = BuildSchedule(1, d("100"), d("10"), 25, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTerm)

	_, err = BuildSchedule(1, d("100"), d("-1"), 3, time.Now())
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestBuildSchedule_SharesRoundHalfAwayFromZero(t *testing.T) {
	schedule, err := BuildSchedule(1, d("200"), d("0"), 3, time.Now())
	require.NoError(t, err)

	assert.True(t, schedule[0].PrincipalAmount.Equal(d("66.67")), "got %s", schedule[0].PrincipalAmount)
	assert.True(t, schedule[1].PrincipalAmount.Equal(d("66.67")))
	assert.True(t, schedule[2].PrincipalAmount.Equal(d("66.66")), "got %s", schedule[2].PrincipalAmount)

	// a rounded-up share that would overdraw the last installment is truncated
	schedule, err = BuildSchedule(1, d("0.12"), d("0"), 24, time.Now())
	require.NoError(t, err)
	assert.True(t, schedule[0].PrincipalAmount.IsZero(), "got %s", schedule[0].PrincipalAmount)
	assert.True(t, schedule[23].PrincipalAmount.Equal(d("0.12")))
}

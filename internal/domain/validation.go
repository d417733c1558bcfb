package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxPostingAmount = "1000000000000" // 1 trillion
	MaxExternalRef   = 128
	MaxDescription   = 512
	DefaultPageSize  = 20
	MaxPageSize      = 100

	// DaysPerMonth approximates a month for due-date arithmetic.
	DaysPerMonth = 30
)

var maxPostingAmount = decimal.RequireFromString(MaxPostingAmount)

// ValidateAmount validates a loan or repayment amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if amount.GreaterThan(maxPostingAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrValidation, MaxPostingAmount)
	}

	if !amount.Equal(amount.Round(MoneyScale)) {
		return fmt.Errorf("%w: amount has more than %d decimal places", ErrValidation, MoneyScale)
	}

	return nil
}

// ValidateExternalRef validates an idempotency reference. Empty means none.
func ValidateExternalRef(ref string) error {
	if ref == "" {
		return nil
	}

	if strings.TrimSpace(ref) != ref {
		return fmt.Errorf("%w: external reference has surrounding whitespace", ErrValidation)
	}

	if len(ref) > MaxExternalRef {
		return fmt.Errorf("%w: external reference exceeds %d characters", ErrValidation, MaxExternalRef)
	}

	return nil
}

// ValidateDescription validates free-form entry text.
func ValidateDescription(description string) error {
	if len(description) > MaxDescription {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescription)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters.
// Pages are 1-based.
func ValidatePagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return page, pageSize
}

// DateOf strips the clock from t. Dates carry no timezone logic: the
// calendar day of t as given is kept and pinned to UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns date plus n whole days.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// DaysBetween returns the whole days from a to b (negative if b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  decimal.Decimal
		wantErr bool
	}{
		{"positive", d("10.50"), false},
		{"zero", decimal.Zero, true},
		{"negative", d("-1"), true},
		{"too many decimals", d("1.005"), true},
		{"too large", d("1000000000000.01"), true},
		{"maximum", d(MaxPostingAmount), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateExternalRef(t *testing.T) {
	t.Parallel()

	if err := ValidateExternalRef(""); err != nil {
		t.Fatalf("empty ref should be allowed, got %v", err)
	}
	if err := ValidateExternalRef("MPESA-QX12"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateExternalRef(" MPESA "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected whitespace to be rejected, got %v", err)
	}
	if err := ValidateExternalRef(strings.Repeat("x", MaxExternalRef+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected long ref to be rejected, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	page, size := ValidatePagination(0, 0)
	if page != 1 || size != DefaultPageSize {
		t.Fatalf("expected defaults, got page=%d size=%d", page, size)
	}

	page, size = ValidatePagination(3, MaxPageSize+50)
	if page != 3 || size != MaxPageSize {
		t.Fatalf("expected capped size, got page=%d size=%d", page, size)
	}
}

func TestDateHelpers(t *testing.T) {
	t.Parallel()

	nairobi := time.FixedZone("EAT", 3*60*60)
	late := time.Date(2026, 4, 30, 23, 45, 0, 0, nairobi)

	got := DateOf(late)
	want := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected calendar day kept without zone shift, got %s", got)
	}

	if due := AddDays(late, 30); !due.Equal(time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected AddDays result %s", due)
	}

	if n := DaysBetween(want, want.AddDate(0, 0, 45)); n != 45 {
		t.Fatalf("expected 45 days, got %d", n)
	}
	if n := DaysBetween(want.AddDate(0, 0, 2), want); n != -2 {
		t.Fatalf("expected -2 days, got %d", n)
	}
}

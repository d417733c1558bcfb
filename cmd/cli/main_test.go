package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/adapter/http/dto"
)

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--url", srv.URL}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func jsonServer(t *testing.T, wantPath string, status int, body any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("unexpected path %s, want %s", r.URL.Path, wantPath)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}

	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	if err := printJSON(&out, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON failed: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if out.String() != expected {
		t.Fatalf("unexpected json output:\n%s", out.String())
	}
}

func TestBalanceCmd(t *testing.T) {
	asOf := "2024-03-31"
	srv := jsonServer(t, "/api/v1/groups/3/balance", http.StatusOK, dto.BalanceResponse{
		GroupID: 3,
		AsOf:    &asOf,
		Balances: map[string]decimal.Decimal{
			"personal":   decimal.RequireFromString("900"),
			"loan_taken": decimal.RequireFromString("-300"),
		},
		Total: decimal.RequireFromString("600"),
	})

	out, err := runCLI(t, srv, "balance", "3", "--as-of", asOf)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	for _, want := range []string{"Group 3 as of 2024-03-31", "personal", "900.00", "-300.00", "total", "600.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEntriesCmdSendsFilters(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(dto.ListEntriesResponse{
			Entries: []*dto.EntryResponse{{
				ID:              9,
				TransactionDate: "2024-02-01",
				Category:        "DEPOSIT",
				Status:          "ACTIVE",
				TotalBalance:    decimal.RequireFromString("150"),
				Description:     "weekly meeting savings",
			}},
			Page:     2,
			PageSize: 1,
			Total:    5,
		})
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "entries", "4", "--from", "2024-01-01", "--page", "2", "--page-size", "1")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}

	for _, want := range []string{"from=2024-01-01", "page=2", "page_size=1"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %q", gotQuery, want)
		}
	}
	if strings.Contains(gotQuery, "to=") {
		t.Fatalf("unexpected empty filter in query %q", gotQuery)
	}
	if !strings.Contains(out, "weekly meeting savings") || !strings.Contains(out, "page 2, 1 of 5 entries") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestScheduleCmd(t *testing.T) {
	srv := jsonServer(t, "/api/v1/loans/11/schedule", http.StatusOK, dto.ScheduleResponse{
		Loan: &dto.LoanResponse{ID: 11, Status: "DISBURSED"},
		Installments: []*dto.InstallmentResponse{{
			InstallmentNumber: 1,
			DueDate:           "2024-02-01",
			PrincipalAmount:   decimal.RequireFromString("98.50"),
			InterestAmount:    decimal.RequireFromString("1.50"),
			TotalAmount:       decimal.RequireFromString("100"),
			Status:            "OVERDUE",
			LateFee:           decimal.RequireFromString("0.80"),
		}},
		MonthlyPayment: decimal.RequireFromString("100"),
		TotalDue:       decimal.RequireFromString("100"),
		AsOf:           "2024-02-15",
	})

	out, err := runCLI(t, srv, "schedule", "11")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	for _, want := range []string{"Loan 11 (DISBURSED)", "OVERDUE", "98.50", "late fees 0.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReconcileCmd(t *testing.T) {
	t.Run("consistent", func(t *testing.T) {
		srv := jsonServer(t, "/api/v1/groups/1/reconciliation", http.StatusOK, dto.VerificationResponse{
			GroupID:        1,
			EntriesChecked: 12,
			Consistent:     true,
		})

		out, err := runCLI(t, srv, "reconcile", "1")
		if err != nil {
			t.Fatalf("command failed: %v", err)
		}
		if !strings.Contains(out, "consistent (12 entries checked)") {
			t.Fatalf("unexpected output:\n%s", out)
		}
	})

	t.Run("violations exit non-zero", func(t *testing.T) {
		srv := jsonServer(t, "/api/v1/groups/1/reconciliation", http.StatusOK, dto.VerificationResponse{
			GroupID:        1,
			EntriesChecked: 3,
			Violations: []*dto.ViolationResponse{{
				EntryID:  3,
				Kind:     "running_balance",
				Fund:     "personal",
				Expected: decimal.RequireFromString("110"),
				Actual:   decimal.RequireFromString("150"),
			}},
		})

		out, err := runCLI(t, srv, "reconcile", "1")
		if !errors.Is(err, errInconsistent) {
			t.Fatalf("expected errInconsistent, got %v", err)
		}
		if !strings.Contains(out, "INCONSISTENT") || !strings.Contains(out, "running_balance") {
			t.Fatalf("unexpected output:\n%s", out)
		}
	})
}

func TestAPIErrorsAreReported(t *testing.T) {
	srv := jsonServer(t, "/api/v1/loans/5/schedule", http.StatusNotFound, dto.ErrorResponse{
		Error:   "loan not found",
		Message: "loan 5",
	})

	_, err := runCLI(t, srv, "schedule", "5")
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "loan not found" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestInvalidIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL.Path)
	}))
	defer srv.Close()

	for _, args := range [][]string{
		{"balance", "abc"},
		{"entries", "0"},
		{"schedule", "-1"},
		{"reconcile", "x"},
	} {
		if _, err := runCLI(t, srv, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestMigrateDownRejectsZeroSteps(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := runCLI(t, srv, "migrate", "down", "--steps", "0"); err == nil {
		t.Fatal("expected error")
	}
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iho/vslaledger/internal/adapter/http/dto"
	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// LoanService defines the behavior needed by LoanHandler.
type LoanService interface {
	RequestLoan(ctx context.Context, input usecase.RequestLoanInput) (*domain.Loan, error)
	ApproveLoan(ctx context.Context, loanID int64) (*domain.Loan, error)
	DisburseLoan(ctx context.Context, loanID int64) (*domain.Loan, error)
	CancelLoan(ctx context.Context, loanID int64) (*domain.Loan, error)
	DefaultLoan(ctx context.Context, loanID int64) (*domain.Loan, error)
	RecordRepayment(ctx context.Context, input usecase.RecordRepaymentInput) (*usecase.RepaymentResult, error)
	GetLoan(ctx context.Context, loanID int64) (*domain.Loan, error)
	ListLoans(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)
	ListOverdueLoans(ctx context.Context, groupID int64, today time.Time) ([]*domain.Loan, error)
	GetRepaymentSchedule(ctx context.Context, loanID int64, today time.Time) (*usecase.RepaymentSchedule, error)
}

// LoanHandler handles loan-related HTTP requests.
type LoanHandler struct {
	loanUC LoanService
	now    func() time.Time
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanUC LoanService) *LoanHandler {
	return &LoanHandler{loanUC: loanUC, now: time.Now}
}

// Request records a PENDING loan for the group.
func (h *LoanHandler) Request(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}

	var req dto.RequestLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(groupID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	loan, err := h.loanUC.RequestLoan(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to request loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LoanFromDomain(loan))
}

// List lists the group's loans. Filters: status (comma separated),
// borrower_id, limit, offset.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}

	filter := domain.LoanFilter{
		GroupID: groupID,
		Limit:   parseIntQuery(r, "limit", domain.DefaultPageSize),
		Offset:  parseIntQuery(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("borrower_id"); raw != "" {
		borrower, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || borrower <= 0 {
			writeError(w, http.StatusBadRequest, "invalid borrower ID", raw)
			return
		}
		filter.BorrowerID = borrower
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, domain.LoanStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}

	loans, err := h.loanUC.ListLoans(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to list loans", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListLoansResponse{
		Loans: dto.LoansFromDomain(loans),
		Total: len(loans),
	})
}

// ListOverdue lists the group's overdue loans as of today or as_of.
func (h *LoanHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}

	today, ok := h.asOf(w, r)
	if !ok {
		return
	}

	loans, err := h.loanUC.ListOverdueLoans(r.Context(), groupID, today)
	if err != nil {
		writeDomainError(w, "failed to list overdue loans", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListLoansResponse{
		Loans: dto.LoansFromDomain(loans),
		Total: len(loans),
	})
}

// Get retrieves a loan by ID.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loanID, ok := parseIDParam(r, "loanID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan ID", "")
		return
	}

	loan, err := h.loanUC.GetLoan(r.Context(), loanID)
	if err != nil {
		writeDomainError(w, "failed to get loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// Approve moves a PENDING loan to APPROVED.
func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to approve loan", h.loanUC.ApproveLoan)
}

// Disburse pays out an APPROVED loan.
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to disburse loan", h.loanUC.DisburseLoan)
}

// Cancel withdraws a loan that has not been disbursed.
func (h *LoanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to cancel loan", h.loanUC.CancelLoan)
}

// Default writes a loan off.
func (h *LoanHandler) Default(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to default loan", h.loanUC.DefaultLoan)
}

func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, failure string, change func(context.Context, int64) (*domain.Loan, error)) {
	loanID, ok := parseIDParam(r, "loanID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan ID", "")
		return
	}

	loan, err := change(r.Context(), loanID)
	if err != nil {
		writeDomainError(w, failure, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// RecordRepayment applies a repayment to the loan.
func (h *LoanHandler) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := parseIDParam(r, "loanID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan ID", "")
		return
	}

	var req dto.RecordRepaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(loanID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := h.loanUC.RecordRepayment(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to record repayment", err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.RepaymentFromUseCase(result))
}

// Schedule returns the loan's installments resolved for today or as_of.
func (h *LoanHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	loanID, ok := parseIDParam(r, "loanID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid loan ID", "")
		return
	}

	today, ok := h.asOf(w, r)
	if !ok {
		return
	}

	schedule, err := h.loanUC.GetRepaymentSchedule(r.Context(), loanID, today)
	if err != nil {
		writeDomainError(w, "failed to get schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ScheduleFromUseCase(schedule))
}

func (h *LoanHandler) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := dto.ParseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of date", err.Error())
		return time.Time{}, false
	}
	if date == nil {
		return domain.DateOf(h.now()), true
	}
	return *date, true
}

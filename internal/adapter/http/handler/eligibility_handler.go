package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/adapter/http/dto"
	"github.com/iho/vslaledger/internal/domain"
)

// EligibilityService defines the behavior needed by EligibilityHandler.
type EligibilityService interface {
	AssessEligibility(ctx context.Context, memberID int64, metrics domain.EligibilityMetrics) (*domain.EligibilityAssessment, error)
	CheckLoanEligibility(ctx context.Context, groupID, memberID int64, amount decimal.Decimal) (*domain.EligibilityResult, error)
	GetCurrentAssessment(ctx context.Context, memberID int64) (*domain.EligibilityAssessment, error)
	ListAssessments(ctx context.Context, memberID int64, page, pageSize int) ([]*domain.EligibilityAssessment, error)
}

// EligibilityHandler handles member scoring requests.
type EligibilityHandler struct {
	eligibilityUC EligibilityService
}

// NewEligibilityHandler creates a new EligibilityHandler.
func NewEligibilityHandler(eligibilityUC EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{eligibilityUC: eligibilityUC}
}

// Assess scores a member and stores the assessment as current.
func (h *EligibilityHandler) Assess(w http.ResponseWriter, r *http.Request) {
	memberID, ok := parseIDParam(r, "memberID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid member ID", "")
		return
	}

	var req dto.AssessEligibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	assessment, err := h.eligibilityUC.AssessEligibility(r.Context(), memberID, req.ToDomain())
	if err != nil {
		writeDomainError(w, "failed to assess member", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AssessmentFromDomain(assessment))
}

// Current returns the member's current assessment.
func (h *EligibilityHandler) Current(w http.ResponseWriter, r *http.Request) {
	memberID, ok := parseIDParam(r, "memberID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid member ID", "")
		return
	}

	assessment, err := h.eligibilityUC.GetCurrentAssessment(r.Context(), memberID)
	if err != nil {
		writeDomainError(w, "failed to get assessment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AssessmentFromDomain(assessment))
}

// History lists the member's assessments, newest first.
func (h *EligibilityHandler) History(w http.ResponseWriter, r *http.Request) {
	memberID, ok := parseIDParam(r, "memberID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid member ID", "")
		return
	}

	assessments, err := h.eligibilityUC.ListAssessments(
		r.Context(),
		memberID,
		parseIntQuery(r, "page", 1),
		parseIntQuery(r, "page_size", domain.DefaultPageSize),
	)
	if err != nil {
		writeDomainError(w, "failed to list assessments", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assessments": dto.AssessmentsFromDomain(assessments),
	})
}

// Check answers whether a member may borrow amount in the group.
func (h *EligibilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}
	memberID, ok := parseIDParam(r, "memberID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid member ID", "")
		return
	}

	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	result, err := h.eligibilityUC.CheckLoanEligibility(r.Context(), groupID, memberID, amount)
	if err != nil {
		writeDomainError(w, "failed to check eligibility", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EligibilityFromDomain(result))
}

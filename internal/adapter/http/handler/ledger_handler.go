package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/vslaledger/internal/adapter/http/dto"
	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	PostEntry(ctx context.Context, input usecase.PostEntryInput) (*usecase.PostEntryResult, error)
	GetBalance(ctx context.Context, groupID int64, asOf *time.Time) (*domain.FundBalances, error)
	ListEntries(ctx context.Context, filter domain.EntryFilter) (*domain.EntryPage, error)
	GetEntry(ctx context.Context, groupID, entryID int64) (*domain.LedgerEntry, error)
	MarkEntryStatus(ctx context.Context, input usecase.MarkEntryStatusInput) (*domain.LedgerEntry, error)
}

// ReconciliationService verifies a group's running balances.
type ReconciliationService interface {
	VerifyGroupLedger(ctx context.Context, groupID int64) (*usecase.LedgerVerification, error)
}

// LedgerHandler handles cashbook HTTP requests.
type LedgerHandler struct {
	ledgerUC    LedgerService
	reconcileUC ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService, reconcileUC ReconciliationService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC, reconcileUC: reconcileUC}
}

// PostEntry appends an entry to the group's cashbook. A replayed
// external_ref answers 200 with the original entry instead of 201.
func (h *LedgerHandler) PostEntry(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}

	var req dto.PostEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(groupID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := h.ledgerUC.PostEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to post entry", err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}

	writeJSON(w, status, dto.PostEntryResponse{
		Entry:     dto.EntryFromDomain(result.Entry),
		Duplicate: result.Duplicate,
	})
}

// ListEntries lists the group's entries, newest first.
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}

	from, err := dto.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date", err.Error())
		return
	}
	to, err := dto.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date", err.Error())
		return
	}

	page, err := h.ledgerUC.ListEntries(r.Context(), domain.EntryFilter{
		GroupID:  groupID,
		From:     from,
		To:       to,
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", domain.DefaultPageSize),
	})
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryPageFromDomain(page))
}

// GetEntry retrieves one entry.
func (h *LedgerHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}
	entryID, ok := parseIDParam(r, "entryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid entry ID", "")
		return
	}

	entry, err := h.ledgerUC.GetEntry(r.Context(), groupID, entryID)
	if err != nil {
		writeDomainError(w, "failed to get entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// MarkStatus flags an entry REVERSED or CORRECTED.
func (h *LedgerHandler) MarkStatus(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}
	entryID, ok := parseIDParam(r, "entryID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid entry ID", "")
		return
	}

	var req dto.MarkEntryStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.ledgerUC.MarkEntryStatus(r.Context(), req.ToUseCaseInput(groupID, entryID))
	if err != nil {
		writeDomainError(w, "failed to mark entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// GetBalance returns fund balances, optionally as of a date.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}

	asOf, err := dto.ParseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of date", err.Error())
		return
	}

	balances, err := h.ledgerUC.GetBalance(r.Context(), groupID, asOf)
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balances))
}

// Reconcile verifies the group's running balances.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseIDParam(r, "groupID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group ID", "")
		return
	}

	report, err := h.reconcileUC.VerifyGroupLedger(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, "failed to verify ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VerificationFromUseCase(report))
}

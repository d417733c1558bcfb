package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/vslaledger/internal/domain"
)

// LedgerUseCase handles posting to and reading a group's cashbook.
type LedgerUseCase struct {
	txManager  TransactionManager
	ledgerRepo LedgerRepository
	retrier    Retrier
	observer   Observer
	events     emitter
	now        func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	ledgerRepo LedgerRepository,
	retrier Retrier,
	notifier Notifier,
	idGen IDGenerator,
	observer Observer,
	logger zerolog.Logger,
) *LedgerUseCase {
	if observer == nil {
		observer = NopObserver{}
	}

	return &LedgerUseCase{
		txManager:  txManager,
		ledgerRepo: ledgerRepo,
		retrier:    retrier,
		observer:   observer,
		events:     emitter{notifier: notifier, idGen: idGen, logger: logger},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (uc *LedgerUseCase) WithClock(now func() time.Time) *LedgerUseCase {
	uc.now = now
	return uc
}

// PostEntryInput represents input for posting a cashbook entry. Amounts
// are non-negative; the category decides the sign.
type PostEntryInput struct {
	GroupID     int64
	MemberID    *int64
	LoanID      *int64
	Date        time.Time
	Category    domain.EntryCategory
	Amounts     domain.FundAmounts
	ExternalRef *string
	Description string
}

// PostEntryResult is the persisted entry. Duplicate is set when the
// external reference was already posted and the original entry is returned.
type PostEntryResult struct {
	Entry     *domain.LedgerEntry
	Duplicate bool
}

// Validate checks everything that can be checked without the store.
func (in PostEntryInput) Validate() error {
	if in.GroupID <= 0 {
		return domain.ErrMissingID
	}

	if in.MemberID != nil && *in.MemberID <= 0 {
		return domain.ErrMissingID
	}

	if !in.Category.IsValid() {
		return domain.ErrUnknownCategory
	}

	if err := in.Amounts.ValidateInput(); err != nil {
		return err
	}

	for _, amount := range in.Amounts {
		if amount.IsPositive() {
			if err := domain.ValidateAmount(amount); err != nil {
				return err
			}
		}
	}

	if in.ExternalRef != nil {
		if err := domain.ValidateExternalRef(*in.ExternalRef); err != nil {
			return err
		}
	}

	return domain.ValidateDescription(in.Description)
}

// PostEntry appends an entry to the group's cashbook. A replayed external
// reference returns the original entry with Duplicate set.
func (uc *LedgerUseCase) PostEntry(ctx context.Context, input PostEntryInput) (*PostEntryResult, error) {
	started := time.Now()

	if err := input.Validate(); err != nil {
		uc.observer.EntryRejected(rejectionReason(err))
		return nil, err
	}

	if input.Date.IsZero() {
		input.Date = uc.now()
	}
	input.Date = domain.DateOf(input.Date)
	if input.Date.After(domain.DateOf(uc.now())) {
		uc.observer.EntryRejected(rejectionReason(domain.ErrFutureEntry))
		return nil, domain.ErrFutureEntry
	}

	var result *PostEntryResult
	err := retry(ctx, uc.retrier, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		result, err = uc.postEntryTx(ctx, tx, input)
		if err != nil {
			return err
		}

		if result.Duplicate {
			return nil
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		uc.observer.EntryRejected(rejectionReason(err))
		return nil, err
	}

	uc.observer.EntryPosted(input.Category, result.Duplicate, time.Since(started))
	if !result.Duplicate {
		uc.events.emit(ctx, entryEvent(domain.EventTypeEntryPosted, result.Entry, uc.now()))
	}

	return result, nil
}

// postEntryTx runs the locked read-latest-then-append sequence inside tx.
// Loan operations call it to post within their own transaction.
func (uc *LedgerUseCase) postEntryTx(ctx context.Context, tx Transaction, input PostEntryInput) (*PostEntryResult, error) {
	// 1. Serialize writers of this group
	if err := uc.ledgerRepo.LockGroup(ctx, tx, input.GroupID); err != nil {
		return nil, err
	}

	// 2. At-most-once on external reference
	if input.ExternalRef != nil {
		existing, err := uc.ledgerRepo.GetByExternalRef(ctx, tx, input.GroupID, *input.ExternalRef)
		if err == nil {
			return &PostEntryResult{Entry: existing, Duplicate: true}, nil
		}
		if !errors.Is(err, domain.ErrEntryNotFound) {
			return nil, err
		}
	}

	// 3. Opening balances
	latest, err := uc.ledgerRepo.GetLatestActive(ctx, tx, input.GroupID)
	if err != nil {
		return nil, err
	}

	opening := domain.FundAmounts{}.Normalized()
	if latest != nil {
		if input.Date.Before(latest.TransactionDate) {
			return nil, domain.ErrBackdatedEntry
		}
		opening = latest.Balances
	}

	// 4. Closing balances
	deltas := domain.SignedDeltas(input.Category, input.Amounts)
	closing, total, err := domain.ApplyDeltas(input.Category, opening, deltas)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	entry := &domain.LedgerEntry{
		GroupID:         input.GroupID,
		MemberID:        input.MemberID,
		LoanID:          input.LoanID,
		TransactionDate: input.Date,
		Category:        input.Category,
		Deltas:          deltas,
		Balances:        closing,
		TotalBalance:    total,
		ExternalRef:     input.ExternalRef,
		Description:     strings.TrimSpace(input.Description),
		Status:          domain.EntryStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// 5. Append
	if err := uc.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	return &PostEntryResult{Entry: entry}, nil
}

// GetBalance returns the group's balances after the latest ACTIVE entry
// dated on or before asOf, or all zero when there is none.
func (uc *LedgerUseCase) GetBalance(ctx context.Context, groupID int64, asOf *time.Time) (*domain.FundBalances, error) {
	if groupID <= 0 {
		return nil, domain.ErrMissingID
	}

	if asOf != nil {
		date := domain.DateOf(*asOf)
		asOf = &date
	}

	latest, err := uc.ledgerRepo.GetLatestActiveAsOf(ctx, groupID, asOf)
	if err != nil {
		return nil, err
	}

	if latest == nil {
		balances := domain.EmptyBalances(groupID)
		balances.AsOf = asOf
		return balances, nil
	}

	return latest.Snapshot(), nil
}

// ListEntries returns a page of the group's entries, newest first.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, filter domain.EntryFilter) (*domain.EntryPage, error) {
	if filter.GroupID <= 0 {
		return nil, domain.ErrMissingID
	}

	filter.Page, filter.PageSize = domain.ValidatePagination(filter.Page, filter.PageSize)

	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.ErrInvalidDateRange
	}

	entries, total, err := uc.ledgerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &domain.EntryPage{
		Entries:  entries,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, nil
}

// GetEntry returns one entry of a group.
func (uc *LedgerUseCase) GetEntry(ctx context.Context, groupID, entryID int64) (*domain.LedgerEntry, error) {
	if groupID <= 0 || entryID <= 0 {
		return nil, domain.ErrMissingID
	}
	return uc.ledgerRepo.GetByID(ctx, groupID, entryID)
}

// MarkEntryStatusInput represents a manual correction mark.
type MarkEntryStatusInput struct {
	GroupID int64
	EntryID int64
	Status  domain.EntryStatus
	Reason  string
}

// MarkEntryStatus flags an ACTIVE entry REVERSED or CORRECTED. Later
// entries keep the balances they were posted with.
func (uc *LedgerUseCase) MarkEntryStatus(ctx context.Context, input MarkEntryStatusInput) (*domain.LedgerEntry, error) {
	if input.GroupID <= 0 || input.EntryID <= 0 {
		return nil, domain.ErrMissingID
	}

	if input.Status != domain.EntryStatusReversed && input.Status != domain.EntryStatusCorrected {
		return nil, domain.ErrInvalidStatus
	}

	if err := domain.ValidateDescription(input.Reason); err != nil {
		return nil, err
	}

	var entry *domain.LedgerEntry
	err := retry(ctx, uc.retrier, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := uc.ledgerRepo.LockGroup(ctx, tx, input.GroupID); err != nil {
			return err
		}

		entry, err = uc.ledgerRepo.GetByIDForUpdate(ctx, tx, input.GroupID, input.EntryID)
		if err != nil {
			return err
		}

		if !entry.IsActive() {
			return domain.ErrEntryNotActive
		}

		now := uc.now()
		if err := uc.ledgerRepo.UpdateStatus(ctx, tx, entry.ID, input.Status, input.Reason, now); err != nil {
			return err
		}

		entry.Status = input.Status
		entry.StatusReason = input.Reason
		entry.UpdatedAt = now

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	uc.events.emit(ctx, entryEvent(domain.EventTypeEntryStatusChanged, entry, uc.now()))
	return entry, nil
}

// retry runs op through r, or once when no retrier is configured.
func retry(ctx context.Context, r Retrier, op func() error) error {
	if r == nil {
		return op()
	}
	return r.Retry(ctx, op)
}

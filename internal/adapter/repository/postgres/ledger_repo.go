package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/infrastructure/postgres/generated"
	"github.com/iho/vslaledger/internal/usecase"
)

const activeRefConstraint = "uq_ledger_entries_active_ref"

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepository(pool)
}

func newLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// LockGroup takes a transaction-scoped advisory lock on the group's ledger.
func (r *LedgerRepository) LockGroup(ctx context.Context, tx usecase.Transaction, groupID int64) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}
	return queries.LockGroupLedger(ctx, groupID)
}

// GetLatestActive returns the newest ACTIVE entry of the group, or nil.
func (r *LedgerRepository) GetLatestActive(ctx context.Context, tx usecase.Transaction, groupID int64) (*domain.LedgerEntry, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetLatestActiveEntry(ctx, groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rowToEntry(row), nil
}

// GetLatestActiveAsOf returns the newest ACTIVE entry dated on or before asOf.
func (r *LedgerRepository) GetLatestActiveAsOf(ctx context.Context, groupID int64, asOf *time.Time) (*domain.LedgerEntry, error) {
	var (
		row generated.LedgerEntry
		err error
	)
	if asOf == nil {
		row, err = r.queries.GetLatestActiveEntry(ctx, groupID)
	} else {
		row, err = r.queries.GetLatestActiveEntryAsOf(ctx, generated.GetLatestActiveEntryAsOfParams{
			GroupID:         groupID,
			TransactionDate: timeToPgDate(domain.DateOf(*asOf)),
		})
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rowToEntry(row), nil
}

// GetByExternalRef returns the ACTIVE entry carrying ref.
func (r *LedgerRepository) GetByExternalRef(ctx context.Context, tx usecase.Transaction, groupID int64, ref string) (*domain.LedgerEntry, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetActiveEntryByExternalRef(ctx, generated.GetActiveEntryByExternalRefParams{
		GroupID:     groupID,
		ExternalRef: pgtype.Text{String: ref, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	return rowToEntry(row), nil
}

// Create inserts entry and assigns its ID.
func (r *LedgerRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	d, b := entry.Deltas, entry.Balances
	id, err := queries.CreateEntry(ctx, generated.CreateEntryParams{
		GroupID:              entry.GroupID,
		MemberID:             int64PtrToPgInt8(entry.MemberID),
		LoanID:               int64PtrToPgInt8(entry.LoanID),
		TransactionDate:      timeToPgDate(entry.TransactionDate),
		Category:             string(entry.Category),
		PersonalDelta:        decimalToNumeric(d.Get(domain.FundPersonal)),
		EcdDelta:             decimalToNumeric(d.Get(domain.FundECD)),
		SocialDelta:          decimalToNumeric(d.Get(domain.FundSocial)),
		TargetDelta:          decimalToNumeric(d.Get(domain.FundTarget)),
		FinesDelta:           decimalToNumeric(d.Get(domain.FundFines)),
		LoanTakenDelta:       decimalToNumeric(d.Get(domain.FundLoanTaken)),
		LoanRepaymentDelta:   decimalToNumeric(d.Get(domain.FundLoanRepayment)),
		InterestDelta:        decimalToNumeric(d.Get(domain.FundInterest)),
		PersonalBalance:      decimalToNumeric(b.Get(domain.FundPersonal)),
		EcdBalance:           decimalToNumeric(b.Get(domain.FundECD)),
		SocialBalance:        decimalToNumeric(b.Get(domain.FundSocial)),
		TargetBalance:        decimalToNumeric(b.Get(domain.FundTarget)),
		FinesBalance:         decimalToNumeric(b.Get(domain.FundFines)),
		LoanTakenBalance:     decimalToNumeric(b.Get(domain.FundLoanTaken)),
		LoanRepaymentBalance: decimalToNumeric(b.Get(domain.FundLoanRepayment)),
		InterestBalance:      decimalToNumeric(b.Get(domain.FundInterest)),
		TotalBalance:         decimalToNumeric(entry.TotalBalance),
		ExternalRef:          stringPtrToPgText(entry.ExternalRef),
		Description:          entry.Description,
		Status:               string(entry.Status),
		StatusReason:         entry.StatusReason,
		CreatedAt:            timeToPgTimestamptz(entry.CreatedAt),
		UpdatedAt:            timeToPgTimestamptz(entry.UpdatedAt),
	})
	if err != nil {
		if isUniqueViolation(err, activeRefConstraint) {
			return fmt.Errorf("%w: external reference %q already used", domain.ErrConcurrencyConflict, *entry.ExternalRef)
		}
		return err
	}

	entry.ID = id
	return nil
}

// GetByID returns one entry of a group.
func (r *LedgerRepository) GetByID(ctx context.Context, groupID, id int64) (*domain.LedgerEntry, error) {
	row, err := r.queries.GetEntryByID(ctx, generated.GetEntryByIDParams{GroupID: groupID, ID: id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	return rowToEntry(row), nil
}

// GetByIDForUpdate returns one entry with a FOR UPDATE lock.
func (r *LedgerRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, groupID, id int64) (*domain.LedgerEntry, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetEntryByIDForUpdate(ctx, generated.GetEntryByIDForUpdateParams{GroupID: groupID, ID: id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	return rowToEntry(row), nil
}

// UpdateStatus changes an entry's status and reason.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id int64, status domain.EntryStatus, reason string, updatedAt time.Time) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	n, err := queries.UpdateEntryStatus(ctx, generated.UpdateEntryStatusParams{
		ID:           id,
		Status:       string(status),
		StatusReason: reason,
		UpdatedAt:    timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// List returns a page of entries, newest first, and the total match count.
func (r *LedgerRepository) List(ctx context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, int, error) {
	from := timePtrToPgDate(datePtr(filter.From))
	to := timePtrToPgDate(datePtr(filter.To))

	total, err := r.queries.CountEntries(ctx, generated.CountEntriesParams{
		GroupID:  filter.GroupID,
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	if int64(offset) >= total {
		return []*domain.LedgerEntry{}, int(total), nil
	}

	rows, err := r.queries.ListEntries(ctx, generated.ListEntriesParams{
		GroupID:  filter.GroupID,
		FromDate: from,
		ToDate:   to,
		Limit:    clampInt32(filter.PageSize),
		Offset:   clampInt32(offset),
	})
	if err != nil {
		return nil, 0, err
	}

	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}
	return entries, int(total), nil
}

// ListActive returns the group's ACTIVE entries, oldest first.
func (r *LedgerRepository) ListActive(ctx context.Context, groupID int64) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListActiveEntries(ctx, groupID)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}
	return entries, nil
}

// ListGroupIDs returns every group with at least one entry, ascending.
func (r *LedgerRepository) ListGroupIDs(ctx context.Context) ([]int64, error) {
	return r.queries.ListLedgerGroupIDs(ctx)
}

func rowToEntry(row generated.LedgerEntry) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:              row.ID,
		GroupID:         row.GroupID,
		MemberID:        pgInt8ToInt64Ptr(row.MemberID),
		LoanID:          pgInt8ToInt64Ptr(row.LoanID),
		TransactionDate: pgDateToTime(row.TransactionDate),
		Category:        domain.EntryCategory(row.Category),
		Deltas: domain.FundAmounts{
			domain.FundPersonal:      numericToDecimal(row.PersonalDelta),
			domain.FundECD:           numericToDecimal(row.EcdDelta),
			domain.FundSocial:        numericToDecimal(row.SocialDelta),
			domain.FundTarget:        numericToDecimal(row.TargetDelta),
			domain.FundFines:         numericToDecimal(row.FinesDelta),
			domain.FundLoanTaken:     numericToDecimal(row.LoanTakenDelta),
			domain.FundLoanRepayment: numericToDecimal(row.LoanRepaymentDelta),
			domain.FundInterest:      numericToDecimal(row.InterestDelta),
		},
		Balances: domain.FundAmounts{
			domain.FundPersonal:      numericToDecimal(row.PersonalBalance),
			domain.FundECD:           numericToDecimal(row.EcdBalance),
			domain.FundSocial:        numericToDecimal(row.SocialBalance),
			domain.FundTarget:        numericToDecimal(row.TargetBalance),
			domain.FundFines:         numericToDecimal(row.FinesBalance),
			domain.FundLoanTaken:     numericToDecimal(row.LoanTakenBalance),
			domain.FundLoanRepayment: numericToDecimal(row.LoanRepaymentBalance),
			domain.FundInterest:      numericToDecimal(row.InterestBalance),
		},
		TotalBalance: numericToDecimal(row.TotalBalance),
		ExternalRef:  pgTextToStringPtr(row.ExternalRef),
		Description:  row.Description,
		Status:       domain.EntryStatus(row.Status),
		StatusReason: row.StatusReason,
		CreatedAt:    pgTimestamptzToTime(row.CreatedAt),
		UpdatedAt:    pgTimestamptzToTime(row.UpdatedAt),
	}
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}

func clampInt32(n int) int32 {
	switch {
	case n <= 0:
		return 0
	case n > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(n)
}

var _ usecase.LedgerRepository = (*LedgerRepository)(nil)

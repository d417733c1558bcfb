package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/infrastructure/postgres/generated"
	"github.com/iho/vslaledger/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository.
type LoanRepository struct {
	queries *generated.Queries
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return newLoanRepository(pool)
}

func newLoanRepository(db generated.DBTX) *LoanRepository {
	return &LoanRepository{queries: generated.New(db)}
}

// Create inserts loan and assigns its ID.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	id, err := queries.CreateLoan(ctx, generated.CreateLoanParams{
		GroupID:             loan.GroupID,
		BorrowerID:          loan.BorrowerID,
		Principal:           decimalToNumeric(loan.Principal),
		AnnualInterestRate:  decimalToNumeric(loan.AnnualInterestRate),
		TermMonths:          int32(loan.TermMonths),
		Status:              string(loan.Status),
		OutstandingBalance:  decimalToNumeric(loan.OutstandingBalance),
		TotalRepaid:         decimalToNumeric(loan.TotalRepaid),
		Purpose:             loan.Purpose,
		RequestDate:         timeToPgDate(loan.RequestDate),
		ApprovalDate:        timePtrToPgDate(loan.ApprovalDate),
		DisbursalDate:       timePtrToPgDate(loan.DisbursalDate),
		DueDate:             timePtrToPgDate(loan.DueDate),
		ClosedDate:          timePtrToPgDate(loan.ClosedDate),
		DisbursementEntryID: int64PtrToPgInt8(loan.DisbursementEntryID),
		Version:             loan.Version,
		CreatedAt:           timeToPgTimestamptz(loan.CreatedAt),
		UpdatedAt:           timeToPgTimestamptz(loan.UpdatedAt),
	})
	if err != nil {
		return err
	}

	loan.ID = id
	return nil
}

// GetByID retrieves a loan by ID.
func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	row, err := r.queries.GetLoanByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}

	return rowToLoan(row), nil
}

// GetByIDForUpdate retrieves a loan by ID with a FOR UPDATE lock.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Loan, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetLoanByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}

	return rowToLoan(row), nil
}

// Update writes the loan if the stored version is one behind loan.Version.
func (r *LoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	n, err := queries.UpdateLoan(ctx, generated.UpdateLoanParams{
		ID:                  loan.ID,
		Status:              string(loan.Status),
		OutstandingBalance:  decimalToNumeric(loan.OutstandingBalance),
		TotalRepaid:         decimalToNumeric(loan.TotalRepaid),
		ApprovalDate:        timePtrToPgDate(loan.ApprovalDate),
		DisbursalDate:       timePtrToPgDate(loan.DisbursalDate),
		DueDate:             timePtrToPgDate(loan.DueDate),
		ClosedDate:          timePtrToPgDate(loan.ClosedDate),
		DisbursementEntryID: int64PtrToPgInt8(loan.DisbursementEntryID),
		Version:             loan.Version,
		UpdatedAt:           timeToPgTimestamptz(loan.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := queries.GetLoanByID(ctx, loan.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrLoanNotFound
		}
		return err
	}
	return fmt.Errorf("%w: loan %d version %d", domain.ErrConcurrencyConflict, loan.ID, loan.Version-1)
}

// List returns loans matching filter, newest first.
func (r *LoanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	limit := int32(math.MaxInt32)
	if filter.Limit > 0 {
		limit = clampInt32(filter.Limit)
	}

	rows, err := r.queries.ListLoans(ctx, generated.ListLoansParams{
		GroupID:    filter.GroupID,
		BorrowerID: filter.BorrowerID,
		Statuses:   statuses,
		Limit:      limit,
		Offset:     clampInt32(filter.Offset),
	})
	if err != nil {
		return nil, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, rowToLoan(row))
	}
	return loans, nil
}

func rowToLoan(row generated.Loan) *domain.Loan {
	return &domain.Loan{
		ID:                  row.ID,
		GroupID:             row.GroupID,
		BorrowerID:          row.BorrowerID,
		Principal:           numericToDecimal(row.Principal),
		AnnualInterestRate:  numericToDecimal(row.AnnualInterestRate),
		TermMonths:          int(row.TermMonths),
		Status:              domain.LoanStatus(row.Status),
		OutstandingBalance:  numericToDecimal(row.OutstandingBalance),
		TotalRepaid:         numericToDecimal(row.TotalRepaid),
		Purpose:             row.Purpose,
		RequestDate:         pgDateToTime(row.RequestDate),
		ApprovalDate:        pgDateToTimePtr(row.ApprovalDate),
		DisbursalDate:       pgDateToTimePtr(row.DisbursalDate),
		DueDate:             pgDateToTimePtr(row.DueDate),
		ClosedDate:          pgDateToTimePtr(row.ClosedDate),
		DisbursementEntryID: pgInt8ToInt64Ptr(row.DisbursementEntryID),
		Version:             row.Version,
		CreatedAt:           pgTimestamptzToTime(row.CreatedAt),
		UpdatedAt:           pgTimestamptzToTime(row.UpdatedAt),
	}
}

var _ usecase.LoanRepository = (*LoanRepository)(nil)

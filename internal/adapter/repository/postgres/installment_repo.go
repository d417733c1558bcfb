package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/infrastructure/postgres/generated"
	"github.com/iho/vslaledger/internal/usecase"
)

// InstallmentRepository implements usecase.InstallmentRepository.
type InstallmentRepository struct {
	queries *generated.Queries
}

// NewInstallmentRepository creates a new InstallmentRepository.
func NewInstallmentRepository(pool *pgxpool.Pool) *InstallmentRepository {
	return newInstallmentRepository(pool)
}

func newInstallmentRepository(db generated.DBTX) *InstallmentRepository {
	return &InstallmentRepository{queries: generated.New(db)}
}

// CreateBatch inserts a whole schedule inside tx and assigns IDs.
func (r *InstallmentRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, installments []*domain.RepaymentInstallment) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	for _, inst := range installments {
		id, err := queries.CreateInstallment(ctx, generated.CreateInstallmentParams{
			LoanID:            inst.LoanID,
			InstallmentNumber: int32(inst.InstallmentNumber),
			DueDate:           timeToPgDate(inst.DueDate),
			PrincipalAmount:   decimalToNumeric(inst.PrincipalAmount),
			InterestAmount:    decimalToNumeric(inst.InterestAmount),
			TotalAmount:       decimalToNumeric(inst.TotalAmount),
			AmountPaid:        decimalToNumeric(inst.AmountPaid),
			Status:            string(inst.Status),
			PaidDate:          timePtrToPgDate(inst.PaidDate),
			CreatedAt:         timeToPgTimestamptz(inst.CreatedAt),
			UpdatedAt:         timeToPgTimestamptz(inst.UpdatedAt),
		})
		if err != nil {
			if isUniqueViolation(err, "") {
				return fmt.Errorf("%w: loan %d already has installment %d",
					domain.ErrConcurrencyConflict, inst.LoanID, inst.InstallmentNumber)
			}
			return err
		}
		inst.ID = id
	}
	return nil
}

// ListByLoan returns a loan's schedule ordered by installment number.
func (r *InstallmentRepository) ListByLoan(ctx context.Context, loanID int64) ([]*domain.RepaymentInstallment, error) {
	rows, err := r.queries.ListInstallmentsByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return rowsToInstallments(rows), nil
}

// ListByLoanForUpdate returns a loan's schedule with FOR UPDATE locks.
func (r *InstallmentRepository) ListByLoanForUpdate(ctx context.Context, tx usecase.Transaction, loanID int64) ([]*domain.RepaymentInstallment, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.ListInstallmentsByLoanForUpdate(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return rowsToInstallments(rows), nil
}

// Update writes the payment state of one installment.
func (r *InstallmentRepository) Update(ctx context.Context, tx usecase.Transaction, inst *domain.RepaymentInstallment) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	n, err := queries.UpdateInstallment(ctx, generated.UpdateInstallmentParams{
		ID:         inst.ID,
		AmountPaid: decimalToNumeric(inst.AmountPaid),
		Status:     string(inst.Status),
		PaidDate:   timePtrToPgDate(inst.PaidDate),
		UpdatedAt:  timeToPgTimestamptz(inst.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInstallmentNotFound
	}
	return nil
}

func rowsToInstallments(rows []generated.RepaymentInstallment) []*domain.RepaymentInstallment {
	installments := make([]*domain.RepaymentInstallment, 0, len(rows))
	for _, row := range rows {
		installments = append(installments, &domain.RepaymentInstallment{
			ID:                row.ID,
			LoanID:            row.LoanID,
			InstallmentNumber: int(row.InstallmentNumber),
			DueDate:           pgDateToTime(row.DueDate),
			PrincipalAmount:   numericToDecimal(row.PrincipalAmount),
			InterestAmount:    numericToDecimal(row.InterestAmount),
			TotalAmount:       numericToDecimal(row.TotalAmount),
			AmountPaid:        numericToDecimal(row.AmountPaid),
			Status:            domain.InstallmentStatus(row.Status),
			PaidDate:          pgDateToTimePtr(row.PaidDate),
			CreatedAt:         pgTimestamptzToTime(row.CreatedAt),
			UpdatedAt:         pgTimestamptzToTime(row.UpdatedAt),
		})
	}
	return installments
}

var _ usecase.InstallmentRepository = (*InstallmentRepository)(nil)

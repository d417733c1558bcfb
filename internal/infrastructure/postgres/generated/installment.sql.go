package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createInstallment = `-- name: CreateInstallment :one
INSERT INTO repayment_installments (
    loan_id, installment_number, due_date, principal_amount, interest_amount, total_amount, amount_paid,
    status, paid_date, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
RETURNING id
`

type CreateInstallmentParams struct {
	LoanID            int64              `json:"loan_id"`
	InstallmentNumber int32              `json:"installment_number"`
	DueDate           pgtype.Date        `json:"due_date"`
	PrincipalAmount   pgtype.Numeric     `json:"principal_amount"`
	InterestAmount    pgtype.Numeric     `json:"interest_amount"`
	TotalAmount       pgtype.Numeric     `json:"total_amount"`
	AmountPaid        pgtype.Numeric     `json:"amount_paid"`
	Status            string             `json:"status"`
	PaidDate          pgtype.Date        `json:"paid_date"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateInstallment(ctx context.Context, arg CreateInstallmentParams) (int64, error) {
	row := q.db.QueryRow(ctx, createInstallment,
		arg.LoanID,
		arg.InstallmentNumber,
		arg.DueDate,
		arg.PrincipalAmount,
		arg.InterestAmount,
		arg.TotalAmount,
		arg.AmountPaid,
		arg.Status,
		arg.PaidDate,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listInstallmentsByLoan = `-- name: ListInstallmentsByLoan :many
SELECT id, loan_id, installment_number, due_date, principal_amount, interest_amount, total_amount, amount_paid, status, paid_date, created_at, updated_at FROM repayment_installments
WHERE loan_id = $1
ORDER BY installment_number
`

func (q *Queries) ListInstallmentsByLoan(ctx context.Context, loanID int64) ([]RepaymentInstallment, error) {
	rows, err := q.db.Query(ctx, listInstallmentsByLoan, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RepaymentInstallment{}
	for rows.Next() {
		var i RepaymentInstallment
		if err := rows.Scan(
			&i.ID,
			&i.LoanID,
			&i.InstallmentNumber,
			&i.DueDate,
			&i.PrincipalAmount,
			&i.InterestAmount,
			&i.TotalAmount,
			&i.AmountPaid,
			&i.Status,
			&i.PaidDate,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listInstallmentsByLoanForUpdate = `-- name: ListInstallmentsByLoanForUpdate :many
SELECT id, loan_id, installment_number, due_date, principal_amount, interest_amount, total_amount, amount_paid, status, paid_date, created_at, updated_at FROM repayment_installments
WHERE loan_id = $1
ORDER BY installment_number
FOR UPDATE
`

func (q *Queries) ListInstallmentsByLoanForUpdate(ctx context.Context, loanID int64) ([]RepaymentInstallment, error) {
	rows, err := q.db.Query(ctx, listInstallmentsByLoanForUpdate, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RepaymentInstallment{}
	for rows.Next() {
		var i RepaymentInstallment
		if err := rows.Scan(
			&i.ID,
			&i.LoanID,
			&i.InstallmentNumber,
			&i.DueDate,
			&i.PrincipalAmount,
			&i.InterestAmount,
			&i.TotalAmount,
			&i.AmountPaid,
			&i.Status,
			&i.PaidDate,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateInstallment = `-- name: UpdateInstallment :execrows
UPDATE repayment_installments
SET amount_paid = $2, status = $3, paid_date = $4, updated_at = $5
WHERE id = $1
`

type UpdateInstallmentParams struct {
	ID         int64              `json:"id"`
	AmountPaid pgtype.Numeric     `json:"amount_paid"`
	Status     string             `json:"status"`
	PaidDate   pgtype.Date        `json:"paid_date"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateInstallment(ctx context.Context, arg UpdateInstallmentParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateInstallment,
		arg.ID,
		arg.AmountPaid,
		arg.Status,
		arg.PaidDate,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

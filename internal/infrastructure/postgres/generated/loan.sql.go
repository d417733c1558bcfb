package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createLoan = `-- name: CreateLoan :one
INSERT INTO loans (
    group_id, borrower_id, principal, annual_interest_rate, term_months, status, outstanding_balance,
    total_repaid, purpose, request_date, approval_date, disbursal_date, due_date, closed_date,
    disbursement_entry_id, version, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
)
RETURNING id
`

type CreateLoanParams struct {
	GroupID             int64              `json:"group_id"`
	BorrowerID          int64              `json:"borrower_id"`
	Principal           pgtype.Numeric     `json:"principal"`
	AnnualInterestRate  pgtype.Numeric     `json:"annual_interest_rate"`
	TermMonths          int32              `json:"term_months"`
	Status              string             `json:"status"`
	OutstandingBalance  pgtype.Numeric     `json:"outstanding_balance"`
	TotalRepaid         pgtype.Numeric     `json:"total_repaid"`
	Purpose             string             `json:"purpose"`
	RequestDate         pgtype.Date        `json:"request_date"`
	ApprovalDate        pgtype.Date        `json:"approval_date"`
	DisbursalDate       pgtype.Date        `json:"disbursal_date"`
	DueDate             pgtype.Date        `json:"due_date"`
	ClosedDate          pgtype.Date        `json:"closed_date"`
	DisbursementEntryID pgtype.Int8        `json:"disbursement_entry_id"`
	Version             int64              `json:"version"`
	CreatedAt           pgtype.Timestamptz `json:"created_at"`
	UpdatedAt           pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateLoan(ctx context.Context, arg CreateLoanParams) (int64, error) {
	row := q.db.QueryRow(ctx, createLoan,
		arg.GroupID,
		arg.BorrowerID,
		arg.Principal,
		arg.AnnualInterestRate,
		arg.TermMonths,
		arg.Status,
		arg.OutstandingBalance,
		arg.TotalRepaid,
		arg.Purpose,
		arg.RequestDate,
		arg.ApprovalDate,
		arg.DisbursalDate,
		arg.DueDate,
		arg.ClosedDate,
		arg.DisbursementEntryID,
		arg.Version,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getLoanByID = `-- name: GetLoanByID :one
SELECT id, group_id, borrower_id, principal, annual_interest_rate, term_months, status, outstanding_balance, total_repaid, purpose, request_date, approval_date, disbursal_date, due_date, closed_date, disbursement_entry_id, version, created_at, updated_at FROM loans WHERE id = $1
`

func (q *Queries) GetLoanByID(ctx context.Context, id int64) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByID, id)
	var i Loan
	err := row.Scan(
	&i.ID,
	&i.GroupID,
	&i.BorrowerID,
	&i.Principal,
	&i.AnnualInterestRate,
	&i.TermMonths,
	&i.Status,
	&i.OutstandingBalance,
	&i.TotalRepaid,
	&i.Purpose,
	&i.RequestDate,
	&i.ApprovalDate,
	&i.DisbursalDate,
	&i.DueDate,
	&i.ClosedDate,
	&i.DisbursementEntryID,
	&i.Version,
	&i.CreatedAt,
	&i.UpdatedAt,
	)
	return i, err
}

const getLoanByIDForUpdate = `-- name: GetLoanByIDForUpdate :one
SELECT id, group_id, borrower_id, principal, annual_interest_rate, term_months, status, outstanding_balance, total_repaid, purpose, request_date, approval_date, disbursal_date, due_date, closed_date, disbursement_entry_id, version, created_at, updated_at FROM loans WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetLoanByIDForUpdate(ctx context.Context, id int64) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByIDForUpdate, id)
	var i Loan
	err := row.Scan(
	&i.ID,
	&i.GroupID,
	&i.BorrowerID,
	&i.Principal,
	&i.AnnualInterestRate,
	&i.TermMonths,
	&i.Status,
	&i.OutstandingBalance,
	&i.TotalRepaid,
	&i.Purpose,
	&i.RequestDate,
	&i.ApprovalDate,
	&i.DisbursalDate,
	&i.DueDate,
	&i.ClosedDate,
	&i.DisbursementEntryID,
	&i.Version,
	&i.CreatedAt,
	&i.UpdatedAt,
	)
	return i, err
}

const listLoans = `-- name: ListLoans :many
SELECT id, group_id, borrower_id, principal, annual_interest_rate, term_months, status, outstanding_balance, total_repaid, purpose, request_date, approval_date, disbursal_date, due_date, closed_date, disbursement_entry_id, version, created_at, updated_at FROM loans
WHERE ($1::bigint = 0 OR group_id = $1)
  AND ($2::bigint = 0 OR borrower_id = $2)
  AND (cardinality($3::text[]) = 0 OR status = ANY($3::text[]))
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5
`

type ListLoansParams struct {
	GroupID    int64    `json:"group_id"`
	BorrowerID int64    `json:"borrower_id"`
	Statuses   []string `json:"statuses"`
	Limit      int32    `json:"limit"`
	Offset     int32    `json:"offset"`
}

func (q *Queries) ListLoans(ctx context.Context, arg ListLoansParams) ([]Loan, error) {
	rows, err := q.db.Query(ctx, listLoans,
		arg.GroupID,
		arg.BorrowerID,
		arg.Statuses,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Loan{}
	for rows.Next() {
		var i Loan
		if err := rows.Scan(
			&i.ID,
			&i.GroupID,
			&i.BorrowerID,
			&i.Principal,
			&i.AnnualInterestRate,
			&i.TermMonths,
			&i.Status,
			&i.OutstandingBalance,
			&i.TotalRepaid,
			&i.Purpose,
			&i.RequestDate,
			&i.ApprovalDate,
			&i.DisbursalDate,
			&i.DueDate,
			&i.ClosedDate,
			&i.DisbursementEntryID,
			&i.Version,
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

const updateLoan = `-- name: UpdateLoan :execrows
UPDATE loans
SET status = $2,
    outstanding_balance = $3,
    total_repaid = $4,
    approval_date = $5,
    disbursal_date = $6,
    due_date = $7,
    closed_date = $8,
    disbursement_entry_id = $9,
    version = $10,
    updated_at = $11
WHERE id = $1 AND version = $10 - 1
`

type UpdateLoanParams struct {
	ID                  int64              `json:"id"`
	Status              string             `json:"status"`
	OutstandingBalance  pgtype.Numeric     `json:"outstanding_balance"`
	TotalRepaid         pgtype.Numeric     `json:"total_repaid"`
	ApprovalDate        pgtype.Date        `json:"approval_date"`
	DisbursalDate       pgtype.Date        `json:"disbursal_date"`
	DueDate             pgtype.Date        `json:"due_date"`
	ClosedDate          pgtype.Date        `json:"closed_date"`
	DisbursementEntryID pgtype.Int8        `json:"disbursement_entry_id"`
	Version             int64              `json:"version"`
	UpdatedAt           pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateLoan(ctx context.Context, arg UpdateLoanParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateLoan,
		arg.ID,
		arg.Status,
		arg.OutstandingBalance,
		arg.TotalRepaid,
		arg.ApprovalDate,
		arg.DisbursalDate,
		arg.DueDate,
		arg.ClosedDate,
		arg.DisbursementEntryID,
		arg.Version,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

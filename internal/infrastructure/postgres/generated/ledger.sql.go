package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countEntries = `-- name: CountEntries :one
SELECT COUNT(*) FROM ledger_entries
WHERE group_id = $1
  AND ($2::date IS NULL OR transaction_date >= $2::date)
  AND ($3::date IS NULL OR transaction_date <= $3::date)
`

type CountEntriesParams struct {
	GroupID  int64       `json:"group_id"`
	FromDate pgtype.Date `json:"from_date"`
	ToDate   pgtype.Date `json:"to_date"`
}

func (q *Queries) CountEntries(ctx context.Context, arg CountEntriesParams) (int64, error) {
	row := q.db.QueryRow(ctx, countEntries,
		arg.GroupID,
		arg.FromDate,
		arg.ToDate,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createEntry = `-- name: CreateEntry :one
INSERT INTO ledger_entries (
    group_id, member_id, loan_id, transaction_date, category, personal_delta, ecd_delta, social_delta,
    target_delta, fines_delta, loan_taken_delta, loan_repayment_delta, interest_delta, personal_balance,
    ecd_balance, social_balance, target_balance, fines_balance, loan_taken_balance,
    loan_repayment_balance, interest_balance, total_balance, external_ref, description, status,
    status_reason, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22,
    $23, $24, $25, $26, $27, $28
)
RETURNING id
`

type CreateEntryParams struct {
	GroupID              int64              `json:"group_id"`
	MemberID             pgtype.Int8        `json:"member_id"`
	LoanID               pgtype.Int8        `json:"loan_id"`
	TransactionDate      pgtype.Date        `json:"transaction_date"`
	Category             string             `json:"category"`
	PersonalDelta        pgtype.Numeric     `json:"personal_delta"`
	EcdDelta             pgtype.Numeric     `json:"ecd_delta"`
	SocialDelta          pgtype.Numeric     `json:"social_delta"`
	TargetDelta          pgtype.Numeric     `json:"target_delta"`
	FinesDelta           pgtype.Numeric     `json:"fines_delta"`
	LoanTakenDelta       pgtype.Numeric     `json:"loan_taken_delta"`
	LoanRepaymentDelta   pgtype.Numeric     `json:"loan_repayment_delta"`
	InterestDelta        pgtype.Numeric     `json:"interest_delta"`
	PersonalBalance      pgtype.Numeric     `json:"personal_balance"`
	EcdBalance           pgtype.Numeric     `json:"ecd_balance"`
	SocialBalance        pgtype.Numeric     `json:"social_balance"`
	TargetBalance        pgtype.Numeric     `json:"target_balance"`
	FinesBalance         pgtype.Numeric     `json:"fines_balance"`
	LoanTakenBalance     pgtype.Numeric     `json:"loan_taken_balance"`
	LoanRepaymentBalance pgtype.Numeric     `json:"loan_repayment_balance"`
	InterestBalance      pgtype.Numeric     `json:"interest_balance"`
	TotalBalance         pgtype.Numeric     `json:"total_balance"`
	ExternalRef          pgtype.Text        `json:"external_ref"`
	Description          string             `json:"description"`
	Status               string             `json:"status"`
	StatusReason         string             `json:"status_reason"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (int64, error) {
	row := q.db.QueryRow(ctx, createEntry,
		arg.GroupID,
		arg.MemberID,
		arg.LoanID,
		arg.TransactionDate,
		arg.Category,
		arg.PersonalDelta,
		arg.EcdDelta,
		arg.SocialDelta,
		arg.TargetDelta,
		arg.FinesDelta,
		arg.LoanTakenDelta,
		arg.LoanRepaymentDelta,
		arg.InterestDelta,
		arg.PersonalBalance,
		arg.EcdBalance,
		arg.SocialBalance,
		arg.TargetBalance,
		arg.FinesBalance,
		arg.LoanTakenBalance,
		arg.LoanRepaymentBalance,
		arg.InterestBalance,
		arg.TotalBalance,
		arg.ExternalRef,
		arg.Description,
		arg.Status,
		arg.StatusReason,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getActiveEntryByExternalRef = `-- name: GetActiveEntryByExternalRef :one
SELECT id, group_id, member_id, loan_id, transaction_date, category, personal_delta, ecd_delta, social_delta, target_delta, fines_delta, loan_taken_delta, loan_repayment_delta, interest_delta, personal_balance, ecd_balance, social_balance, target_balance, fines_balance, loan_taken_balance, loan_repayment_balance, interest_balance, total_balance, external_ref, description, status, status_reason, created_at, updated_at FROM ledger_entries
WHERE group_id = $1 AND external_ref = $2 AND status = 'ACTIVE'
`

type GetActiveEntryByExternalRefParams struct {
	GroupID     int64       `json:"group_id"`
	ExternalRef pgtype.Text `json:"external_ref"`
}

func (q *Queries) GetActiveEntryByExternalRef(ctx context.Context, arg GetActiveEntryByExternalRefParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getActiveEntryByExternalRef, arg.GroupID, arg.ExternalRef)
	var i LedgerEntry
	err := row.Scan(
	&i.ID,
	&i.GroupID,
	&i.MemberID,
	&i.LoanID,
	&i.TransactionDate,
	&i.Category,
	&i.PersonalDelta,
	&i.EcdDelta,
	&i.SocialDelta,
	&i.TargetDelta,
	&i.FinesDelta,
	&i.LoanTakenDelta,
	&i.LoanRepaymentDelta,
	&i.InterestDelta,
	&i.PersonalBalance,
	&i.EcdBalance,
	&i.SocialBalance,
	&i.TargetBalance,
	&i.FinesBalance,
	&i.LoanTakenBalance,
	&i.LoanRepaymentBalance,
	&i.InterestBalance,
	&i.TotalBalance,
	&i.ExternalRef,
	&i.Description,
	&i.Status,
	&i.StatusReason,
	&i.CreatedAt,
	&i.UpdatedAt,
	)
	return i, err
}

const getEntryByID = `-- name: GetEntryByID :one
SELECT id, group_id, member_id, loan_id, transaction_date, category, personal_delta, ecd_delta, social_delta, target_delta, fines_delta, loan_taken_delta, loan_repayment_delta, interest_delta, personal_balance, ecd_balance, social_balance, target_balance, fines_balance, loan_taken_balance, loan_repayment_balance, interest_balance, total_balance, external_ref, description, status, status_reason, created_at, updated_at FROM ledger_entries WHERE group_id = $1 AND id = $2
`

type GetEntryByIDParams struct {
	GroupID int64 `json:"group_id"`
	ID      int64 `json:"id"`
}

func (q *Queries) GetEntryByID(ctx context.Context, arg GetEntryByIDParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getEntryByID, arg.GroupID, arg.ID)
	var i LedgerEntry
	err := row.Scan(
	&i.ID,
	&i.GroupID,
	&i.MemberID,
	&i.LoanID,
	&i.TransactionDate,
	&i.Category,
	&i.PersonalDelta,
	&i.EcdDelta,
	&i.SocialDelta,
	&i.TargetDelta,
	&i.FinesDelta,
	&i.LoanTakenDelta,
	&i.LoanRepaymentDelta,
	&i.InterestDelta,
	&i.PersonalBalance,
	&i.EcdBalance,
	&i.SocialBalance,
	&i.TargetBalance,
	&i.FinesBalance,
	&i.LoanTakenBalance,
	&i.LoanRepaymentBalance,
	&i.InterestBalance,
	&i.TotalBalance,
	&i.ExternalRef,
	&i.Description,
	&i.Status,
	&i.StatusReason,
	&i.CreatedAt,
	&i.UpdatedAt,
	)
	return i, err
}

const getEntryByIDForUpdate = `-- name: GetEntryByIDForUpdate :one
SELECT id, group_id, member_id, loan_id, transaction_date, category, personal_delta, ecd_delta, social_delta, target_delta, fines_delta, loan_taken_delta, loan_repayment_delta, interest_delta, personal_balance, ecd_balance, social_balance, target_balance, fines_balance, loan_taken_balance, loan_repayment_balance, interest_balance, total_balance, external_ref, description, status, status_reason, created_at, updated_at FROM ledger_entries WHERE group_id = $1 AND id = $2 FOR UPDATE
`

type GetEntryByIDForUpdateParams struct {
	GroupID int64 `json:"group_id"`
	ID      int64 `json:"id"`
}

func (q *Queries) GetEntryByIDForUpdate(ctx context.Context, arg GetEntryByIDForUpdateParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getEntryByIDForUpdate, arg.GroupID, arg.ID)
	var i LedgerEntry
	err := row.Scan(
	&i.ID,
	&i.GroupID,
	&i.MemberID,
	&i.LoanID,
	&i.TransactionDate,
	&i.Category,
	&i.PersonalDelta,
	&i.EcdDelta,
	&i.SocialDelta,
	&i.TargetDelta,
	&i.FinesDelta,
	&i.LoanTakenDelta,
	&i.LoanRepaymentDelta,
	&i.InterestDelta,
	&i.PersonalBalance,
	&i.EcdBalance,
	&i.SocialBalance,
	&i.TargetBalance,
	&i.FinesBalance,
	&i.LoanTakenBalance,
	&i.LoanRepaymentBalance,
	&i.InterestBalance,
	&i.TotalBalance,
	&i.ExternalRef,
	&i.Description,
	&i.Status,
	&i.StatusReason,
	&i.CreatedAt,
	&i.UpdatedAt,
	)
	return i, err
}

const getLatestActiveEntry = `-- name: GetLatestActiveEntry :one
SELECT id, group_id, member_id, loan_id, transaction_date, category, personal_delta, ecd_delta, social_delta, target_delta, fines_delta, loan_taken_delta, loan_repayment_delta, interest_delta, personal_balance, ecd_balance, social_balance, target_balance, fines_balance, loan_taken_balance, loan_repayment_balance, interest_balance, total_balance, external_ref, description, status, status_reason, created_at, updated_at FROM ledger_entries
WHERE group_id = $1 AND status = 'ACTIVE'
ORDER BY transaction_date DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLatestActiveEntry(ctx context.Context, groupID int64) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getLatestActiveEntry, groupID)
	var i LedgerEntry
	err := row.Scan(
	&i.ID,
	&i.GroupID,
	&i.MemberID,
	&i.LoanID,
	&i.TransactionDate,
	&i.Category,
	&i.PersonalDelta,
	&i.EcdDelta,
	&i.SocialDelta,
	&i.TargetDelta,
	&i.FinesDelta,
	&i.LoanTakenDelta,
	&i.LoanRepaymentDelta,
	&i.InterestDelta,
	&i.PersonalBalance,
	&i.EcdBalance,
	&i.SocialBalance,
	&i.TargetBalance,
	&i.FinesBalance,
	&i.LoanTakenBalance,
	&i.LoanRepaymentBalance,
	&i.InterestBalance,
	&i.TotalBalance,
	&i.ExternalRef,
	&i.Description,
	&i.Status,
	&i.StatusReason,
	&i.CreatedAt,
	&i.UpdatedAt,
	)
	return i, err
}

const getLatestActiveEntryAsOf = `-- name: GetLatestActiveEntryAsOf :one
SELECT id, group_id, member_id, loan_id, transaction_date, category, personal_delta, ecd_delta, social_delta, target_delta, fines_delta, loan_taken_delta, loan_repayment_delta, interest_delta, personal_balance, ecd_balance, social_balance, target_balance, fines_balance, loan_taken_balance, loan_repayment_balance, interest_balance, total_balance, external_ref, description, status, status_reason, created_at, updated_at FROM ledger_entries
WHERE group_id = $1 AND status = 'ACTIVE' AND transaction_date <= $2
ORDER BY transaction_date DESC, id DESC
LIMIT 1
`

type GetLatestActiveEntryAsOfParams struct {
	GroupID         int64       `json:"group_id"`
	TransactionDate pgtype.Date `json:"transaction_date"`
}

func (q *Queries) GetLatestActiveEntryAsOf(ctx context.Context, arg GetLatestActiveEntryAsOfParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, getLatestActiveEntryAsOf, arg.GroupID, arg.TransactionDate)
	var i LedgerEntry
	err := row.Scan(
	&i.ID,
	&i.GroupID,
	&i.MemberID,
	&i.LoanID,
	&i.TransactionDate,
	&i.Category,
	&i.PersonalDelta,
	&i.EcdDelta,
	&i.SocialDelta,
	&i.TargetDelta,
	&i.FinesDelta,
	&i.LoanTakenDelta,
	&i.LoanRepaymentDelta,
	&i.InterestDelta,
	&i.PersonalBalance,
	&i.EcdBalance,
	&i.SocialBalance,
	&i.TargetBalance,
	&i.FinesBalance,
	&i.LoanTakenBalance,
	&i.LoanRepaymentBalance,
	&i.InterestBalance,
	&i.TotalBalance,
	&i.ExternalRef,
	&i.Description,
	&i.Status,
	&i.StatusReason,
	&i.CreatedAt,
	&i.UpdatedAt,
	)
	return i, err
}

const listActiveEntries = `-- name: ListActiveEntries :many
SELECT id, group_id, member_id, loan_id, transaction_date, category, personal_delta, ecd_delta, social_delta, target_delta, fines_delta, loan_taken_delta, loan_repayment_delta, interest_delta, personal_balance, ecd_balance, social_balance, target_balance, fines_balance, loan_taken_balance, loan_repayment_balance, interest_balance, total_balance, external_ref, description, status, status_reason, created_at, updated_at FROM ledger_entries
WHERE group_id = $1 AND status = 'ACTIVE'
ORDER BY transaction_date, id
`

func (q *Queries) ListActiveEntries(ctx context.Context, groupID int64) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listActiveEntries, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEntry{}
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.GroupID,
			&i.MemberID,
			&i.LoanID,
			&i.TransactionDate,
			&i.Category,
			&i.PersonalDelta,
			&i.EcdDelta,
			&i.SocialDelta,
			&i.TargetDelta,
			&i.FinesDelta,
			&i.LoanTakenDelta,
			&i.LoanRepaymentDelta,
			&i.InterestDelta,
			&i.PersonalBalance,
			&i.EcdBalance,
			&i.SocialBalance,
			&i.TargetBalance,
			&i.FinesBalance,
			&i.LoanTakenBalance,
			&i.LoanRepaymentBalance,
			&i.InterestBalance,
			&i.TotalBalance,
			&i.ExternalRef,
			&i.Description,
			&i.Status,
			&i.StatusReason,
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

const listEntries = `-- name: ListEntries :many
SELECT id, group_id, member_id, loan_id, transaction_date, category, personal_delta, ecd_delta, social_delta, target_delta, fines_delta, loan_taken_delta, loan_repayment_delta, interest_delta, personal_balance, ecd_balance, social_balance, target_balance, fines_balance, loan_taken_balance, loan_repayment_balance, interest_balance, total_balance, external_ref, description, status, status_reason, created_at, updated_at FROM ledger_entries
WHERE group_id = $1
  AND ($2::date IS NULL OR transaction_date >= $2::date)
  AND ($3::date IS NULL OR transaction_date <= $3::date)
ORDER BY transaction_date DESC, id DESC
LIMIT $4 OFFSET $5
`

type ListEntriesParams struct {
	GroupID  int64       `json:"group_id"`
	FromDate pgtype.Date `json:"from_date"`
	ToDate   pgtype.Date `json:"to_date"`
	Limit    int32       `json:"limit"`
	Offset   int32       `json:"offset"`
}

func (q *Queries) ListEntries(ctx context.Context, arg ListEntriesParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listEntries,
		arg.GroupID,
		arg.FromDate,
		arg.ToDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEntry{}
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.GroupID,
			&i.MemberID,
			&i.LoanID,
			&i.TransactionDate,
			&i.Category,
			&i.PersonalDelta,
			&i.EcdDelta,
			&i.SocialDelta,
			&i.TargetDelta,
			&i.FinesDelta,
			&i.LoanTakenDelta,
			&i.LoanRepaymentDelta,
			&i.InterestDelta,
			&i.PersonalBalance,
			&i.EcdBalance,
			&i.SocialBalance,
			&i.TargetBalance,
			&i.FinesBalance,
			&i.LoanTakenBalance,
			&i.LoanRepaymentBalance,
			&i.InterestBalance,
			&i.TotalBalance,
			&i.ExternalRef,
			&i.Description,
			&i.Status,
			&i.StatusReason,
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

const listLedgerGroupIDs = `-- name: ListLedgerGroupIDs :many
SELECT DISTINCT group_id FROM ledger_entries ORDER BY group_id
`

func (q *Queries) ListLedgerGroupIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.Query(ctx, listLedgerGroupIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []int64{}
	for rows.Next() {
		var group_id int64
		if err := rows.Scan(&group_id); err != nil {
			return nil, err
		}
		items = append(items, group_id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const lockGroupLedger = `-- name: LockGroupLedger :exec
SELECT pg_advisory_xact_lock(hashtextextended('group:' || $1::bigint::text, 0))
`

func (q *Queries) LockGroupLedger(ctx context.Context, groupID int64) error {
	_, err := q.db.Exec(ctx, lockGroupLedger, groupID)
	return err
}

const updateEntryStatus = `-- name: UpdateEntryStatus :execrows
UPDATE ledger_entries
SET status = $2, status_reason = $3, updated_at = $4
WHERE id = $1
`

type UpdateEntryStatusParams struct {
	ID           int64              `json:"id"`
	Status       string             `json:"status"`
	StatusReason string             `json:"status_reason"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateEntryStatus(ctx context.Context, arg UpdateEntryStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateEntryStatus,
		arg.ID,
		arg.Status,
		arg.StatusReason,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

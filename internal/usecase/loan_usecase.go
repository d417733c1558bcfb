package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
)

// LoanUseCase handles the loan lifecycle.
type LoanUseCase struct {
	txManager       TransactionManager
	loanRepo        LoanRepository
	installmentRepo InstallmentRepository
	ledger          *LedgerUseCase
	processor       *RepaymentProcessor
	policy          LoanPolicy
	retrier         Retrier
	observer        Observer
	events          emitter
	logger          zerolog.Logger
	now             func() time.Time
}

// NewLoanUseCase creates a new LoanUseCase. Ledger postings made by loan
// operations go through ledger inside the loan's transaction.
func NewLoanUseCase(
	txManager TransactionManager,
	loanRepo LoanRepository,
	installmentRepo InstallmentRepository,
	ledger *LedgerUseCase,
	processor *RepaymentProcessor,
	policy LoanPolicy,
	retrier Retrier,
	notifier Notifier,
	idGen IDGenerator,
	observer Observer,
	logger zerolog.Logger,
) *LoanUseCase {
	if observer == nil {
		observer = NopObserver{}
	}

	return &LoanUseCase{
		txManager:       txManager,
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		ledger:          ledger,
		processor:       processor,
		policy:          policy,
		retrier:         retrier,
		observer:        observer,
		events:          emitter{notifier: notifier, idGen: idGen, logger: logger},
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (uc *LoanUseCase) WithClock(now func() time.Time) *LoanUseCase {
	uc.now = now
	return uc
}

// RequestLoanInput represents input for requesting a loan.
type RequestLoanInput struct {
	GroupID            int64
	BorrowerID         int64
	Principal          decimal.Decimal
	AnnualInterestRate decimal.Decimal
	TermMonths         int
	Purpose            string
	RequestDate        *time.Time
}

// RequestLoan records a PENDING loan.
func (uc *LoanUseCase) RequestLoan(ctx context.Context, input RequestLoanInput) (*domain.Loan, error) {
	requested := uc.now()
	if input.RequestDate != nil {
		requested = *input.RequestDate
	}

	loan, err := domain.NewLoan(
		input.GroupID,
		input.BorrowerID,
		input.Principal,
		input.AnnualInterestRate,
		input.TermMonths,
		input.Purpose,
		requested,
	)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	loan.Version = 1
	loan.CreatedAt = now
	loan.UpdatedAt = now

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.loanRepo.Create(ctx, tx, loan); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.observer.LoanTransition(loan.Status, loan.Principal)
	uc.events.emit(ctx, loanEvent(domain.EventTypeLoanRequested, loan, now))

	return loan, nil
}

// ApproveLoan moves a PENDING loan to APPROVED.
func (uc *LoanUseCase) ApproveLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	return uc.transition(ctx, loanID, func(_ Transaction, loan *domain.Loan) error {
		return loan.Approve(uc.now())
	})
}

// CancelLoan withdraws a PENDING or APPROVED loan.
func (uc *LoanUseCase) CancelLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	return uc.transition(ctx, loanID, func(_ Transaction, loan *domain.Loan) error {
		return loan.Cancel(uc.now())
	})
}

// DefaultLoan writes off a live loan.
func (uc *LoanUseCase) DefaultLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	return uc.transition(ctx, loanID, func(_ Transaction, loan *domain.Loan) error {
		return loan.MarkDefaulted(uc.now())
	})
}

// DisburseLoan pays out an APPROVED loan. The status change, the
// LOAN_DISBURSEMENT cashbook entry and the installment schedule are
// written in one transaction.
func (uc *LoanUseCase) DisburseLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	return uc.transition(ctx, loanID, func(tx Transaction, loan *domain.Loan) error {
		if err := loan.Disburse(uc.now()); err != nil {
			return err
		}

		borrower := loan.BorrowerID
		id := loan.ID
		posted, err := uc.ledger.postEntryTx(ctx, tx, PostEntryInput{
			GroupID:     loan.GroupID,
			MemberID:    &borrower,
			LoanID:      &id,
			Date:        *loan.DisbursalDate,
			Category:    domain.CategoryLoanDisbursement,
			Amounts:     domain.FundAmounts{domain.FundLoanTaken: loan.Principal},
			Description: "loan disbursement",
		})
		if err != nil {
			return err
		}
		loan.DisbursementEntryID = &posted.Entry.ID

		schedule, err := domain.BuildSchedule(loan.ID, loan.Principal, loan.AnnualInterestRate, loan.TermMonths, *loan.DisbursalDate)
		if err != nil {
			return err
		}

		return uc.installmentRepo.CreateBatch(ctx, tx, schedule)
	})
}

// transition locks the loan, applies change and persists the result.
func (uc *LoanUseCase) transition(ctx context.Context, loanID int64, change func(tx Transaction, loan *domain.Loan) error) (*domain.Loan, error) {
	if loanID <= 0 {
		return nil, domain.ErrMissingID
	}

	var loan *domain.Loan
	err := retry(ctx, uc.retrier, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		loan, err = uc.loanRepo.GetByIDForUpdate(ctx, tx, loanID)
		if err != nil {
			return err
		}

		if err := change(tx, loan); err != nil {
			return err
		}

		loan.Version++
		loan.UpdatedAt = uc.now()
		if err := uc.loanRepo.Update(ctx, tx, loan); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	uc.observer.LoanTransition(loan.Status, loan.Principal)
	uc.events.emit(ctx, loanEvent(domain.LoanEventType(loan.Status), loan, loan.UpdatedAt))

	return loan, nil
}

// RecordRepaymentInput represents a repayment received from the borrower.
type RecordRepaymentInput struct {
	LoanID int64
	Amount decimal.Decimal
	// Date defaults to today.
	Date *time.Time
	// InstallmentNumber directs the whole amount at one installment.
	InstallmentNumber *int
	ExternalRef       *string
	Description       string
}

// RepaymentResult is the loan after a repayment and where the money went.
type RepaymentResult struct {
	Loan        *domain.Loan
	Entry       *domain.LedgerEntry
	Allocations []domain.Allocation
	Unallocated decimal.Decimal
	Duplicate   bool
}

// RecordRepayment applies a repayment to the loan and its schedule and
// posts it to the group's loan_repayment fund, atomically. A replayed
// external reference returns the loan unchanged with Duplicate set.
func (uc *LoanUseCase) RecordRepayment(ctx context.Context, input RecordRepaymentInput) (*RepaymentResult, error) {
	if input.LoanID <= 0 {
		return nil, domain.ErrMissingID
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if input.ExternalRef != nil {
		if err := domain.ValidateExternalRef(*input.ExternalRef); err != nil {
			return nil, err
		}
	}

	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}

	paidOn := uc.now()
	if input.Date != nil {
		paidOn = *input.Date
	}
	paidOn = domain.DateOf(paidOn)
	if paidOn.After(domain.DateOf(uc.now())) {
		return nil, domain.ErrFutureEntry
	}

	var result *RepaymentResult
	err := retry(ctx, uc.retrier, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		result, err = uc.recordRepaymentTx(ctx, tx, input, paidOn)
		if err != nil {
			return err
		}

		if result.Duplicate {
			return nil
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		return result, nil
	}

	loan := result.Loan
	uc.observer.LoanTransition(loan.Status, input.Amount)

	eventType := domain.EventTypeLoanRepaid
	if loan.Status == domain.LoanStatusClosed {
		eventType = domain.EventTypeLoanClosed
	}
	event := loanEvent(eventType, loan, loan.UpdatedAt)
	event.Payload["amount"] = input.Amount.StringFixed(domain.MoneyScale)
	event.Payload["entry_id"] = result.Entry.ID
	uc.events.emit(ctx, event)

	return result, nil
}

func (uc *LoanUseCase) recordRepaymentTx(ctx context.Context, tx Transaction, input RecordRepaymentInput, paidOn time.Time) (*RepaymentResult, error) {
	// 1. Lock the loan, then its group
	loan, err := uc.loanRepo.GetByIDForUpdate(ctx, tx, input.LoanID)
	if err != nil {
		return nil, err
	}

	// 2. Replay check before any state check so a retry of the closing
	// payment still reports a duplicate
	if input.ExternalRef != nil {
		if err := uc.ledger.ledgerRepo.LockGroup(ctx, tx, loan.GroupID); err != nil {
			return nil, err
		}

		existing, err := uc.ledger.ledgerRepo.GetByExternalRef(ctx, tx, loan.GroupID, *input.ExternalRef)
		if err == nil {
			return &RepaymentResult{Loan: loan, Entry: existing, Unallocated: decimal.Zero, Duplicate: true}, nil
		}
		if !errors.Is(err, domain.ErrEntryNotFound) {
			return nil, err
		}
	}

	// 3. Loan state
	if err := loan.Repay(input.Amount, paidOn); err != nil {
		return nil, err
	}

	// 4. Schedule
	applied, err := uc.processor.ApplyRepayment(ctx, tx, loan.ID, input.Amount, input.InstallmentNumber, paidOn)
	if err != nil {
		return nil, err
	}

	// 5. Cashbook
	borrower := loan.BorrowerID
	id := loan.ID
	description := input.Description
	if description == "" {
		description = "loan repayment"
	}
	posted, err := uc.ledger.postEntryTx(ctx, tx, PostEntryInput{
		GroupID:     loan.GroupID,
		MemberID:    &borrower,
		LoanID:      &id,
		Date:        paidOn,
		Category:    domain.CategoryLoanRepayment,
		Amounts:     domain.FundAmounts{domain.FundLoanRepayment: input.Amount},
		ExternalRef: input.ExternalRef,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	// 6. Loan row
	loan.Version++
	loan.UpdatedAt = uc.now()
	if err := uc.loanRepo.Update(ctx, tx, loan); err != nil {
		return nil, err
	}

	return &RepaymentResult{
		Loan:        loan,
		Entry:       posted.Entry,
		Allocations: applied.Allocations,
		Unallocated: applied.Unallocated,
	}, nil
}

// GetLoan returns a loan by ID.
func (uc *LoanUseCase) GetLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	if loanID <= 0 {
		return nil, domain.ErrMissingID
	}
	return uc.loanRepo.GetByID(ctx, loanID)
}

// ListLoans returns a group's loans, optionally narrowed by borrower and status.
func (uc *LoanUseCase) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	if filter.GroupID <= 0 {
		return nil, domain.ErrMissingID
	}

	for _, s := range filter.Statuses {
		if !s.IsValid() {
			return nil, domain.ErrInvalidStatus
		}
	}

	_, filter.Limit = domain.ValidatePagination(1, filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return uc.loanRepo.List(ctx, filter)
}

// ListOverdueLoans returns repayable loans past due plus grace as of
// today. A zero groupID covers every group.
func (uc *LoanUseCase) ListOverdueLoans(ctx context.Context, groupID int64, today time.Time) ([]*domain.Loan, error) {
	if groupID < 0 {
		return nil, domain.ErrMissingID
	}

	filter := domain.LoanFilter{
		GroupID:  groupID,
		Statuses: []domain.LoanStatus{domain.LoanStatusDisbursed, domain.LoanStatusPartiallyRepaid},
		Limit:    overdueSweepPage,
	}

	overdue := make([]*domain.Loan, 0)
	seen := make(map[int64]bool)
	for {
		page, err := uc.loanRepo.List(ctx, filter)
		if err != nil {
			return nil, err
		}

		// pages can shift while loans are written; skip repeats
		for _, loan := range page {
			if seen[loan.ID] {
				continue
			}
			seen[loan.ID] = true
			if loan.IsOverdue(today, uc.policy.GraceDays) {
				overdue = append(overdue, loan)
			}
		}

		if len(page) < filter.Limit {
			break
		}
		filter.Offset += len(page)
	}

	return overdue, nil
}

// RemindOverdue announces every overdue loan and returns how many were
// found. Statuses are not changed.
func (uc *LoanUseCase) RemindOverdue(ctx context.Context) (int, error) {
	today := uc.now()

	loans, err := uc.ListOverdueLoans(ctx, 0, today)
	if err != nil {
		return 0, err
	}

	for _, loan := range loans {
		event := loanEvent(domain.EventTypeLoanOverdue, loan, today)
		event.Payload["days_overdue"] = domain.DaysBetween(*loan.DueDate, today)
		uc.events.emit(ctx, event)
	}

	if len(loans) > 0 {
		uc.logger.Info().Int("count", len(loans)).Msg("overdue loans announced")
	}

	return len(loans), nil
}

// ScheduleLine is one installment as seen on a given day.
type ScheduleLine struct {
	Installment     *domain.RepaymentInstallment
	EffectiveStatus domain.InstallmentStatus
	DaysOverdue     int
	LateFee         decimal.Decimal
}

// RepaymentSchedule is a loan's schedule resolved for one day.
type RepaymentSchedule struct {
	Loan           *domain.Loan
	Lines          []ScheduleLine
	MonthlyPayment decimal.Decimal
	TotalDue       decimal.Decimal
	TotalPaid      decimal.Decimal
	TotalLateFees  decimal.Decimal
	Overdue        bool
	AsOf           time.Time
}

// GetRepaymentSchedule returns the loan's installments with OVERDUE and
// the advisory late fee resolved for today (the clock's date when zero).
// Installments of a closed, cancelled or defaulted loan are reported with
// their stored status and no late fee, since nothing more can be paid.
func (uc *LoanUseCase) GetRepaymentSchedule(ctx context.Context, loanID int64, today time.Time) (*RepaymentSchedule, error) {
	loan, err := uc.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if today.IsZero() {
		today = uc.now()
	}
	today = domain.DateOf(today)

	installments, err := uc.installmentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	schedule := &RepaymentSchedule{
		Loan:           loan,
		Lines:          make([]ScheduleLine, 0, len(installments)),
		MonthlyPayment: loan.MonthlyPayment(),
		TotalDue:       decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalLateFees:  decimal.Zero,
		Overdue:        loan.IsOverdue(today, uc.policy.GraceDays),
		AsOf:           today,
	}

	finished := loan.Status.IsTerminal()
	for _, inst := range installments {
		line := ScheduleLine{
			Installment:     inst,
			EffectiveStatus: inst.Status,
			LateFee:         decimal.Zero,
		}
		if !finished {
			line.EffectiveStatus = inst.EffectiveStatus(today)
			line.DaysOverdue = inst.DaysOverdue(today)
			line.LateFee = inst.LateFee(today, uc.policy.LateFeeDailyRate)
		}

		schedule.Lines = append(schedule.Lines, line)
		schedule.TotalDue = schedule.TotalDue.Add(inst.TotalAmount)
		schedule.TotalPaid = schedule.TotalPaid.Add(inst.AmountPaid)
		schedule.TotalLateFees = schedule.TotalLateFees.Add(line.LateFee)
	}

	return schedule, nil
}

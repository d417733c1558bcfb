package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/vslaledger/internal/adapter/repository/memory"
	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
	"github.com/iho/vslaledger/internal/usecase/mocks"
)

const testGroup int64 = 10

// clock is a settable time source shared by all use cases of a harness.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store        *memory.Store
	txManager    usecase.TransactionManager
	ledgerRepo   *memory.LedgerRepository
	loanRepo     usecase.LoanRepository
	installments usecase.InstallmentRepository
	assessments  *memory.AssessmentRepository
	observer     *mocks.MockObserver
	notifier     usecase.Notifier
	clock        *clock

	ledger         *usecase.LedgerUseCase
	loans          *usecase.LoanUseCase
	eligibility    *usecase.EligibilityUseCase
	reconciliation *usecase.ReconciliationUseCase
}

type harnessOption func(*harness)

func withInstallmentRepo(wrap func(base usecase.InstallmentRepository) usecase.InstallmentRepository) harnessOption {
	return func(h *harness) { h.installments = wrap(h.installments) }
}

func withLoanRepo(wrap func(base usecase.LoanRepository) usecase.LoanRepository) harnessOption {
	return func(h *harness) { h.loanRepo = wrap(h.loanRepo) }
}

func withNotifier(n usecase.Notifier) harnessOption {
	return func(h *harness) { h.notifier = n }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	store := memory.NewStore()
	h := &harness{
		store:        store,
		txManager:    memory.NewTxManager(store),
		ledgerRepo:   memory.NewLedgerRepository(store),
		loanRepo:     memory.NewLoanRepository(store),
		installments: memory.NewInstallmentRepository(store),
		assessments:  memory.NewAssessmentRepository(store),
		observer:     &mocks.MockObserver{},
		clock:        &clock{now: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)},
	}
	for _, opt := range opts {
		opt(h)
	}

	logger := zerolog.Nop()
	idGen := mocks.NewMockIDGenerator()

	h.ledger = usecase.NewLedgerUseCase(h.txManager, h.ledgerRepo, nil, h.notifier, idGen, h.observer, logger).
		WithClock(h.clock.Now)
	h.loans = usecase.NewLoanUseCase(
		h.txManager,
		h.loanRepo,
		h.installments,
		h.ledger,
		usecase.NewRepaymentProcessor(h.installments),
		usecase.DefaultLoanPolicy(),
		nil,
		h.notifier,
		idGen,
		h.observer,
		logger,
	).WithClock(h.clock.Now)
	h.eligibility = usecase.NewEligibilityUseCase(
		h.txManager, h.assessments, h.loanRepo, 0, nil, h.notifier, idGen, h.observer, logger,
	).WithClock(h.clock.Now)
	h.reconciliation = usecase.NewReconciliationUseCase(h.ledgerRepo, h.observer, logger)

	return h
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// deposit posts a DEPOSIT of amount into fund for the test group today.
func (h *harness) deposit(t *testing.T, fund domain.Fund, amount string) *domain.LedgerEntry {
	t.Helper()
	res, err := h.ledger.PostEntry(context.Background(), usecase.PostEntryInput{
		GroupID:  testGroup,
		Category: domain.CategoryDeposit,
		Amounts:  domain.FundAmounts{fund: dec(amount)},
	})
	require.NoError(t, err)
	return res.Entry
}

func (h *harness) balance(t *testing.T) *domain.FundBalances {
	t.Helper()
	b, err := h.ledger.GetBalance(context.Background(), testGroup, nil)
	require.NoError(t, err)
	return b
}

// approvedLoan requests and approves a loan for borrower.
func (h *harness) approvedLoan(t *testing.T, borrower int64, principal, rate string, term int) *domain.Loan {
	t.Helper()
	ctx := context.Background()

	loan, err := h.loans.RequestLoan(ctx, usecase.RequestLoanInput{
		GroupID:            testGroup,
		BorrowerID:         borrower,
		Principal:          dec(principal),
		AnnualInterestRate: dec(rate),
		TermMonths:         term,
	})
	require.NoError(t, err)

	loan, err = h.loans.ApproveLoan(ctx, loan.ID)
	require.NoError(t, err)
	return loan
}

func (h *harness) disbursedLoan(t *testing.T, borrower int64, principal, rate string, term int) *domain.Loan {
	t.Helper()
	loan := h.approvedLoan(t, borrower, principal, rate, term)
	loan, err := h.loans.DisburseLoan(context.Background(), loan.ID)
	require.NoError(t, err)
	return loan
}

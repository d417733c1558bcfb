package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/vslaledger/internal/adapter/repository/memory"
	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
	"github.com/iho/vslaledger/internal/usecase/mocks"
)

func TestLedgerUseCase_PostEntry(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.PostEntryInput
		expectError error
	}{
		{
			name: "deposit into two funds",
			input: usecase.PostEntryInput{
				GroupID:  testGroup,
				MemberID: ptr(int64(3)),
				Category: domain.CategoryDeposit,
				Amounts:  domain.FundAmounts{domain.FundPersonal: dec("100"), domain.FundSocial: dec("20")},
			},
		},
		{
			name: "withdrawal within balance",
			input: usecase.PostEntryInput{
				GroupID:  testGroup,
				Category: domain.CategoryWithdrawal,
				Amounts:  domain.FundAmounts{domain.FundPersonal: dec("200")},
			},
		},
		{
			name: "missing group",
			input: usecase.PostEntryInput{
				Category: domain.CategoryDeposit,
				Amounts:  domain.FundAmounts{domain.FundPersonal: dec("1")},
			},
			expectError: domain.ErrMissingID,
		},
		{
			name: "unknown category",
			input: usecase.PostEntryInput{
				GroupID:  testGroup,
				Category: "GIFT",
				Amounts:  domain.FundAmounts{domain.FundPersonal: dec("1")},
			},
			expectError: domain.ErrUnknownCategory,
		},
		{
			name: "unknown fund",
			input: usecase.PostEntryInput{
				GroupID:  testGroup,
				Category: domain.CategoryDeposit,
				Amounts:  domain.FundAmounts{"holiday": dec("1")},
			},
			expectError: domain.ErrValidation,
		},
		{
			name: "negative amount",
			input: usecase.PostEntryInput{
				GroupID:  testGroup,
				Category: domain.CategoryDeposit,
				Amounts:  domain.FundAmounts{domain.FundPersonal: dec("-1")},
			},
			expectError: domain.ErrValidation,
		},
		{
			name: "no amounts",
			input: usecase.PostEntryInput{
				GroupID:  testGroup,
				Category: domain.CategoryDeposit,
			},
			expectError: domain.ErrValidation,
		},
		{
			name: "sub-cent amount",
			input: usecase.PostEntryInput{
				GroupID:  testGroup,
				Category: domain.CategoryDeposit,
				Amounts:  domain.FundAmounts{domain.FundPersonal: dec("0.001")},
			},
			expectError: domain.ErrValidation,
		},
		{
			name: "scenario D: overdraw a fund",
			input: usecase.PostEntryInput{
				GroupID:  testGroup,
				Category: domain.CategoryWithdrawal,
				Amounts:  domain.FundAmounts{domain.FundPersonal: dec("500")},
			},
			expectError: domain.ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			opening := h.deposit(t, domain.FundPersonal, "300")

			res, err := h.ledger.PostEntry(context.Background(), tt.input)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected error %v, got %v", tt.expectError, err)
				}
				after := h.balance(t)
				if after.EntryID != opening.ID || !after.Total.Equal(dec("300")) {
					t.Errorf("balance changed after rejected post: %+v", after)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			entry := res.Entry
			if res.Duplicate {
				t.Error("unexpected duplicate flag")
			}
			if entry.ID == 0 || entry.Status != domain.EntryStatusActive {
				t.Errorf("entry not persisted as active: %+v", entry)
			}
			if !entry.TotalBalance.Equal(entry.Balances.Total()) {
				t.Errorf("total %s != sum of funds %s", entry.TotalBalance, entry.Balances.Total())
			}
			for _, f := range domain.Funds {
				want := opening.Balances.Get(f).Add(entry.Deltas.Get(f))
				if !entry.Balances.Get(f).Equal(want) {
					t.Errorf("fund %s: balance %s, want %s", f, entry.Balances.Get(f), want)
				}
			}
		})
	}
}

func TestLedgerUseCase_WithdrawalIsNegative(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, domain.FundPersonal, "300")

	res, err := h.ledger.PostEntry(context.Background(), usecase.PostEntryInput{
		GroupID:  testGroup,
		Category: domain.CategoryWithdrawal,
		Amounts:  domain.FundAmounts{domain.FundPersonal: dec("120.50")},
	})
	require.NoError(t, err)

	assert.True(t, res.Entry.Deltas.Get(domain.FundPersonal).Equal(dec("-120.50")))
	assert.True(t, res.Entry.Balances.Get(domain.FundPersonal).Equal(dec("179.50")))
	assert.True(t, h.balance(t).Total.Equal(dec("179.50")))
}

func TestLedgerUseCase_DuplicateExternalRef(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event *domain.Event) error {
			assert.Equal(t, domain.EventTypeEntryPosted, event.EventType)
			assert.NotEmpty(t, event.ID)
			return nil
		}).
		Times(1)

	h := newHarness(t, withNotifier(notifier))
	ctx := context.Background()
	input := usecase.PostEntryInput{
		GroupID:     testGroup,
		Category:    domain.CategoryDeposit,
		Amounts:     domain.FundAmounts{domain.FundPersonal: dec("75")},
		ExternalRef: ptr("MPESA-QX81"),
	}

	first, err := h.ledger.PostEntry(ctx, input)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := h.ledger.PostEntry(ctx, input)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	page, err := h.ledger.ListEntries(ctx, domain.EntryFilter{GroupID: testGroup})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.True(t, h.balance(t).Total.Equal(dec("75")))
	assert.Equal(t, 1, h.observer.Duplicates)

	// the same reference in another group is a different posting
	input.GroupID = testGroup + 1
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
	other, err := h.ledger.PostEntry(ctx, input)
	require.NoError(t, err)
	assert.False(t, other.Duplicate)
}

func TestLedgerUseCase_NotificationFailureDoesNotFailPost(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("queue full"))

	h := newHarness(t, withNotifier(notifier))
	entry := h.deposit(t, domain.FundFines, "10")

	assert.NotZero(t, entry.ID)
	assert.True(t, h.balance(t).Balances.Get(domain.FundFines).Equal(dec("10")))
}

func TestLedgerUseCase_BackdatedEntry(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, domain.FundPersonal, "10")

	_, err := h.ledger.PostEntry(context.Background(), usecase.PostEntryInput{
		GroupID:  testGroup,
		Date:     h.clock.Now().AddDate(0, 0, -1),
		Category: domain.CategoryDeposit,
		Amounts:  domain.FundAmounts{domain.FundPersonal: dec("5")},
	})
	assert.ErrorIs(t, err, domain.ErrBackdatedEntry)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// same day at a different time is fine
	_, err = h.ledger.PostEntry(context.Background(), usecase.PostEntryInput{
		GroupID:  testGroup,
		Date:     h.clock.Now().Add(-time.Hour),
		Category: domain.CategoryDeposit,
		Amounts:  domain.FundAmounts{domain.FundPersonal: dec("5")},
	})
	assert.NoError(t, err)
}

func TestLedgerUseCase_FutureDatedEntryIsRefused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.deposit(t, domain.FundPersonal, "10000")

	_, err := h.ledger.PostEntry(ctx, usecase.PostEntryInput{
		GroupID:  testGroup,
		Date:     time.Date(2052, 6, 1, 0, 0, 0, 0, time.UTC),
		Category: domain.CategoryDeposit,
		Amounts:  domain.FundAmounts{domain.FundPersonal: dec("5")},
	})
	assert.ErrorIs(t, err, domain.ErrFutureEntry)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, h.observer.Rejected, "validation")

	_, err = h.ledger.PostEntry(ctx, usecase.PostEntryInput{
		GroupID:  testGroup,
		Date:     h.clock.Now().AddDate(0, 0, 1),
		Category: domain.CategoryDeposit,
		Amounts:  domain.FundAmounts{domain.FundPersonal: dec("5")},
	})
	assert.ErrorIs(t, err, domain.ErrFutureEntry)

	// later in the day is still today
	_, err = h.ledger.PostEntry(ctx, usecase.PostEntryInput{
		GroupID:  testGroup,
		Date:     h.clock.Now().Add(time.Hour),
		Category: domain.CategoryDeposit,
		Amounts:  domain.FundAmounts{domain.FundPersonal: dec("5")},
	})
	require.NoError(t, err)

	// the refused post leaves the cashbook open for today's loan postings
	loan := h.approvedLoan(t, 7, "1200", "12", 12)
	loan, err = h.loans.DisburseLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDisbursed, loan.Status)

	_, err = h.loans.RecordRepayment(ctx, usecase.RecordRepaymentInput{
		LoanID: loan.ID,
		Amount: dec("112"),
		Date:   ptr(h.clock.Now().AddDate(1, 0, 0)),
	})
	assert.ErrorIs(t, err, domain.ErrFutureEntry)

	repaid, err := h.loans.RecordRepayment(ctx, usecase.RecordRepaymentInput{LoanID: loan.ID, Amount: dec("112")})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPartiallyRepaid, repaid.Loan.Status)
	assert.True(t, h.balance(t).Total.Equal(dec("8917")), "total %s", h.balance(t).Total)
}

// Concurrent posts to one group never lose an update: +100 and +50 racing
// each other must both land.
func TestLedgerUseCase_ConcurrentPosts(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, domain.FundPersonal, "1000")
	ctx := context.Background()

	amounts := []string{"100", "50"}
	for i := 0; i < 20; i++ {
		amounts = append(amounts, "1")
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(amounts))
	for _, amount := range amounts {
		wg.Add(1)
		go func(amount string) {
			defer wg.Done()
			_, err := h.ledger.PostEntry(ctx, usecase.PostEntryInput{
				GroupID:  testGroup,
				Category: domain.CategoryDeposit,
				Amounts:  domain.FundAmounts{domain.FundPersonal: dec(amount)},
			})
			errs <- err
		}(amount)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, h.balance(t).Total.Equal(dec("1170")), "got %s", h.balance(t).Total)

	report, err := h.reconciliation.VerifyGroupLedger(ctx, testGroup)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "violations: %+v", report.Violations)
	assert.Equal(t, len(amounts)+1, report.EntriesChecked)
}

func TestLedgerUseCase_GetBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	empty, err := h.ledger.GetBalance(ctx, testGroup, nil)
	require.NoError(t, err)
	assert.True(t, empty.Total.IsZero())
	assert.Len(t, empty.Balances, len(domain.Funds))

	day1 := h.clock.Now()
	h.deposit(t, domain.FundPersonal, "100")
	h.clock.Advance(48 * time.Hour)
	h.deposit(t, domain.FundECD, "40")

	current := h.balance(t)
	assert.True(t, current.Total.Equal(dec("140")))

	atDay1, err := h.ledger.GetBalance(ctx, testGroup, ptr(day1.Add(12*time.Hour)))
	require.NoError(t, err)
	assert.True(t, atDay1.Total.Equal(dec("100")))
	assert.True(t, atDay1.Balances.Get(domain.FundECD).IsZero())

	before, err := h.ledger.GetBalance(ctx, testGroup, ptr(day1.AddDate(0, 0, -1)))
	require.NoError(t, err)
	assert.True(t, before.Total.IsZero())

	_, err = h.ledger.GetBalance(ctx, 0, nil)
	assert.ErrorIs(t, err, domain.ErrMissingID)
}

func TestLedgerUseCase_ListEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, h.deposit(t, domain.FundPersonal, "1").ID)
		h.clock.Advance(24 * time.Hour)
	}

	page, err := h.ledger.ListEntries(ctx, domain.EntryFilter{GroupID: testGroup, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, ids[4], page.Entries[0].ID, "newest first")
	assert.Equal(t, ids[3], page.Entries[1].ID)

	from := domain.DateOf(h.clock.Now()).AddDate(0, 0, -4)
	to := from.AddDate(0, 0, 1)
	ranged, err := h.ledger.ListEntries(ctx, domain.EntryFilter{GroupID: testGroup, From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, ranged.Total)
	assert.Equal(t, domain.DefaultPageSize, ranged.PageSize)

	_, err = h.ledger.ListEntries(ctx, domain.EntryFilter{GroupID: testGroup, From: &to, To: &from})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestLedgerUseCase_MarkEntryStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	entry := h.deposit(t, domain.FundPersonal, "100")
	h.deposit(t, domain.FundPersonal, "10")

	marked, err := h.ledger.MarkEntryStatus(ctx, usecase.MarkEntryStatusInput{
		GroupID: testGroup,
		EntryID: entry.ID,
		Status:  domain.EntryStatusReversed,
		Reason:  "keyed twice",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusReversed, marked.Status)
	assert.Equal(t, "keyed twice", marked.StatusReason)

	// later balances are not recomputed
	assert.True(t, h.balance(t).Total.Equal(dec("110")))

	_, err = h.ledger.MarkEntryStatus(ctx, usecase.MarkEntryStatusInput{
		GroupID: testGroup, EntryID: entry.ID, Status: domain.EntryStatusCorrected,
	})
	assert.ErrorIs(t, err, domain.ErrEntryNotActive)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = h.ledger.MarkEntryStatus(ctx, usecase.MarkEntryStatusInput{
		GroupID: testGroup, EntryID: entry.ID, Status: domain.EntryStatusActive,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = h.ledger.MarkEntryStatus(ctx, usecase.MarkEntryStatusInput{
		GroupID: testGroup + 1, EntryID: entry.ID, Status: domain.EntryStatusReversed,
	})
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestLedgerUseCase_RetriesTransientBeginFailure(t *testing.T) {
	store := memory.NewStore()
	begins := 0
	txManager := &mocks.MockTransactionManager{Base: memory.NewTxManager(store)}
	txManager.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
		begins++
		if begins == 1 {
			return nil, errors.New("connection reset")
		}
		return txManager.Base.Begin(ctx)
	}

	ctrl := gomock.NewController(t)
	retrier := mocks.NewMockRetrier(ctrl)
	retrier.EXPECT().
		Retry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, op func() error) error {
			var err error
			for range 3 {
				if err = op(); err == nil {
					return nil
				}
			}
			return err
		}).
		Times(1)

	uc := usecase.NewLedgerUseCase(txManager, memory.NewLedgerRepository(store), retrier, nil, mocks.NewMockIDGenerator(), nil, zerolog.Nop())

	res, err := uc.PostEntry(context.Background(), usecase.PostEntryInput{
		GroupID:  testGroup,
		Category: domain.CategoryDeposit,
		Amounts:  domain.FundAmounts{domain.FundPersonal: dec("100")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, begins)
	assert.True(t, res.Entry.TotalBalance.Equal(dec("100")))
}

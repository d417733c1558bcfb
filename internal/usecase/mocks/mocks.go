package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// MockTransactionManager overrides Begin of a real TransactionManager.
type MockTransactionManager struct {
	Base      usecase.TransactionManager
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return m.Base.Begin(ctx)
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockInstallmentRepository overrides individual methods of a real
// InstallmentRepository. Methods without a Func fall through to Base.
type MockInstallmentRepository struct {
	Base usecase.InstallmentRepository

	CreateBatchFunc         func(ctx context.Context, tx usecase.Transaction, installments []*domain.RepaymentInstallment) error
	ListByLoanFunc          func(ctx context.Context, loanID int64) ([]*domain.RepaymentInstallment, error)
	ListByLoanForUpdateFunc func(ctx context.Context, tx usecase.Transaction, loanID int64) ([]*domain.RepaymentInstallment, error)
	UpdateFunc              func(ctx context.Context, tx usecase.Transaction, installment *domain.RepaymentInstallment) error
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, installments []*domain.RepaymentInstallment) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tx, installments)
	}
	return m.Base.CreateBatch(ctx, tx, installments)
}

func (m *MockInstallmentRepository) ListByLoan(ctx context.Context, loanID int64) ([]*domain.RepaymentInstallment, error) {
	if m.ListByLoanFunc != nil {
		return m.ListByLoanFunc(ctx, loanID)
	}
	return m.Base.ListByLoan(ctx, loanID)
}

func (m *MockInstallmentRepository) ListByLoanForUpdate(ctx context.Context, tx usecase.Transaction, loanID int64) ([]*domain.RepaymentInstallment, error) {
	if m.ListByLoanForUpdateFunc != nil {
		return m.ListByLoanForUpdateFunc(ctx, tx, loanID)
	}
	return m.Base.ListByLoanForUpdate(ctx, tx, loanID)
}

func (m *MockInstallmentRepository) Update(ctx context.Context, tx usecase.Transaction, installment *domain.RepaymentInstallment) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, installment)
	}
	return m.Base.Update(ctx, tx, installment)
}

// MockLoanRepository overrides individual methods of a real LoanRepository.
type MockLoanRepository struct {
	Base usecase.LoanRepository

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error
	GetByIDFunc          func(ctx context.Context, id int64) (*domain.Loan, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Loan, error)
	UpdateFunc           func(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error
	ListFunc             func(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)
}

func (m *MockLoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, loan)
	}
	return m.Base.Create(ctx, tx, loan)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return m.Base.GetByID(ctx, id)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Loan, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.Base.GetByIDForUpdate(ctx, tx, id)
}

func (m *MockLoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, loan)
	}
	return m.Base.Update(ctx, tx, loan)
}

func (m *MockLoanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return m.Base.List(ctx, filter)
}

// MockObserver records measurements for assertions.
type MockObserver struct {
	mu          sync.Mutex
	Posted      []domain.EntryCategory
	Duplicates  int
	Rejected    []string
	Transitions []domain.LoanStatus
	Tiers       []domain.RiskTier
	Violations  map[int64]int
}

func (m *MockObserver) EntryPosted(category domain.EntryCategory, duplicate bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Posted = append(m.Posted, category)
	if duplicate {
		m.Duplicates++
	}
}

func (m *MockObserver) EntryRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected = append(m.Rejected, reason)
}

func (m *MockObserver) LoanTransition(status domain.LoanStatus, _ decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transitions = append(m.Transitions, status)
}

func (m *MockObserver) Assessed(tier domain.RiskTier, _ decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tiers = append(m.Tiers, tier)
}

func (m *MockObserver) LedgerVerified(groupID int64, violations int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Violations == nil {
		m.Violations = make(map[int64]int)
	}
	m.Violations[groupID] = violations
}

var (
	_ usecase.TransactionManager    = (*MockTransactionManager)(nil)
	_ usecase.IDGenerator           = (*MockIDGenerator)(nil)
	_ usecase.InstallmentRepository = (*MockInstallmentRepository)(nil)
	_ usecase.LoanRepository        = (*MockLoanRepository)(nil)
	_ usecase.Observer              = (*MockObserver)(nil)
)

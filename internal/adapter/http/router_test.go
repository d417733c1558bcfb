package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/vslaledger/internal/adapter/http/dto"
	"github.com/iho/vslaledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/vslaledger/internal/adapter/http/middleware"
	"github.com/iho/vslaledger/internal/adapter/repository/memory"
	redisrepo "github.com/iho/vslaledger/internal/adapter/repository/redis"
	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/infrastructure/metrics"
	"github.com/iho/vslaledger/internal/usecase"
	"github.com/iho/vslaledger/internal/usecase/mocks"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(t, func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig(t))

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"POST /api/v1/groups/{groupID}/entries/",
		"GET /api/v1/groups/{groupID}/entries/",
		"POST /api/v1/groups/{groupID}/entries/{entryID}/status",
		"GET /api/v1/groups/{groupID}/balance",
		"GET /api/v1/groups/{groupID}/reconciliation",
		"POST /api/v1/groups/{groupID}/loans/",
		"GET /api/v1/groups/{groupID}/loans/overdue",
		"GET /api/v1/groups/{groupID}/members/{memberID}/eligibility",
		"POST /api/v1/loans/{loanID}/disburse",
		"POST /api/v1/loans/{loanID}/repayments",
		"GET /api/v1/loans/{loanID}/schedule",
		"POST /api/v1/members/{memberID}/assessments/",
		"GET /api/v1/members/{memberID}/assessments/current",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func TestNewRouter_LoanLifecycle(t *testing.T) {
	router := NewRouter(newRouterConfig(t))

	rec := do(t, router, http.MethodPost, "/api/v1/groups/3/entries/", dto.PostEntryRequest{
		Category: "DEPOSIT",
		Amounts:  map[string]decimal.Decimal{"personal": decimal.NewFromInt(5000)},
	}, nil)
	expectStatus(t, rec, http.StatusCreated)

	var loan dto.LoanResponse
	rec = do(t, router, http.MethodPost, "/api/v1/groups/3/loans/", dto.RequestLoanRequest{
		BorrowerID:         7,
		Principal:          decimal.NewFromInt(1200),
		AnnualInterestRate: decimal.NewFromInt(12),
		TermMonths:         12,
	}, &loan)
	expectStatus(t, rec, http.StatusCreated)
	if loan.Status != domain.LoanStatusPending {
		t.Fatalf("expected PENDING, got %s", loan.Status)
	}

	loanPath := "/api/v1/loans/" + itoa(loan.ID)

	rec = do(t, router, http.MethodPost, loanPath+"/disburse", nil, nil)
	expectStatus(t, rec, http.StatusConflict)

	rec = do(t, router, http.MethodPost, loanPath+"/approve", nil, &loan)
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, router, http.MethodPost, loanPath+"/disburse", nil, &loan)
	expectStatus(t, rec, http.StatusOK)
	if loan.Status != domain.LoanStatusDisbursed || loan.DisbursementEntryID == nil {
		t.Fatalf("unexpected disbursed loan: %+v", loan)
	}

	var repayment dto.RepaymentResponse
	rec = do(t, router, http.MethodPost, loanPath+"/repayments", dto.RecordRepaymentRequest{
		Amount: decimal.NewFromInt(112),
	}, &repayment)
	expectStatus(t, rec, http.StatusCreated)
	if repayment.Loan.Status != domain.LoanStatusPartiallyRepaid || len(repayment.Allocations) != 1 {
		t.Fatalf("unexpected repayment: %+v", repayment)
	}

	var schedule dto.ScheduleResponse
	rec = do(t, router, http.MethodGet, loanPath+"/schedule", nil, &schedule)
	expectStatus(t, rec, http.StatusOK)
	if len(schedule.Installments) != 12 || schedule.Installments[0].Status != domain.InstallmentPaid {
		t.Fatalf("unexpected schedule: %+v", schedule.Installments)
	}

	var balance dto.BalanceResponse
	rec = do(t, router, http.MethodGet, "/api/v1/groups/3/balance", nil, &balance)
	expectStatus(t, rec, http.StatusOK)
	if !balance.Balances["loan_taken"].Equal(decimal.NewFromInt(-1200)) || !balance.Total.Equal(decimal.NewFromInt(3912)) {
		t.Fatalf("unexpected balance: %+v", balance)
	}

	var report dto.VerificationResponse
	rec = do(t, router, http.MethodGet, "/api/v1/groups/3/reconciliation", nil, &report)
	expectStatus(t, rec, http.StatusOK)
	if !report.Consistent || report.EntriesChecked != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestNewRouter_EligibilityFlow(t *testing.T) {
	router := NewRouter(newRouterConfig(t))

	rec := do(t, router, http.MethodGet, "/api/v1/members/7/assessments/current", nil, nil)
	expectStatus(t, rec, http.StatusNotFound)

	var assessment dto.AssessmentResponse
	rec = do(t, router, http.MethodPost, "/api/v1/members/7/assessments/", dto.AssessEligibilityRequest{
		TotalSavings:          decimal.NewFromInt(600),
		MonthsActive:          7,
		AttendanceRatePct:     decimal.NewFromInt(80),
		PaymentConsistencyPct: decimal.NewFromInt(90),
	}, &assessment)
	expectStatus(t, rec, http.StatusCreated)
	if assessment.RiskTier != domain.RiskLow || !assessment.MaxLoanAmount.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}

	var result dto.EligibilityResponse
	rec = do(t, router, http.MethodGet, "/api/v1/groups/3/members/7/eligibility?amount=2000", nil, &result)
	expectStatus(t, rec, http.StatusOK)
	if result.Eligible || result.Reason != domain.ReasonExceedsCap {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestNewRouter_IdempotentPostReplays(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	router := NewRouter(newRouterConfig(t, func(cfg *RouterConfig) {
		cfg.IdempotencyStore = redisrepo.NewIdempotencyStore(client)
	}))

	body := dto.PostEntryRequest{
		Category: "DEPOSIT",
		Amounts:  map[string]decimal.Decimal{"social": decimal.NewFromInt(50)},
	}
	headers := map[string]string{apimiddleware.IdempotencyKeyHeader: "key-1"}

	first := doWithHeaders(t, router, http.MethodPost, "/api/v1/groups/3/entries/", body, headers)
	expectStatus(t, first, http.StatusCreated)

	second := doWithHeaders(t, router, http.MethodPost, "/api/v1/groups/3/entries/", body, headers)
	expectStatus(t, second, http.StatusCreated)
	if second.Header().Get(apimiddleware.IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected replayed response")
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical bodies:\n%s\n%s", first.Body, second.Body)
	}

	var page dto.ListEntriesResponse
	rec := do(t, router, http.MethodGet, "/api/v1/groups/3/entries/", nil, &page)
	expectStatus(t, rec, http.StatusOK)
	if page.Total != 1 {
		t.Fatalf("expected one posted entry, got %d", page.Total)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	router := NewRouter(newRouterConfig(t))

	do(t, router, http.MethodGet, "/health", nil, nil)
	rec := do(t, router, http.MethodGet, "/metrics", nil, nil)
	expectStatus(t, rec, http.StatusOK)

	if !bytes.Contains(rec.Body.Bytes(), []byte("vslaledger_http_requests_total")) {
		t.Fatalf("expected http metrics to be exposed")
	}
}

func newRouterConfig(t *testing.T, opts ...func(*RouterConfig)) RouterConfig {
	t.Helper()

	store := memory.NewStore()
	txManager := memory.NewTxManager(store)
	ledgerRepo := memory.NewLedgerRepository(store)
	loanRepo := memory.NewLoanRepository(store)
	installmentRepo := memory.NewInstallmentRepository(store)
	assessmentRepo := memory.NewAssessmentRepository(store)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	logger := zerolog.Nop()
	idGen := mocks.NewMockIDGenerator()

	ledgerUC := usecase.NewLedgerUseCase(txManager, ledgerRepo, nil, nil, idGen, m, logger)
	loanUC := usecase.NewLoanUseCase(
		txManager,
		loanRepo,
		installmentRepo,
		ledgerUC,
		usecase.NewRepaymentProcessor(installmentRepo),
		usecase.DefaultLoanPolicy(),
		nil,
		nil,
		idGen,
		m,
		logger,
	)
	eligibilityUC := usecase.NewEligibilityUseCase(txManager, assessmentRepo, loanRepo, 0, nil, nil, idGen, m, logger)
	reconciliationUC := usecase.NewReconciliationUseCase(ledgerRepo, m, logger)

	cfg := RouterConfig{
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC, reconciliationUC),
		LoanHandler:        handler.NewLoanHandler(loanUC),
		EligibilityHandler: handler.NewEligibilityHandler(eligibilityUC),
		HealthHandler:      handler.NewHealthHandler(nil),
		Metrics:            m,
		Gatherer:           registry,
		Logger:             logger,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

func do(t *testing.T, router http.Handler, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := doWithHeaders(t, router, method, path, body, nil)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec
}

func doWithHeaders(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func itoa(id int64) string {
	return decimal.NewFromInt(id).String()
}

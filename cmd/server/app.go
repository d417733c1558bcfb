package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/vslaledger/internal/adapter/http"
	"github.com/iho/vslaledger/internal/adapter/http/handler"
	"github.com/iho/vslaledger/internal/adapter/http/middleware"
	"github.com/iho/vslaledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/vslaledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/vslaledger/internal/adapter/repository/redis"
	"github.com/iho/vslaledger/internal/infrastructure/config"
	"github.com/iho/vslaledger/internal/infrastructure/eventpublisher"
	"github.com/iho/vslaledger/internal/infrastructure/metrics"
	"github.com/iho/vslaledger/internal/infrastructure/postgres"
	"github.com/iho/vslaledger/internal/infrastructure/redis"
	"github.com/iho/vslaledger/internal/infrastructure/scheduler"
	"github.com/iho/vslaledger/internal/usecase"
)

// limiterSweep is how often idle per-client limiters are dropped.
const limiterSweep = 5 * time.Minute

// storage is the set of ports one backend provides.
type storage struct {
	txManager       usecase.TransactionManager
	ledgerRepo      usecase.LedgerRepository
	loanRepo        usecase.LoanRepository
	installmentRepo usecase.InstallmentRepository
	assessmentRepo  usecase.AssessmentRepository
	retrier         usecase.Retrier
	checks          map[string]handler.Pinger
}

// app owns every long-lived component of the server process.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	ledger         *usecase.LedgerUseCase
	loans          *usecase.LoanUseCase
	eligibility    *usecase.EligibilityUseCase
	reconciliation *usecase.ReconciliationUseCase

	dispatcher *eventpublisher.Dispatcher
	scheduler  *scheduler.Scheduler
	limiter    *middleware.RateLimiter
	server     *http.Server

	closers   []func()
	closeOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	store, err := a.openStorage(ctx)
	if err != nil {
		return err
	}

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			URL:         cfg.RedisURL,
			DialTimeout: 5 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.onClose(func() { _ = redisClient.Close() })
		store.checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		logger.Info().Msg("connected to redis")
	}

	publisher, err := a.openPublisher()
	if err != nil {
		return err
	}

	var notifier usecase.Notifier
	if publisher != nil {
		a.dispatcher = eventpublisher.NewDispatcher(eventpublisher.Config{
			Publisher:  publisher,
			Logger:     logger,
			Recorder:   a.metrics,
			QueueSize:  cfg.NotifyQueueSize,
			Workers:    cfg.NotifyWorkers,
			MaxRetries: 3,
		})
		notifier = a.dispatcher
	}

	lateFee, err := cfg.LateFee()
	if err != nil {
		return err
	}
	policy := usecase.LoanPolicy{
		GraceDays:        cfg.LoanGraceDays,
		LateFeeDailyRate: lateFee,
	}

	// Initialize use cases
	idGen := postgresRepo.NewULIDGenerator()
	a.ledger = usecase.NewLedgerUseCase(store.txManager, store.ledgerRepo, store.retrier, notifier, idGen, a.metrics, logger)
	a.loans = usecase.NewLoanUseCase(
		store.txManager,
		store.loanRepo,
		store.installmentRepo,
		a.ledger,
		usecase.NewRepaymentProcessor(store.installmentRepo),
		policy,
		store.retrier,
		notifier,
		idGen,
		a.metrics,
		logger,
	)
	a.eligibility = usecase.NewEligibilityUseCase(
		store.txManager,
		store.assessmentRepo,
		store.loanRepo,
		cfg.AssessmentValidity,
		store.retrier,
		notifier,
		idGen,
		a.metrics,
		logger,
	)
	a.reconciliation = usecase.NewReconciliationUseCase(store.ledgerRepo, a.metrics, logger)

	if err := a.buildScheduler(redisClient); err != nil {
		return err
	}

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).
		OnReject(func(r *http.Request) {
			a.metrics.RateLimitHits.WithLabelValues(rejectedPath(r.URL.Path)).Inc()
		})

	var idempotencyStore usecase.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:      handler.NewLedgerHandler(a.ledger, a.reconciliation),
		LoanHandler:        handler.NewLoanHandler(a.loans),
		EligibilityHandler: handler.NewEligibilityHandler(a.eligibility),
		HealthHandler:      handler.NewHealthHandler(store.checks),
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        a.limiter,
		Metrics:            a.metrics,
		Gatherer:           a.registry,
		Logger:             logger,
	})

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return nil
}

func (a *app) openStorage(ctx context.Context) (*storage, error) {
	switch a.cfg.StorageBackend {
	case "memory":
		a.logger.Warn().Msg("using in-memory storage; data is lost on restart")
		mem := memory.NewStore()
		return &storage{
			txManager:       memory.NewTxManager(mem),
			ledgerRepo:      memory.NewLedgerRepository(mem),
			loanRepo:        memory.NewLoanRepository(mem),
			installmentRepo: memory.NewInstallmentRepository(mem),
			assessmentRepo:  memory.NewAssessmentRepository(mem),
			checks:          map[string]handler.Pinger{},
		}, nil

	case "postgres":
		if a.cfg.RunMigrations {
			if err := postgres.RunMigrations(a.cfg.DatabaseURL, a.cfg.MigrationsPath, a.logger); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    a.cfg.DatabaseURL,
			MaxConns:       a.cfg.DatabaseMaxConns,
			MinConns:       a.cfg.DatabaseMinConns,
			ConnectTimeout: a.cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.onClose(pool.Close)
		a.logger.Info().Msg("connected to postgres")

		return &storage{
			txManager:       postgresRepo.NewTxManager(pool),
			ledgerRepo:      postgresRepo.NewLedgerRepository(pool),
			loanRepo:        postgresRepo.NewLoanRepository(pool),
			installmentRepo: postgresRepo.NewInstallmentRepository(pool),
			assessmentRepo:  postgresRepo.NewAssessmentRepository(pool),
			retrier:         postgresRepo.NewRetrier(a.logger),
			checks:          map[string]handler.Pinger{"postgres": pool},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.cfg.StorageBackend)
}

// openPublisher returns nil when notifications are disabled.
func (a *app) openPublisher() (eventpublisher.Publisher, error) {
	switch a.cfg.NotifyBackend {
	case "none":
		return nil, nil
	case "log":
		return eventpublisher.NewLogPublisher(a.logger), nil
	case "kafka":
		p := eventpublisher.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic)
		a.onClose(func() { _ = p.Close() })
		return p, nil
	case "amqp":
		p, err := eventpublisher.NewAMQPPublisher(a.cfg.AMQPURL, a.cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to amqp: %w", err)
		}
		a.onClose(func() { _ = p.Close() })
		return p, nil
	}
	return nil, fmt.Errorf("unknown notify backend %q", a.cfg.NotifyBackend)
}

func (a *app) buildScheduler(redisClient *goredis.Client) error {
	opts := []scheduler.Option{scheduler.WithRecorder(a.metrics)}
	if redisClient != nil {
		owner, _ := os.Hostname()
		opts = append(opts, scheduler.WithLocker(redisRepo.NewJobLock(redisClient, fmt.Sprintf("%s:%d", owner, os.Getpid()))))
	}
	a.scheduler = scheduler.New(a.logger, opts...)

	if a.cfg.ReconcileSchedule != "" {
		if err := a.scheduler.Add(scheduler.ReconcileJob(a.cfg.ReconcileSchedule, a.reconciliation, a.logger)); err != nil {
			return err
		}
	}
	if a.cfg.OverdueSchedule != "" {
		if err := a.scheduler.Add(scheduler.OverdueJob(a.cfg.OverdueSchedule, a.loans)); err != nil {
			return err
		}
	}
	return nil
}

// run serves until ctx is cancelled, then shuts every component down.
func (a *app) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("port", a.cfg.HTTPPort).Msg("starting server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.dispatcher != nil {
		g.Go(func() error {
			return ignoreCanceled(a.dispatcher.Run(gctx))
		})
	}

	g.Go(func() error {
		return ignoreCanceled(a.scheduler.Run(gctx))
	})

	g.Go(func() error {
		ticker := time.NewTicker(limiterSweep)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := a.limiter.CleanupLimiters(limiterSweep); n > 0 {
					a.logger.Debug().Int("removed", n).Msg("dropped idle rate limiters")
				}
			}
		}
	})

	return g.Wait()
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases connections in reverse order of acquisition.
func (a *app) close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// rejectedPath keeps the first three path segments so rejections can be
// labelled before routing without unbounded label values.
func rejectedPath(path string) string {
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return "/" + strings.Join(parts, "/")
}

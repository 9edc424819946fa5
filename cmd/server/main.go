package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/peerpay/internal/adapter/http"
	"github.com/iho/peerpay/internal/adapter/http/handler"
	"github.com/iho/peerpay/internal/adapter/http/middleware"
	"github.com/iho/peerpay/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/peerpay/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/peerpay/internal/adapter/repository/redis"
	"github.com/iho/peerpay/internal/infrastructure/auth"
	"github.com/iho/peerpay/internal/infrastructure/config"
	"github.com/iho/peerpay/internal/infrastructure/eventpublisher"
	"github.com/iho/peerpay/internal/infrastructure/logger"
	"github.com/iho/peerpay/internal/infrastructure/metrics"
	"github.com/iho/peerpay/internal/infrastructure/postgres"
	"github.com/iho/peerpay/internal/infrastructure/redis"
	"github.com/iho/peerpay/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	var (
		pool        *pgxpool.Pool
		accountRepo usecase.AccountRepository
		outboxRepo  usecase.OutboxRepository
		txManager   usecase.TransactionManager
	)

	switch cfg.Store {
	case config.StorePostgres:
		var err error
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		log.Info().Msg("connected to postgres")

		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		accountRepo = postgresRepo.NewAccountRepository(pool)
		outboxRepo = postgresRepo.NewOutboxRepository(pool)
		txManager = postgresRepo.NewTxManager(pool, cfg.LockTimeout)

	case config.StoreMemory:
		store := memory.NewStore(cfg.LockTimeout)
		accountRepo = store
		outboxRepo = store.Outbox()
		txManager = store
		log.Info().Msg("using in-memory store")
	}

	var (
		redisClient      *redisclient.Client
		cache            usecase.Cache
		idempotencyStore usecase.IdempotencyStore
	)

	if cfg.RedisEnabled {
		var err error
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")

		cache = redisRepo.NewCache(redisClient)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	} else {
		cache = memory.NewCache()
	}

	idGen := postgresRepo.NewULIDGenerator()
	clock := &usecase.SystemClock{}

	accountUC := usecase.NewAccountUseCase(accountRepo, idGen, clock, cache)
	transferUC := usecase.NewTransferUseCase(txManager, accountRepo, outboxRepo, idGen, clock)
	notificationUC := usecase.NewNotificationUseCase(txManager, accountRepo)

	retrier := postgresRepo.NewRetrier(log).WithMetrics(m)
	transferExec := usecase.NewRetryingTransferExecutor(transferUC, retrier)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(log),
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})

	go func() {
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AuthHandler:         handler.NewAuthHandler(accountUC, jwtManager, m),
		AccountHandler:      handler.NewAccountHandler(accountUC),
		TransferHandler:     handler.NewTransferHandler(transferExec, m),
		NotificationHandler: handler.NewNotificationHandler(notificationUC, m),
		HealthHandler:       handler.NewHealthHandler(pool, redisClient),
		JWTManager:          jwtManager,
		IdempotencyStore:    idempotencyStore,
		IdempotencyTTL:      cfg.IdempotencyTTL,
		RateLimiter:         middleware.NewRateLimiter(50, 100),
		Logger:              log,
		Metrics:             m,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("store", cfg.Store).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info().Msg("server stopped")

	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendor-ledger/config"
	httpHandler "vendor-ledger/internal/adapter/http/handler"
	pgStorage "vendor-ledger/internal/adapter/storage/postgres"
	redisStorage "vendor-ledger/internal/adapter/storage/redis"
	"vendor-ledger/internal/core/ports"
	"vendor-ledger/internal/service"
	"vendor-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Vendor Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	entryRepo := pgStorage.NewLedgerEntryRepo(pool)
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	parkedRepo := pgStorage.NewParkedEventRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	dedupCache := redisStorage.NewEventDedupCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	engine := service.NewBalanceEngine(
		walletRepo,
		entryRepo,
		transactor,
		cfg.Ledger.HoldingPeriod,
		cfg.Ledger.MaxAttempts,
		log,
	)

	defaultRate, err := cfg.Settlement.DefaultCommissionRate()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid default commission rate")
	}
	commission := service.NewStaticCommissionResolver(defaultRate)

	consumerSvc := service.NewSettlementConsumer(
		engine,
		entryRepo,
		parkedRepo,
		dedupCache,
		commission,
		cfg.Settlement.DedupTTL,
		log,
	)

	minimum, err := cfg.Payout.Minimum()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid minimum payout threshold")
	}
	mover := service.NewHTTPMoneyMover(
		cfg.Payout.TransferURL,
		cfg.Payout.TransferSecret,
		sigSvc,
		&http.Client{Timeout: cfg.Payout.TransferTimeout},
		cfg.Payout.TransferTimeout,
		log,
	)
	payoutSvc := service.NewPayoutService(payoutRepo, engine, mover, minimum, log)
	reportingSvc := service.NewReportingService(walletRepo, entryRepo, parkedRepo, log)

	// Maturation sweep runs until shutdown.
	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	maturation := service.NewMaturationJob(
		engine,
		entryRepo,
		cfg.Ledger.SweepInterval,
		cfg.Ledger.SweepBatchSize,
		log,
	)
	go maturation.Run(jobCtx)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		ConsumerSvc:      consumerSvc,
		PayoutSvc:        payoutSvc,
		ReportingSvc:     reportingSvc,
		SigSvc:           sigSvc,
		NonceStore:       nonceStore,
		TokenSvc:         tokenSvc,
		SettlementSecret: cfg.Settlement.Secret,
		RateLimitStore:   rateLimitStore,
		HealthCheckers:   []ports.HealthChecker{pgHealth, redisHealth},
		Logger:           log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

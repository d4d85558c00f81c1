package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpAdapter "github.com/khula/khulasync/internal/adapter/http"
	"github.com/khula/khulasync/internal/adapter/http/handler"
	"github.com/khula/khulasync/internal/adapter/http/middleware"
	"github.com/khula/khulasync/internal/adapter/provider"
	postgresRepo "github.com/khula/khulasync/internal/adapter/repository/postgres"
	redisRepo "github.com/khula/khulasync/internal/adapter/repository/redis"
	"github.com/khula/khulasync/internal/adapter/syncapi"
	"github.com/khula/khulasync/internal/infrastructure/config"
	"github.com/khula/khulasync/internal/infrastructure/connectivity"
	"github.com/khula/khulasync/internal/infrastructure/eventpublisher"
	"github.com/khula/khulasync/internal/infrastructure/logger"
	"github.com/khula/khulasync/internal/infrastructure/postgres"
	"github.com/khula/khulasync/internal/infrastructure/redis"
	"github.com/khula/khulasync/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zlog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(slogger)

	ctx := context.Background()

	// Connect to PostgreSQL and apply migrations
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	zlog.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		zlog.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	zlog.Info().Msg("connected to redis")

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	storeRepo := postgresRepo.NewStoreRepository(pool)
	queueRepo := postgresRepo.NewSyncQueueRepository(pool)
	paymentRepo := postgresRepo.NewOfflinePaymentRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	cache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(slogger)

	// Event publishing
	var events usecase.EventPublisher
	if cfg.EventStream != "" {
		events = eventpublisher.NewRedisPublisher(redisClient, cfg.EventStream)
	} else {
		events = eventpublisher.NewLogPublisher(slogger)
	}

	// Connectivity monitor
	monitor := connectivity.NewMonitor(connectivity.Config{
		ProbeURL: cfg.ConnectivityProbeURL,
		Interval: cfg.ConnectivityProbeInterval,
		Timeout:  cfg.ConnectivityProbeTimeout,
		Logger:   slogger,
	})
	monitor.Start()
	defer monitor.Stop()

	// Remote sync API client
	apiClient := syncapi.NewClient(cfg.SyncAPIBaseURL,
		syncapi.WithAuthToken(cfg.SyncAPIToken),
		syncapi.WithHTTPClient(&http.Client{Timeout: cfg.SyncAPITimeout}),
	)

	// Sync engine
	syncEngine := usecase.NewSyncEngine(usecase.SyncEngineConfig{
		Store:         storeRepo,
		Queue:         queueRepo,
		TxManager:     txManager,
		API:           apiClient,
		Connectivity:  monitor,
		IDGen:         idGen,
		Events:        events,
		Logger:        slogger,
		SyncInterval:  cfg.SyncInterval,
		MaxRetries:    cfg.MaxRetries,
		RequireOnline: cfg.RequireOnline,
	}).WithRetrier(retrier)
	syncEngine.Start()
	defer syncEngine.Stop()

	recordService := usecase.NewRecordService(storeRepo, apiClient, monitor, syncEngine, slogger)

	// Payment providers
	providerClient := &http.Client{Timeout: cfg.ProviderTimeout}
	bhadala := provider.NewBhadala(cfg.BhadalaBaseURL, cfg.BhadalaAPIKey, providerClient)
	ecocash := provider.NewEcoCash(cfg.EcoCashBaseURL, cfg.EcoCashMerchantID, cfg.EcoCashAPIKey, providerClient)
	flutterwave := provider.NewFlutterwave(cfg.FlutterwaveBaseURL, cfg.FlutterwaveSecretKey, providerClient)

	fallbackService := usecase.NewPaymentFallbackService(paymentRepo, idGen, slogger)
	paymentGateway := usecase.NewPaymentGateway(usecase.PaymentGatewayConfig{
		Primary:      bhadala,
		Fallbacks:    []usecase.PaymentProvider{ecocash, flutterwave},
		Connectivity: monitor,
		Fallback:     fallbackService,
		Cache:        cache,
		IDGen:        idGen,
		Events:       events,
		Logger:       slogger,
	})

	// Handlers
	recordHandler := handler.NewRecordHandler(recordService)
	syncHandler := handler.NewSyncHandler(syncEngine, monitor)
	paymentHandler := handler.NewPaymentHandler(paymentGateway, fallbackService)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		RecordHandler:    recordHandler,
		SyncHandler:      syncHandler,
		PaymentHandler:   paymentHandler,
		HealthHandler:    healthHandler,
		IdempotencyStore: idempotencyStore,
		RateLimiter:      middleware.NewRateLimiter(50, 100),
		Logger:           zlog,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		zlog.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("server forced to shutdown")
	}

	zlog.Info().Msg("server stopped")
}

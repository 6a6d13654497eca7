package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okhomenko/eventgate/internal/application"
	"github.com/okhomenko/eventgate/internal/application/services"
	"github.com/okhomenko/eventgate/internal/config"
	"github.com/okhomenko/eventgate/internal/infrastructure/gateway"
	"github.com/okhomenko/eventgate/internal/infrastructure/notify"
	"github.com/okhomenko/eventgate/internal/infrastructure/persistence"
	"github.com/okhomenko/eventgate/internal/infrastructure/persistence/postgres"
	"github.com/okhomenko/eventgate/internal/infrastructure/ratelimit"
	"github.com/okhomenko/eventgate/internal/interfaces/rest/handlers"
	"github.com/okhomenko/eventgate/internal/interfaces/rest/middleware"
	"github.com/okhomenko/eventgate/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting eventgate service",
		"port", cfg.Server.Port,
		"env", cfg.Primary.Env,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.NewStore(db.Pool)

	gatewayClient := gateway.NewGatewayClient(cfg.Gateway)
	retryClient := gateway.NewRetryGatewayClient(gatewayClient, cfg.Retry)

	verifier, err := gateway.NewVerifier(cfg.Gateway)
	if err != nil {
		logger.Error("failed to build webhook verifier", "error", err)
		os.Exit(1)
	}
	if verifier.Bypassed() {
		if cfg.IsProduction() {
			logger.Error("webhook signature verification is not configured")
			os.Exit(1)
		}
		logger.Warn("webhook signature verification disabled")
	}

	var notifier application.Notifier
	if cfg.AMQP.URL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQP.URL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	} else {
		logger.Warn("no AMQP broker configured, notifications disabled")
		notifier = notify.NewNopNotifier(logger)
	}

	redisClient := ratelimit.NewRedisClient(cfg.Redis, logger)
	var limiter *ratelimit.Limiter
	if redisClient != nil {
		defer redisClient.Close()
		limiter = ratelimit.NewLimiter(redisClient, cfg.Redis, logger)
	}

	ledger := services.NewPromoLedger(store)
	settlementService := services.NewSettlementService(store, notifier, logger)
	registrationService := services.NewRegistrationService(store, retryClient, ledger, cfg.Gateway.ConnTimeout, logger)
	refundService := services.NewRefundService(store, retryClient, cfg.Gateway.ConnTimeout, logger)
	reconciliationService := services.NewReconciliationService(store, retryClient, settlementService, cfg.Gateway.ConnTimeout, logger)
	webhookProcessor := services.NewWebhookProcessor(settlementService, verifier, logger)

	h := handlers.New(
		registrationService,
		refundService,
		reconciliationService,
		webhookProcessor,
		ledger,
		store,
		logger,
	)

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, logger)
	router := handlers.NewRouter(h, auth, limiter, logger)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper := worker.NewSweeper(
		store,
		reconciliationService,
		registrationService,
		cfg.Worker.Interval,
		cfg.Worker.StaleThreshold,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go sweeper.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

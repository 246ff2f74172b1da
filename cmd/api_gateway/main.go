package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/channel-escrow-market/internal/api_gateway"
	"github.com/channel-escrow-market/internal/api_gateway/service"
	"github.com/channel-escrow-market/internal/clock"
	"github.com/channel-escrow-market/internal/config"
	"github.com/channel-escrow-market/internal/data/mongo"
	"github.com/channel-escrow-market/internal/data/postgres"
	"github.com/channel-escrow-market/internal/deposit_processor/components"
	"github.com/channel-escrow-market/internal/logger"
	"github.com/channel-escrow-market/internal/platform/persistence"
	"github.com/channel-escrow-market/internal/platform/telegram"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	bot, err := telegram.NewBotClient(log, &cfg.Telegram)
	if err != nil {
		log.Error("Failed to initialize Telegram Bot API client", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(log, postgresDB)
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	depositRepo := postgres.NewDepositRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())

	if err = activityRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure activity indexes", "error", err)
		os.Exit(1)
	}

	clk := clock.NewSystem()

	// Webhook deposits are credited in-process, the same way the consumer does
	processor := components.CreateProcessingService(postgresDB, components.Repositories{
		Users:    userRepo,
		Ledger:   ledgerRepo,
		Deposits: depositRepo,
		Outbox:   outboxRepo,
	}, &cfg.Payments, log)

	services := api_gateway.Services{
		Identity: service.NewIdentityService(log, userRepo),
		Orders:   service.NewOrderService(log, postgresDB, orderRepo, outboxRepo, bot, cfg.Telegram.RequireBotAdmin, clk),
		Escrow:   service.NewEscrowService(log, postgresDB, orderRepo, ledgerRepo, outboxRepo, cfg.Escrow.Duration, clk),
		Accounts: service.NewAccountService(log, ledgerRepo, activityRepo, cfg.Payments.WalletAddress, cfg.Payments.CommentPrefix),
		Payments: service.NewPaymentService(log, processor, cfg.Payments.WebhookSecret, cfg.Payments.NanoDivisorExp),
		Verifier: telegram.NewVerifier(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL, clk),
	}

	server := api_gateway.NewServer(log, cfg, services, map[string]api_gateway.Pinger{
		"postgres": postgresDB,
		"mongodb":  mongoDB,
	})
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain HTTP first so in-flight requests still have their pools
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

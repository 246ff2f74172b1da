package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/channel-escrow-market/internal/clock"
	"github.com/channel-escrow-market/internal/config"
	"github.com/channel-escrow-market/internal/data/mongo"
	"github.com/channel-escrow-market/internal/data/postgres"
	"github.com/channel-escrow-market/internal/deposit_processor/components"
	"github.com/channel-escrow-market/internal/deposit_processor/consumer"
	"github.com/channel-escrow-market/internal/deposit_processor/outbox_poller"
	"github.com/channel-escrow-market/internal/deposit_processor/status"
	"github.com/channel-escrow-market/internal/deposit_processor/sweeper"
	"github.com/channel-escrow-market/internal/logger"
	"github.com/channel-escrow-market/internal/platform/messaging/consumers"
	"github.com/channel-escrow-market/internal/platform/messaging/producers"
	"github.com/channel-escrow-market/internal/platform/persistence"
)

func main() {
	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.LoadConfig("deposit_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Deposit Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// dlqProducer is nil when no DLQ topic is configured; rejections then fail
	// and the consumer keeps retrying that message
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize events Kafka producer", "error", err)
		os.Exit(1)
	}

	processingService, shutdownPool := components.CreatePooledProcessingService(postgresDB, components.Repositories{
		Users:    userRepo,
		Ledger:   ledgerRepo,
		Deposits: depositRepo,
		Outbox:   outboxRepo,
	}, cfg, log)

	depositHandler := consumer.NewDepositEventHandler(
		log,
		processingService,
		components.NewRejectionRecorder(dlqProducer, log),
		cfg.Payments.NanoDivisorExp,
	)
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.DepositTopic)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewEventPublisher(outboxRepo, activityRepo, eventProducer, log),
		log,
	)
	escrowSweeper := sweeper.NewSweeper(&cfg.Escrow, postgresDB, orderRepo, ledgerRepo, outboxRepo, clock.NewSystem(), log)
	statusServer := status.NewServer(log, &cfg.Server, map[string]status.Pinger{
		"postgres": postgresDB,
		"mongodb":  mongoDB,
	})

	g, gctx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.DepositTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Run(gctx, depositHandler.HandleMessage); err != nil {
			return fmt.Errorf("kafka consumer error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		poller.Start(gctx)
		return nil
	})

	g.Go(func() error {
		escrowSweeper.Start(gctx)
		return nil
	})

	g.Go(func() error {
		return statusServer.Run(gctx)
	})

	serviceErr := g.Wait()
	if serviceErr != nil {
		log.Error("Service error occurred", "error", serviceErr)
	} else {
		log.Info("Shutdown signal received")
	}

	log.Info("Starting graceful shutdown...")
	shutdownPool()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing events Kafka producer", "error", err)
	}
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Deposit Processor shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Deposit Processor shutdown completed successfully")
}

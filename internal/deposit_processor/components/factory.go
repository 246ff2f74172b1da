package components

import (
	"log/slog"

	"github.com/channel-escrow-market/internal/config"
	"github.com/channel-escrow-market/internal/deposit_processor/service"
	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/user"
	"github.com/channel-escrow-market/internal/platform/persistence"
)

// Repositories groups the stores deposit processing writes to
type Repositories struct {
	Users    user.Repository
	Ledger   ledger.Repository
	Deposits deposit.Repository
	Outbox   outbox.Repository
}

// CreateProcessingService wires the synchronous deposit processing service
func CreateProcessingService(
	db persistence.TxRunner,
	repos Repositories,
	cfg *config.PaymentsConfig,
	logger *slog.Logger,
) service.ProcessingService {
	validator := NewNotificationValidator(repos.Deposits, cfg.WalletAddress, cfg.CommentPrefix, logger)
	creditManager := NewCreditManager(repos.Deposits, repos.Ledger, logger)
	outboxManager := NewOutboxManager(repos.Outbox, logger)

	return service.NewProcessingService(
		db,
		validator,
		repos.Users,
		creditManager,
		outboxManager,
		logger,
	)
}

// CreatePooledProcessingService wraps the base service in a worker pool,
// falling back to the base service when the pool cannot be created.
func CreatePooledProcessingService(
	db persistence.TxRunner,
	repos Repositories,
	cfg *config.Config,
	logger *slog.Logger,
) (service.ProcessingService, func()) {
	baseService := CreateProcessingService(db, repos, &cfg.Payments, logger)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService, func() {}
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService, workerPoolService.Shutdown
}

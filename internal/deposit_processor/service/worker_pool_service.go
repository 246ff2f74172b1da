package service

import (
	"context"
	"log/slog"

	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService bounds concurrent notification processing. It
// caps work but does not fan it out: the Kafka consumer submits one message
// and waits, so offsets commit in order and at most one task runs per consumer.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type processResult struct {
	result deposit.Result
	err    error
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// Process runs the notification on a pooled worker and waits for its result.
func (s *WorkerPoolProcessingService) Process(ctx context.Context, n *deposit.Notification) (deposit.Result, error) {
	s.logger.Debug("Submitting deposit notification to worker pool", "tx_hash", n.TxHash)

	resultChan := make(chan processResult, 1)
	notification := *n

	err := s.pool.Submit(func() {
		result, err := s.baseService.Process(ctx, &notification)
		resultChan <- processResult{result: result, err: err}
	})
	if err != nil {
		s.logger.Error("Failed to submit deposit notification to worker pool",
			"tx_hash", n.TxHash,
			"error", err,
		)
		return "", err
	}

	select {
	case res := <-resultChan:
		return res.result, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}

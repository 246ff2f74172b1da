// Package sweeper refunds escrows whose deadline passed without a seller
// confirmation.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/channel-escrow-market/internal/clock"
	"github.com/channel-escrow-market/internal/config"
	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/metrics"
	"github.com/channel-escrow-market/internal/platform/persistence"
)

// Sweeper periodically expires overdue escrows
type Sweeper struct {
	db         persistence.TxRunner
	orderRepo  order.Repository
	ledgerRepo ledger.Repository
	outboxRepo outbox.Repository
	clock      clock.Clock
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
}

func NewSweeper(
	cfg *config.EscrowConfig,
	db persistence.TxRunner,
	orderRepo order.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	clk clock.Clock,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		db:         db,
		orderRepo:  orderRepo,
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		clock:      clk,
		logger:     logger,
		interval:   cfg.SweepInterval,
		batchSize:  cfg.SweepBatchSize,
	}
}

// Start sweeps every interval until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting escrow sweeper", "interval", s.interval.String(), "batch_size", s.batchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Escrow sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Escrow sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce expires one batch of overdue escrows and returns how many were refunded
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	orders, err := s.orderRepo.ListExpiredEscrow(ctx, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired escrows: %w", err)
	}

	refunded := 0
	for _, o := range orders {
		status, err := s.expire(ctx, o, now)
		if err != nil {
			s.logger.Error("Failed to expire escrow", "order_id", o.ID, "error", err)
			continue
		}
		if status == "" {
			s.logger.Info("Escrow settled before expiry", "order_id", o.ID)
			continue
		}
		refunded++
		metrics.SweeperRefunds.WithLabelValues(string(status)).Inc()
		metrics.OrderTransitions.WithLabelValues(string(order.StatusEscrow), string(status)).Inc()
		s.logger.Info("Escrow expired and refunded", "order_id", o.ID, "status", string(status))
	}
	return refunded, nil
}

// expire reactivates the order, or cancels it when the channel was relisted
// meanwhile. It returns the resulting status, or "" when the escrow was no
// longer pending.
func (s *Sweeper) expire(ctx context.Context, o *order.Order, now time.Time) (order.Status, error) {
	if !o.EscrowExpired(now) {
		return "", nil
	}
	if o.BuyerID == nil {
		return "", fmt.Errorf("escrow order %d has no buyer", o.ID)
	}

	won, err := s.expireTo(ctx, o, now, order.StatusActive)
	if errors.Is(err, order.ErrChannelAlreadyListed{}) {
		won, err = s.expireTo(ctx, o, now, order.StatusCancelled)
		if err != nil {
			return "", err
		}
		if !won {
			return "", nil
		}
		return order.StatusCancelled, nil
	}
	if err != nil || !won {
		return "", err
	}
	return order.StatusActive, nil
}

func (s *Sweeper) expireTo(ctx context.Context, o *order.Order, now time.Time, target order.Status) (bool, error) {
	if !order.CanTransition(o.Status, target) {
		return false, fmt.Errorf("order %d cannot move from %s to %s", o.ID, o.Status, target)
	}
	buyerID := *o.BuyerID
	won := false

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ok, err := s.orderRepo.WithTx(tx).ExpireEscrow(ctx, o.ID, buyerID, now, target)
		if err != nil || !ok {
			return err
		}

		refund, err := ledger.NewRefund(buyerID, o.ID, o.Price)
		if err != nil {
			return err
		}
		if err := s.ledgerRepo.WithTx(tx).Append(ctx, refund); err != nil {
			return err
		}

		event := outbox.NewOrderEvent(shared.EventEscrowExpired, o, now)
		event.OrderStatus = target
		if err := outbox.Record(ctx, s.outboxRepo.WithTx(tx), event); err != nil {
			return err
		}

		won = true
		return nil
	})
	return won, err
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/channel-escrow-market/internal/clock"
	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/metrics"
	"github.com/channel-escrow-market/internal/platform/persistence"
)

// Buy outcome labels
const (
	buyResultSuccess             = "escrow_started"
	buyResultInsufficientBalance = "insufficient_balance"
	buyResultLostRace            = "race_lost"
	buyResultRejected            = "rejected"
	buyResultError               = "error"
)

// EscrowServiceImpl implements the EscrowService interface
type EscrowServiceImpl struct {
	db             persistence.TxRunner
	orderRepo      order.Repository
	ledgerRepo     ledger.Repository
	outboxRepo     outbox.Repository
	escrowDuration time.Duration
	clock          clock.Clock
	logger         *slog.Logger
}

// NewEscrowService creates a new escrow service
func NewEscrowService(
	logger *slog.Logger,
	db persistence.TxRunner,
	orderRepo order.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	escrowDuration time.Duration,
	clk clock.Clock,
) EscrowService {
	return &EscrowServiceImpl{
		db:             db,
		orderRepo:      orderRepo,
		ledgerRepo:     ledgerRepo,
		outboxRepo:     outboxRepo,
		escrowDuration: escrowDuration,
		clock:          clk,
		logger:         logger,
	}
}

// Buy holds the price first and then races for the order. Exactly one buyer
// wins the active -> escrow compare-and-set; every loser has their hold
// reversed by a refund before the error is returned.
func (s *EscrowServiceImpl) Buy(ctx context.Context, orderID, buyerID int64) (*order.Order, error) {
	o, err := getOrder(ctx, s.orderRepo, orderID)
	if err != nil {
		s.recordBuy(err)
		return nil, err
	}
	if !order.CanTransition(o.Status, order.StatusEscrow) {
		metrics.BuyOutcomes.WithLabelValues(buyResultRejected).Inc()
		return nil, shared.NewError(shared.KindInvalidState, "Order not active")
	}
	if o.IsSeller(buyerID) {
		metrics.BuyOutcomes.WithLabelValues(buyResultRejected).Inc()
		return nil, shared.NewError(shared.KindForbidden, "Cannot buy your own order")
	}

	balance, err := s.ledgerRepo.BalanceOf(ctx, buyerID)
	if err != nil {
		metrics.BuyOutcomes.WithLabelValues(buyResultError).Inc()
		return nil, shared.Internal("failed to read balance", err)
	}
	if balance.LessThan(o.Price) {
		metrics.BuyOutcomes.WithLabelValues(buyResultInsufficientBalance).Inc()
		return nil, shared.NewError(shared.KindBadRequest, "Insufficient balance")
	}

	hold, err := ledger.NewHold(buyerID, o.ID, o.Price)
	if err != nil {
		metrics.BuyOutcomes.WithLabelValues(buyResultError).Inc()
		return nil, shared.Internal("failed to build hold", err)
	}
	if err := s.ledgerRepo.Append(ctx, hold); err != nil {
		metrics.BuyOutcomes.WithLabelValues(buyResultError).Inc()
		return nil, shared.Internal("failed to hold funds", err)
	}

	// Concurrent buys by one buyer can each pass the balance check above;
	// the re-read after the hold catches the overdraft.
	after, err := s.ledgerRepo.BalanceOf(ctx, buyerID)
	if err != nil {
		return nil, s.reverseHold(ctx, o, buyerID, shared.Internal("failed to read balance", err), buyResultError)
	}
	if after.IsNegative() {
		return nil, s.reverseHold(ctx, o, buyerID, shared.NewError(shared.KindBadRequest, "Insufficient balance"), buyResultInsufficientBalance)
	}

	now := s.clock.Now()
	until := now.Add(s.escrowDuration)
	escrowed := *o
	escrowed.Status = order.StatusEscrow
	escrowed.BuyerID = &buyerID
	escrowed.EscrowUntil = &until

	won := false
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ok, err := s.orderRepo.WithTx(tx).StartEscrow(ctx, o.ID, buyerID, until)
		if err != nil || !ok {
			return err
		}
		if err := outbox.Record(ctx, s.outboxRepo.WithTx(tx), outbox.NewOrderEvent(shared.EventEscrowStarted, &escrowed, now)); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return nil, s.reverseHold(ctx, o, buyerID, shared.Internal("failed to start escrow", err), buyResultError)
	}
	if !won {
		return nil, s.reverseHold(ctx, o, buyerID, shared.NewError(shared.KindConflict, "Order already taken"), buyResultLostRace)
	}

	metrics.BuyOutcomes.WithLabelValues(buyResultSuccess).Inc()
	metrics.OrderTransitions.WithLabelValues(string(order.StatusActive), string(order.StatusEscrow)).Inc()
	s.logger.Info("Escrow started",
		"order_id", o.ID,
		"buyer_id", buyerID,
		"price", o.Price.String(),
		"escrow_until", until)
	return &escrowed, nil
}

// reverseHold refunds the buyer's hold and returns cause, or an internal
// error when the refund itself could not be written
func (s *EscrowServiceImpl) reverseHold(ctx context.Context, o *order.Order, buyerID int64, cause *shared.Error, result string) error {
	metrics.BuyOutcomes.WithLabelValues(result).Inc()

	refund, err := ledger.NewRefund(buyerID, o.ID, o.Price)
	if err == nil {
		err = s.ledgerRepo.Append(ctx, refund)
	}
	if err != nil {
		s.logger.Error("Failed to reverse hold, ledger needs reconciliation",
			"order_id", o.ID,
			"buyer_id", buyerID,
			"price", o.Price.String(),
			"cause", cause,
			"error", err)
		return shared.Internal("failed to reverse hold", err)
	}

	s.logger.Info("Hold reversed", "order_id", o.ID, "buyer_id", buyerID, "reason", cause.Message)
	return cause
}

// Confirm completes an escrowed order and releases the price to the seller
// in one transaction
func (s *EscrowServiceImpl) Confirm(ctx context.Context, orderID, sellerID int64) (*order.Order, error) {
	o, err := getOrder(ctx, s.orderRepo, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(o.Status, order.StatusCompleted) {
		return nil, shared.NewError(shared.KindInvalidState, "Order not in escrow")
	}
	if !o.IsSeller(sellerID) {
		return nil, shared.NewError(shared.KindForbidden, "Only seller can confirm")
	}

	release, err := ledger.NewRelease(o.SellerID, o.ID, o.Price)
	if err != nil {
		return nil, shared.Internal("failed to build release", err)
	}

	now := s.clock.Now()
	completed := *o
	completed.Status = order.StatusCompleted
	completed.CompletedAt = &now

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ok, err := s.orderRepo.WithTx(tx).Complete(ctx, o.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errTransitionLost
		}
		if err := s.ledgerRepo.WithTx(tx).Append(ctx, release); err != nil {
			return err
		}
		return outbox.Record(ctx, s.outboxRepo.WithTx(tx), outbox.NewOrderEvent(shared.EventOrderCompleted, &completed, now))
	})
	if err != nil {
		if errors.Is(err, errTransitionLost) {
			return nil, shared.NewError(shared.KindInvalidState, "Order not in escrow")
		}
		return nil, shared.Internal("failed to complete order", err)
	}

	metrics.OrderTransitions.WithLabelValues(string(order.StatusEscrow), string(order.StatusCompleted)).Inc()
	s.logger.Info("Order completed", "order_id", o.ID, "seller_id", sellerID, "price", o.Price.String())
	return &completed, nil
}

// Settlement shows the seller and the current buyer every entry on the order.
// A former buyer whose hold was refunded sees only their own entries; anyone
// else is forbidden.
func (s *EscrowServiceImpl) Settlement(ctx context.Context, orderID, requesterID int64) (*Settlement, error) {
	o, err := getOrder(ctx, s.orderRepo, orderID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledgerRepo.GetByOrderID(ctx, o.ID)
	if err != nil {
		return nil, shared.Internal("failed to read order ledger", err)
	}

	if !o.IsSeller(requesterID) && !o.IsBuyer(requesterID) {
		own := make([]*ledger.Entry, 0, len(entries))
		for _, e := range entries {
			if e.UserID == requesterID {
				own = append(own, e)
			}
		}
		if len(own) == 0 {
			return nil, shared.NewError(shared.KindForbidden, "Only order participants can view its ledger")
		}
		entries = own
	}

	return &Settlement{Order: o, Entries: entries, Net: ledger.Sum(entries)}, nil
}

func (s *EscrowServiceImpl) recordBuy(err error) {
	if shared.KindOf(err) == shared.KindInternal {
		metrics.BuyOutcomes.WithLabelValues(buyResultError).Inc()
		return
	}
	metrics.BuyOutcomes.WithLabelValues(buyResultRejected).Inc()
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/channel-escrow-market/internal/clock"
	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/metrics"
	"github.com/channel-escrow-market/internal/platform/persistence"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var errTransitionLost = errors.New("order status changed concurrently")

// OrderServiceImpl implements the OrderService interface
type OrderServiceImpl struct {
	db              persistence.TxRunner
	orderRepo       order.Repository
	outboxRepo      outbox.Repository
	channels        ChannelLookup
	requireBotAdmin bool
	clock           clock.Clock
	logger          *slog.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	logger *slog.Logger,
	db persistence.TxRunner,
	orderRepo order.Repository,
	outboxRepo outbox.Repository,
	channels ChannelLookup,
	requireBotAdmin bool,
	clk clock.Clock,
) OrderService {
	return &OrderServiceImpl{
		db:              db,
		orderRepo:       orderRepo,
		outboxRepo:      outboxRepo,
		channels:        channels,
		requireBotAdmin: requireBotAdmin,
		clock:           clk,
		logger:          logger,
	}
}

// CreateListing validates the request, resolves the channel title and
// inserts the active order. The active-channel unique index decides between
// concurrent listings of one channel.
func (s *OrderServiceImpl) CreateListing(ctx context.Context, sellerID int64, channelUsername string, price decimal.Decimal) (*order.Order, error) {
	handle, err := order.NormalizeChannelUsername(channelUsername)
	if err != nil {
		return nil, shared.WrapError(shared.KindBadRequest, "Invalid channel username", err)
	}
	if err := order.ValidatePrice(price); err != nil {
		return nil, shared.WrapError(shared.KindBadRequest, "Invalid price", err)
	}

	if s.requireBotAdmin {
		isAdmin, err := s.channels.IsBotAdmin(ctx, handle)
		if err != nil {
			s.logger.Warn("Bot admin check failed", "channel", handle, "error", err)
		}
		if !isAdmin {
			return nil, shared.WrapError(shared.KindBadRequest, "Bot must be an administrator of the channel", err)
		}
	}

	o, err := order.NewOrder(sellerID, handle, s.channels.ChannelTitle(ctx, handle), price)
	if err != nil {
		return nil, shared.WrapError(shared.KindBadRequest, "Invalid listing", err)
	}
	o.CreatedAt = s.clock.Now()

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.orderRepo.WithTx(tx).Create(ctx, o); err != nil {
			return err
		}
		return outbox.Record(ctx, s.outboxRepo.WithTx(tx), outbox.NewOrderEvent(shared.EventOrderCreated, o, o.CreatedAt))
	})
	if err != nil {
		if errors.Is(err, order.ErrChannelAlreadyListed{}) {
			return nil, shared.WrapError(shared.KindConflict, "Channel already listed", err)
		}
		return nil, shared.Internal("failed to create listing", err)
	}

	metrics.OrderTransitions.WithLabelValues("none", string(order.StatusActive)).Inc()
	s.logger.Info("Listing created", "order_id", o.ID, "seller_id", sellerID, "channel", handle, "price", price.String())
	return o, nil
}

// ListActive returns active listings, newest first
func (s *OrderServiceImpl) ListActive(ctx context.Context, filter order.Filter) ([]*order.Order, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	orders, err := s.orderRepo.ListActive(ctx, filter)
	if err != nil {
		return nil, shared.Internal("failed to list orders", err)
	}
	return orders, nil
}

// GetOrder retrieves an order by its ID
func (s *OrderServiceImpl) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, s.orderRepo, id)
}

// Cancel checks the seller before the status, then moves active -> cancelled
func (s *OrderServiceImpl) Cancel(ctx context.Context, orderID, requesterID int64) (*order.Order, error) {
	o, err := getOrder(ctx, s.orderRepo, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsSeller(requesterID) {
		return nil, shared.NewError(shared.KindForbidden, "Only seller can cancel")
	}
	if o.Status != order.StatusActive {
		return nil, shared.NewError(shared.KindInvalidState, "Order not active")
	}

	cancelled := *o
	cancelled.Status = order.StatusCancelled

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ok, err := s.orderRepo.WithTx(tx).Cancel(ctx, o.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errTransitionLost
		}
		return outbox.Record(ctx, s.outboxRepo.WithTx(tx), outbox.NewOrderEvent(shared.EventOrderCancelled, &cancelled, s.clock.Now()))
	})
	if err != nil {
		if errors.Is(err, errTransitionLost) {
			return nil, shared.NewError(shared.KindInvalidState, "Order not active")
		}
		return nil, shared.Internal("failed to cancel order", err)
	}

	metrics.OrderTransitions.WithLabelValues(string(order.StatusActive), string(order.StatusCancelled)).Inc()
	s.logger.Info("Order cancelled", "order_id", o.ID, "seller_id", requesterID)
	return &cancelled, nil
}

func getOrder(ctx context.Context, repo order.Repository, id int64) (*order.Order, error) {
	o, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound{}) {
			return nil, shared.WrapError(shared.KindNotFound, "Order not found", err)
		}
		return nil, shared.Internal("failed to get order", err)
	}
	return o, nil
}

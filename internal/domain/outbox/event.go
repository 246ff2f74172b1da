package outbox

import (
	"time"

	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the domain fact carried by an outbox message
type Event struct {
	ID          uuid.UUID        `json:"event_id"`
	Type        shared.EventType `json:"event_type"`
	OrderID     *int64           `json:"order_id,omitempty"`
	UserIDs     []int64          `json:"user_ids"`
	Channel     string           `json:"channel_username,omitempty"`
	OrderStatus order.Status     `json:"order_status,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
	TxHash      string           `json:"tx_hash,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// NewOrderEvent describes a change to o, concerning both its seller and buyer
func NewOrderEvent(eventType shared.EventType, o *order.Order, occurredAt time.Time) *Event {
	id := o.ID
	return &Event{
		ID:          uuid.New(),
		Type:        eventType,
		OrderID:     &id,
		UserIDs:     o.Participants(),
		Channel:     o.ChannelUsername,
		OrderStatus: o.Status,
		Amount:      o.Price,
		OccurredAt:  occurredAt,
	}
}

// NewDepositEvent describes a credited deposit for userID
func NewDepositEvent(userID int64, amount decimal.Decimal, txHash string, occurredAt time.Time) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       shared.EventDepositCredited,
		UserIDs:    []int64{userID},
		Amount:     amount,
		TxHash:     txHash,
		OccurredAt: occurredAt,
	}
}

// AggregateID is the order id for order events and the user id otherwise
func (e *Event) AggregateID() int64 {
	if e.OrderID != nil {
		return *e.OrderID
	}
	if len(e.UserIDs) > 0 {
		return e.UserIDs[0]
	}
	return 0
}

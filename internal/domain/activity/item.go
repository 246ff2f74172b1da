package activity

import (
	"context"
	"time"

	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
)

// Item is one line of a user's activity feed, projected from an outbox event
type Item struct {
	EventID     string           `json:"event_id" bson:"event_id"`
	UserID      int64            `json:"user_id" bson:"user_id"`
	Type        shared.EventType `json:"type" bson:"type"`
	OrderID     *int64           `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Channel     string           `json:"channel_username,omitempty" bson:"channel_username,omitempty"`
	OrderStatus string           `json:"order_status,omitempty" bson:"order_status,omitempty"`
	Amount      string           `json:"amount" bson:"amount"`
	TxHash      string           `json:"tx_hash,omitempty" bson:"tx_hash,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at" bson:"occurred_at"`
}

// FromEvent fans an event out into one feed item per concerned user
func FromEvent(e *outbox.Event) []*Item {
	items := make([]*Item, 0, len(e.UserIDs))
	for _, userID := range e.UserIDs {
		items = append(items, &Item{
			EventID:     e.ID.String(),
			UserID:      userID,
			Type:        e.Type,
			OrderID:     e.OrderID,
			Channel:     e.Channel,
			OrderStatus: string(e.OrderStatus),
			Amount:      e.Amount.String(),
			TxHash:      e.TxHash,
			OccurredAt:  e.OccurredAt,
		})
	}
	return items
}

// Repository stores activity feed items. Record is idempotent per event and user.
type Repository interface {
	Record(ctx context.Context, items []*Item) error
	GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*Item, error)
	CountByUserID(ctx context.Context, userID int64) (int64, error)
}

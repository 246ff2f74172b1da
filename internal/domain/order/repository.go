package order

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// Filter narrows market listings
type Filter struct {
	SellerID *int64
	Limit    int
	Offset   int
}

// Repository defines order persistence. Every status change is a
// compare-and-set guarded by the expected current status and reports
// whether this caller won the transition.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListActive(ctx context.Context, filter Filter) ([]*Order, error)
	ListExpiredEscrow(ctx context.Context, now time.Time, limit int) ([]*Order, error)

	// StartEscrow moves active -> escrow and records the buyer and deadline
	StartEscrow(ctx context.Context, id, buyerID int64, until time.Time) (bool, error)

	// Complete moves escrow -> completed
	Complete(ctx context.Context, id int64, completedAt time.Time) (bool, error)

	// Cancel moves active -> cancelled
	Cancel(ctx context.Context, id int64) (bool, error)

	// ExpireEscrow moves an overdue escrow held by buyerID to target, which is
	// either active (relisted) or cancelled, and clears buyer and deadline
	ExpireEscrow(ctx context.Context, id, buyerID int64, now time.Time, target Status) (bool, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrOrderNotFound indicates missing order
type ErrOrderNotFound struct {
	OrderID int64
}

func (e ErrOrderNotFound) Error() string {
	return "order not found: " + strconv.FormatInt(e.OrderID, 10)
}

// Is matches any ErrOrderNotFound when the target carries no id
func (e ErrOrderNotFound) Is(target error) bool {
	t, ok := target.(ErrOrderNotFound)
	if !ok {
		return false
	}
	if t.OrderID == 0 {
		return true
	}
	return e.OrderID == t.OrderID
}

// ErrChannelAlreadyListed indicates another active order exists for the channel
type ErrChannelAlreadyListed struct {
	ChannelUsername string
}

func (e ErrChannelAlreadyListed) Error() string {
	return "channel already listed: " + e.ChannelUsername
}

// Is matches any ErrChannelAlreadyListed when the target carries no channel
func (e ErrChannelAlreadyListed) Is(target error) bool {
	t, ok := target.(ErrChannelAlreadyListed)
	if !ok {
		return false
	}
	return t.ChannelUsername == "" || e.ChannelUsername == t.ChannelUsername
}

package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/channel-escrow-market/internal/domain/activity"
	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/user"
)

// Every service returns *shared.Error for business failures; the Kind is
// what callers branch on.

// IdentityService maps verified Telegram claims to a user record
type IdentityService interface {
	// Resolve returns the user for the claims, creating it on first contact
	Resolve(ctx context.Context, claims user.Claims) (*user.User, error)
}

// OrderService manages listings
type OrderService interface {
	CreateListing(ctx context.Context, sellerID int64, channelUsername string, price decimal.Decimal) (*order.Order, error)
	ListActive(ctx context.Context, filter order.Filter) ([]*order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)

	// Cancel withdraws an active listing. Only the seller may cancel.
	Cancel(ctx context.Context, orderID, requesterID int64) (*order.Order, error)
}

// EscrowService moves money through the order lifecycle
type EscrowService interface {
	// Buy holds the price from the buyer and moves the order into escrow
	Buy(ctx context.Context, orderID, buyerID int64) (*order.Order, error)

	// Confirm releases the held price to the seller and completes the order
	Confirm(ctx context.Context, orderID, sellerID int64) (*order.Order, error)

	// Settlement lists the ledger entries tied to an order as seen by a participant
	Settlement(ctx context.Context, orderID, requesterID int64) (*Settlement, error)
}

// AccountService serves the caller's own balance, history and deposit details
type AccountService interface {
	Profile(ctx context.Context, u *user.User) (*Profile, error)
	Ledger(ctx context.Context, userID int64, page, perPage int) ([]*ledger.Entry, int64, error)
	Activity(ctx context.Context, userID int64, page, perPage int) ([]*activity.Item, int64, error)
	DepositInstructions(u *user.User) *DepositInstructions
}

// PaymentService accepts deposit notifications from the chain indexer webhook
type PaymentService interface {
	Ingest(ctx context.Context, raw []byte, providedSecret string) (deposit.Result, error)
}

// ChannelLookup resolves channel metadata from the Bot API
type ChannelLookup interface {
	// ChannelTitle never fails; it returns the handle when no title is known
	ChannelTitle(ctx context.Context, handle string) string
	IsBotAdmin(ctx context.Context, handle string) (bool, error)
}

// Profile is a user together with their live ledger balance
type Profile struct {
	User    *user.User
	Balance decimal.Decimal
}

// Settlement is the money moved for one order. Net is the sum of Entries.
type Settlement struct {
	Order   *order.Order
	Entries []*ledger.Entry
	Net     decimal.Decimal
}

// DepositInstructions tell a user where to send funds and which comment to attach
type DepositInstructions struct {
	WalletAddress string `json:"wallet_address"`
	Comment       string `json:"comment"`
}

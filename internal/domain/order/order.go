package order

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channel-escrow-market/internal/domain/shared"
)

// Status is the lifecycle state of an order
type Status string

const (
	StatusActive    Status = "active"
	StatusEscrow    Status = "escrow"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidPrice           = errors.New("price must be positive with at most 21 integer digits and 9 decimal places")
	ErrInvalidChannelUsername = errors.New("channel username must start with @ and contain 4-32 letters, digits or underscores")
	ErrInvalidSeller          = errors.New("order requires a seller")

	channelHandle = regexp.MustCompile(`^@[A-Za-z0-9_]{4,32}$`)
)

// SellerInfo is the public profile of a seller joined into market listings
type SellerInfo struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// Order is a listing offering admin control of a Telegram channel for a TON price
type Order struct {
	ID              int64           `json:"id"`
	SellerID        int64           `json:"seller_id"`
	BuyerID         *int64          `json:"buyer_id,omitempty"`
	ChannelUsername string          `json:"channel_username"`
	ChannelTitle    string          `json:"channel_title"`
	ChannelLink     string          `json:"channel_link"`
	Price           decimal.Decimal `json:"price"`
	Status          Status          `json:"status"`
	EscrowUntil     *time.Time      `json:"escrow_until,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Seller          *SellerInfo     `json:"seller,omitempty"`
}

// NewOrder validates a listing request and builds an unsaved active order
func NewOrder(sellerID int64, channelUsername, channelTitle string, price decimal.Decimal) (*Order, error) {
	if sellerID <= 0 {
		return nil, ErrInvalidSeller
	}
	handle, err := NormalizeChannelUsername(channelUsername)
	if err != nil {
		return nil, err
	}
	if err := ValidatePrice(price); err != nil {
		return nil, err
	}
	if strings.TrimSpace(channelTitle) == "" {
		channelTitle = handle
	}

	return &Order{
		SellerID:        sellerID,
		ChannelUsername: handle,
		ChannelTitle:    channelTitle,
		ChannelLink:     ChannelLink(handle),
		Price:           price,
		Status:          StatusActive,
		CreatedAt:       time.Now(),
	}, nil
}

// NormalizeChannelUsername trims whitespace and checks the @handle shape
func NormalizeChannelUsername(s string) (string, error) {
	handle := strings.TrimSpace(s)
	if !channelHandle.MatchString(handle) {
		return "", ErrInvalidChannelUsername
	}
	return handle, nil
}

// ValidatePrice accepts positive amounts no finer than one nanoTON that fit
// the stored NUMERIC(30,9) column
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() || !shared.FitsAmount(price) {
		return ErrInvalidPrice
	}
	return nil
}

// ChannelLink derives the public t.me link for a channel handle
func ChannelLink(handle string) string {
	return "https://t.me/" + strings.TrimPrefix(handle, "@")
}

// CanTransition reports whether from -> to is an edge of the order lifecycle
func CanTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusEscrow || to == StatusCancelled
	case StatusEscrow:
		return to == StatusCompleted || to == StatusActive || to == StatusCancelled
	default:
		return false
	}
}

// IsSeller reports whether userID listed the order
func (o *Order) IsSeller(userID int64) bool {
	return o.SellerID == userID
}

// IsBuyer reports whether userID holds the escrow on the order
func (o *Order) IsBuyer(userID int64) bool {
	return o.BuyerID != nil && *o.BuyerID == userID
}

// EscrowExpired reports whether the escrow deadline has passed at now
func (o *Order) EscrowExpired(now time.Time) bool {
	return o.Status == StatusEscrow && o.EscrowUntil != nil && o.EscrowUntil.Before(now)
}

// Participants lists the users an event about this order concerns
func (o *Order) Participants() []int64 {
	ids := []int64{o.SellerID}
	if o.BuyerID != nil && *o.BuyerID != o.SellerID {
		ids = append(ids, *o.BuyerID)
	}
	return ids
}

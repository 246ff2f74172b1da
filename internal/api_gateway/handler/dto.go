package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/channel-escrow-market/internal/api_gateway/service"
	"github.com/channel-escrow-market/internal/domain/activity"
	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/user"
)

// CreateOrderRequest lists a channel. price_ton accepts a JSON number or a
// decimal string; range and precision are checked by the order service.
type CreateOrderRequest struct {
	ChannelUsername string          `json:"channel_username" binding:"required"`
	PriceTON        decimal.Decimal `json:"price_ton"`
}

// SellerResponse is the public seller profile shown on market listings
type SellerResponse struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              int64           `json:"id"`
	SellerID        int64           `json:"seller_id"`
	BuyerID         *int64          `json:"buyer_id,omitempty"`
	ChannelUsername string          `json:"channel_username"`
	ChannelTitle    string          `json:"channel_title"`
	ChannelLink     string          `json:"channel_link"`
	PriceTON        string          `json:"price_ton"`
	Status          string          `json:"status"`
	EscrowUntil     string          `json:"escrow_until,omitempty"`
	CreatedAt       string          `json:"created_at"`
	CompletedAt     string          `json:"completed_at,omitempty"`
	Seller          *SellerResponse `json:"seller,omitempty"`
}

// OrderStatusResponse is returned by the buy, confirm and cancel actions
type OrderStatusResponse struct {
	Status string        `json:"status"`
	Order  OrderResponse `json:"order"`
}

// MeResponse is the caller's profile with the live ledger balance
type MeResponse struct {
	ID          int64  `json:"id"`
	TelegramID  int64  `json:"telegram_id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	DisplayName string `json:"display_name"`
	Balance     string `json:"balance"`
}

// LedgerEntryResponse represents one ledger movement
type LedgerEntryResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	OrderID   *int64 `json:"order_id,omitempty"`
	Amount    string `json:"amount"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// SettlementResponse lists the ledger movements of one order
type SettlementResponse struct {
	OrderID int64                 `json:"order_id"`
	Status  string                `json:"status"`
	Net     string                `json:"net"`
	Entries []LedgerEntryResponse `json:"entries"`
}

// ActivityResponse represents one activity feed item
type ActivityResponse struct {
	EventID         string `json:"event_id"`
	Type            string `json:"type"`
	OrderID         *int64 `json:"order_id,omitempty"`
	ChannelUsername string `json:"channel_username,omitempty"`
	OrderStatus     string `json:"order_status,omitempty"`
	Amount          string `json:"amount"`
	TxHash          string `json:"tx_hash,omitempty"`
	OccurredAt      string `json:"occurred_at"`
}

// WebhookResponse acknowledges a processed deposit notification
type WebhookResponse struct {
	Status string `json:"status"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// ListOrdersParams narrows the market listing
type ListOrdersParams struct {
	SellerID *int64 `form:"seller_id" binding:"omitempty,min=1"`
	Limit    int    `form:"limit,default=50" binding:"min=1,max=200"`
	Offset   int    `form:"offset,default=0" binding:"min=0"`
}

func mapOrderToResponse(o *order.Order) OrderResponse {
	response := OrderResponse{
		ID:              o.ID,
		SellerID:        o.SellerID,
		BuyerID:         o.BuyerID,
		ChannelUsername: o.ChannelUsername,
		ChannelTitle:    o.ChannelTitle,
		ChannelLink:     o.ChannelLink,
		PriceTON:        o.Price.String(),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
	if o.EscrowUntil != nil {
		response.EscrowUntil = o.EscrowUntil.Format(time.RFC3339)
	}
	if o.CompletedAt != nil {
		response.CompletedAt = o.CompletedAt.Format(time.RFC3339)
	}
	if o.Seller != nil {
		response.Seller = &SellerResponse{Username: o.Seller.Username, FirstName: o.Seller.FirstName}
	}
	return response
}

func mapOrdersToResponse(orders []*order.Order) []OrderResponse {
	response := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, mapOrderToResponse(o))
	}
	return response
}

func mapMeToResponse(u *user.User, balance decimal.Decimal) MeResponse {
	return MeResponse{
		ID:          u.ID,
		TelegramID:  u.TelegramID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		DisplayName: u.DisplayName(),
		Balance:     balance.String(),
	}
}

func mapLedgerEntryToResponse(e *ledger.Entry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		OrderID:   e.OrderID,
		Amount:    e.Amount.String(),
		Type:      string(e.Kind),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func mapSettlementToResponse(s *service.Settlement) SettlementResponse {
	entries := make([]LedgerEntryResponse, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, mapLedgerEntryToResponse(e))
	}
	return SettlementResponse{
		OrderID: s.Order.ID,
		Status:  string(s.Order.Status),
		Net:     s.Net.String(),
		Entries: entries,
	}
}

func mapActivityToResponse(item *activity.Item) ActivityResponse {
	return ActivityResponse{
		EventID:         item.EventID,
		Type:            string(item.Type),
		OrderID:         item.OrderID,
		ChannelUsername: item.Channel,
		OrderStatus:     item.OrderStatus,
		Amount:          item.Amount,
		TxHash:          item.TxHash,
		OccurredAt:      item.OccurredAt.Format(time.RFC3339),
	}
}

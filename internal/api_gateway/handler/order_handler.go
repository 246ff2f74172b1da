package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/channel-escrow-market/internal/api_gateway/middleware"
	"github.com/channel-escrow-market/internal/api_gateway/service"
	"github.com/channel-escrow-market/internal/domain/order"
)

// OrderHandler handles HTTP requests for listings and the escrow actions on them
type OrderHandler struct {
	orderService  service.OrderService
	escrowService service.EscrowService
	logger        *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(logger *slog.Logger, orderService service.OrderService, escrowService service.EscrowService) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		escrowService: escrowService,
		logger:        logger,
	}
}

// Create lists a channel for sale by the caller
func (h *OrderHandler) Create(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	o, err := h.orderService.CreateListing(c.Request.Context(), caller.ID, req.ChannelUsername, req.PriceTON)
	if err != nil {
		RespondWithServiceError(c, err)
		return
	}

	RespondCreated(c, mapOrderToResponse(o))
}

// List returns active listings, optionally for one seller
func (h *OrderHandler) List(c *gin.Context) {
	var params ListOrdersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Warn("Invalid list parameters", "error", err)
		RespondBadRequest(c, "Invalid list parameters")
		return
	}

	orders, err := h.orderService.ListActive(c.Request.Context(), order.Filter{
		SellerID: params.SellerID,
		Limit:    params.Limit,
		Offset:   params.Offset,
	})
	if err != nil {
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapOrdersToResponse(orders))
}

// GetByID retrieves a single order, returning 404 if not found
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapOrderToResponse(o))
}

// Settlement lists the ledger entries tied to an order for one of its participants
func (h *OrderHandler) Settlement(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	settlement, err := h.escrowService.Settlement(c.Request.Context(), id, caller.ID)
	if err != nil {
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapSettlementToResponse(settlement))
}

// Buy holds the price from the caller's balance and moves the order into escrow
func (h *OrderHandler) Buy(c *gin.Context) {
	h.transition(c, "escrow_started", h.escrowService.Buy)
}

// Confirm releases the escrowed price to the seller
func (h *OrderHandler) Confirm(c *gin.Context) {
	h.transition(c, "completed", h.escrowService.Confirm)
}

// Cancel withdraws an active listing
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, "cancelled", h.orderService.Cancel)
}

// orderAction is a state change on one order performed by the caller
type orderAction func(ctx context.Context, orderID, userID int64) (*order.Order, error)

func (h *OrderHandler) transition(c *gin.Context, status string, action orderAction) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	o, err := action(c.Request.Context(), id, caller.ID)
	if err != nil {
		RespondWithServiceError(c, err)
		return
	}

	RespondWithData(c, http.StatusOK, OrderStatusResponse{Status: status, Order: mapOrderToResponse(o)})
}

func (h *OrderHandler) orderID(c *gin.Context) (int64, bool) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Warn("Invalid order ID", "id", idParam)
		RespondBadRequest(c, "Invalid order ID")
		return 0, false
	}
	return id, true
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/channel-escrow-market/internal/api_gateway/middleware"
	"github.com/channel-escrow-market/internal/api_gateway/service"
)

// AccountHandler serves the caller's own profile, history and deposit details
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Me returns the caller with a balance summed from the ledger
func (h *AccountHandler) Me(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	profile, err := h.accountService.Profile(c.Request.Context(), caller)
	if err != nil {
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapMeToResponse(profile.User, profile.Balance))
}

// Ledger retrieves the caller's paginated ledger, newest first
func (h *AccountHandler) Ledger(c *gin.Context) {
	caller, pagination, ok := h.pagedRequest(c)
	if !ok {
		return
	}

	entries, total, err := h.accountService.Ledger(c.Request.Context(), caller, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithServiceError(c, err)
		return
	}

	response := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, mapLedgerEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Page, pagination.PerPage, int(total))
}

// Activity retrieves the caller's paginated activity feed, newest first
func (h *AccountHandler) Activity(c *gin.Context) {
	caller, pagination, ok := h.pagedRequest(c)
	if !ok {
		return
	}

	items, total, err := h.accountService.Activity(c.Request.Context(), caller, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithServiceError(c, err)
		return
	}

	response := make([]ActivityResponse, 0, len(items))
	for _, item := range items {
		response = append(response, mapActivityToResponse(item))
	}

	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Page, pagination.PerPage, int(total))
}

// DepositInstructions tells the caller where to send TON and which comment to attach
func (h *AccountHandler) DepositInstructions(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	RespondOK(c, h.accountService.DepositInstructions(caller))
}

func (h *AccountHandler) pagedRequest(c *gin.Context) (int64, PaginationParams, bool) {
	var pagination PaginationParams

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		RespondUnauthorized(c, "")
		return 0, pagination, false
	}

	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return 0, pagination, false
	}
	return caller.ID, pagination, true
}

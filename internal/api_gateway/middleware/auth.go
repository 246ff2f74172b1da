package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/channel-escrow-market/internal/api_gateway/service"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/domain/user"
)

// UserKey is the gin context key holding the authenticated *user.User
const UserKey = "current_user"

const bearerPrefix = "Bearer "

// InitDataVerifier checks a raw Mini App initData string
type InitDataVerifier interface {
	Verify(initData string) (*user.Claims, error)
}

// Auth middleware verifies "Authorization: Bearer <initData>" on every
// request and resolves the caller to a user record. There is no session;
// each request carries its own proof.
func Auth(logger *slog.Logger, verifier InitDataVerifier, identities service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			abortWithError(c, http.StatusUnauthorized, shared.KindUnauthorized, "Missing authorization")
			return
		}
		initData := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if initData == "" {
			abortWithError(c, http.StatusUnauthorized, shared.KindUnauthorized, "Missing authorization")
			return
		}

		claims, err := verifier.Verify(initData)
		if err != nil {
			logger.Warn("Rejected init data", "error", err, "correlation_id", GetCorrelationID(c))
			abortWithError(c, http.StatusUnauthorized, shared.KindUnauthorized, "Invalid init data")
			return
		}

		u, err := identities.Resolve(c.Request.Context(), *claims)
		if err != nil {
			if shared.KindOf(err) == shared.KindInternal {
				logger.Error("Failed to resolve user", "telegram_id", claims.TelegramID, "error", err)
				abortWithError(c, http.StatusInternalServerError, shared.KindInternal, shared.MessageOf(err))
				return
			}
			abortWithError(c, http.StatusUnauthorized, shared.KindUnauthorized, shared.MessageOf(err))
			return
		}

		c.Set(UserKey, u)
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth
func CurrentUser(c *gin.Context) (*user.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok && u != nil
}

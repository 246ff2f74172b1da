package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/domain/user"
)

type stubVerifier struct {
	claims *user.Claims
	err    error
	got    string
}

func (v *stubVerifier) Verify(initData string) (*user.Claims, error) {
	v.got = initData
	return v.claims, v.err
}

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) Resolve(ctx context.Context, claims user.Claims) (*user.User, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func serveWithAuth(verifier InitDataVerifier, identities *MockIdentityService, header string) (*httptest.ResponseRecorder, *user.User) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var seen *user.User
	router := gin.New()
	router.Use(Auth(logger, verifier, identities))
	router.GET("/me", func(c *gin.Context) {
		seen, _ = CurrentUser(c)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr, seen
}

func TestAuthMiddleware(t *testing.T) {
	claims := &user.Claims{TelegramID: 42, Username: "alice"}
	alice := &user.User{ID: 7, TelegramID: 42, Username: "alice"}

	t.Run("resolves verified caller", func(t *testing.T) {
		verifier := &stubVerifier{claims: claims}
		identities := &MockIdentityService{}
		identities.On("Resolve", mock.Anything, *claims).Return(alice, nil)

		rr, seen := serveWithAuth(verifier, identities, "Bearer query_id=1&user=x&hash=abc")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, alice, seen)
		assert.Equal(t, "query_id=1&user=x&hash=abc", verifier.got)
	})

	t.Run("missing header", func(t *testing.T) {
		identities := &MockIdentityService{}

		rr, seen := serveWithAuth(&stubVerifier{}, identities, "")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":{"code":"UNAUTHORIZED","message":"Missing authorization"}}`, rr.Body.String())
		assert.Nil(t, seen)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rr, _ := serveWithAuth(&stubVerifier{}, &MockIdentityService{}, "Basic dXNlcjpwYXNz")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("bad signature", func(t *testing.T) {
		identities := &MockIdentityService{}

		rr, _ := serveWithAuth(&stubVerifier{err: errors.New("signature mismatch")}, identities, "Bearer forged")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid init data")
		identities.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	})

	t.Run("storage failure while resolving", func(t *testing.T) {
		identities := &MockIdentityService{}
		identities.On("Resolve", mock.Anything, *claims).Return(nil, shared.Internal("lookup failed", errors.New("down")))

		rr, _ := serveWithAuth(&stubVerifier{claims: claims}, identities, "Bearer ok")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), `"code":"INTERNAL"`)
		assert.NotContains(t, rr.Body.String(), "down")
	})
}

func TestCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := CurrentUser(c)
	assert.False(t, ok)

	c.Set(UserKey, "not a user")
	_, ok = CurrentUser(c)
	assert.False(t, ok)

	c.Set(UserKey, &user.User{ID: 1})
	u, ok := CurrentUser(c)
	assert.True(t, ok)
	assert.Equal(t, int64(1), u.ID)
}

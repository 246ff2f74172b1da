package handler

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/channel-escrow-market/internal/api_gateway/middleware"
	"github.com/channel-escrow-market/internal/api_gateway/service"
	"github.com/channel-escrow-market/internal/domain/activity"
	"github.com/channel-escrow-market/internal/domain/deposit"
	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/user"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateListing(ctx context.Context, sellerID int64, channelUsername string, price decimal.Decimal) (*order.Order, error) {
	args := m.Called(ctx, sellerID, channelUsername, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListActive(ctx context.Context, filter order.Filter) ([]*order.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, orderID, requesterID int64) (*order.Order, error) {
	args := m.Called(ctx, orderID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockEscrowService struct {
	mock.Mock
}

func (m *MockEscrowService) Buy(ctx context.Context, orderID, buyerID int64) (*order.Order, error) {
	args := m.Called(ctx, orderID, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockEscrowService) Confirm(ctx context.Context, orderID, sellerID int64) (*order.Order, error) {
	args := m.Called(ctx, orderID, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockEscrowService) Settlement(ctx context.Context, orderID, requesterID int64) (*service.Settlement, error) {
	args := m.Called(ctx, orderID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Settlement), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Profile(ctx context.Context, u *user.User) (*service.Profile, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Profile), args.Error(1)
}

func (m *MockAccountService) Ledger(ctx context.Context, userID int64, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountService) Activity(ctx context.Context, userID int64, page, perPage int) ([]*activity.Item, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*activity.Item), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountService) DepositInstructions(u *user.User) *service.DepositInstructions {
	return m.Called(u).Get(0).(*service.DepositInstructions)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Ingest(ctx context.Context, raw []byte, providedSecret string) (deposit.Result, error) {
	args := m.Called(ctx, raw, providedSecret)
	return args.Get(0).(deposit.Result), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// setupTestRouter authenticates every request as caller when caller is non-nil
func setupTestRouter(caller *user.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	if caller != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.UserKey, caller)
			c.Next()
		})
	}
	return r
}

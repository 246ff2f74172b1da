package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/domain/user"
	"github.com/channel-escrow-market/internal/mocks"
)

func TestIdentityService_Resolve(t *testing.T) {
	ctx := context.Background()
	claims := user.Claims{TelegramID: 42, Username: "alice", FirstName: "Alice"}
	existing := &user.User{ID: 7, TelegramID: 42, Username: "alice"}

	t.Run("returns known user", func(t *testing.T) {
		users := &mocks.UserRepository{}
		users.On("GetByTelegramID", ctx, int64(42)).Return(existing, nil)

		u, err := NewIdentityService(newTestLogger(), users).Resolve(ctx, claims)

		require.NoError(t, err)
		assert.Equal(t, existing, u)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("registers on first contact", func(t *testing.T) {
		users := &mocks.UserRepository{}
		users.On("GetByTelegramID", ctx, int64(42)).Return(nil, nil)
		users.On("Create", ctx, mock.MatchedBy(func(u *user.User) bool {
			return u.TelegramID == 42 && u.Username == "alice" && u.FirstName == "Alice"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*user.User).ID = 8
		}).Return(nil)

		u, err := NewIdentityService(newTestLogger(), users).Resolve(ctx, claims)

		require.NoError(t, err)
		assert.Equal(t, int64(8), u.ID)
	})

	t.Run("concurrent registration re-reads winner", func(t *testing.T) {
		users := &mocks.UserRepository{}
		users.On("GetByTelegramID", ctx, int64(42)).Return(nil, nil).Once()
		users.On("Create", ctx, mock.Anything).Return(user.ErrDuplicateTelegramID{TelegramID: 42})
		users.On("GetByTelegramID", ctx, int64(42)).Return(existing, nil).Once()

		u, err := NewIdentityService(newTestLogger(), users).Resolve(ctx, claims)

		require.NoError(t, err)
		assert.Equal(t, existing, u)
	})

	t.Run("storage failure is internal", func(t *testing.T) {
		users := &mocks.UserRepository{}
		users.On("GetByTelegramID", ctx, int64(42)).Return(nil, errors.New("down"))

		_, err := NewIdentityService(newTestLogger(), users).Resolve(ctx, claims)

		assert.Equal(t, shared.KindInternal, shared.KindOf(err))
	})
}

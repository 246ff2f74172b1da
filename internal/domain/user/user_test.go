package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		before := time.Now()
		u, err := NewUser(Claims{TelegramID: 42, Username: "alice", FirstName: "Alice"})
		after := time.Now()

		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Zero(t, u.ID, "ID is assigned by storage")
		assert.Equal(t, int64(42), u.TelegramID)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "Alice", u.FirstName)
		assert.WithinDuration(t, before, u.CreatedAt, after.Sub(before)+time.Millisecond)
	})

	t.Run("NonPositiveTelegramID", func(t *testing.T) {
		for _, id := range []int64{0, -7} {
			u, err := NewUser(Claims{TelegramID: id})
			assert.ErrorIs(t, err, ErrInvalidTelegramID)
			assert.Nil(t, u)
		}
	})
}

func TestUser_DisplayName(t *testing.T) {
	testCases := []struct {
		name string
		user User
		want string
	}{
		{"FirstName", User{TelegramID: 1, Username: "bob", FirstName: "Bob"}, "Bob"},
		{"UsernameOnly", User{TelegramID: 1, Username: "bob"}, "@bob"},
		{"Anonymous", User{TelegramID: 77}, "user 77"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.DisplayName())
		})
	}
}

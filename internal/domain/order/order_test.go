package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		o, err := NewOrder(5, "  @crypto_news ", "Crypto News", decimal.RequireFromString("12.5"))

		require.NoError(t, err)
		assert.Equal(t, int64(5), o.SellerID)
		assert.Equal(t, "@crypto_news", o.ChannelUsername)
		assert.Equal(t, "Crypto News", o.ChannelTitle)
		assert.Equal(t, "https://t.me/crypto_news", o.ChannelLink)
		assert.Equal(t, StatusActive, o.Status)
		assert.Nil(t, o.BuyerID)
		assert.Nil(t, o.EscrowUntil)
	})

	t.Run("TitleFallsBackToHandle", func(t *testing.T) {
		o, err := NewOrder(5, "@crypto_news", " ", decimal.RequireFromString("1"))
		require.NoError(t, err)
		assert.Equal(t, "@crypto_news", o.ChannelTitle)
	})

	t.Run("InvalidSeller", func(t *testing.T) {
		_, err := NewOrder(0, "@crypto_news", "", decimal.RequireFromString("1"))
		assert.ErrorIs(t, err, ErrInvalidSeller)
	})
}

func TestNormalizeChannelUsername(t *testing.T) {
	valid := []string{"@abcd", "@Channel_42", "@" + "a234567890123456789012345678901b"}
	invalid := []string{"", "abc", "crypto_news", "@abc", "@has space", "@dash-ed", "@" + "a2345678901234567890123456789012x"}

	for _, s := range valid {
		_, err := NormalizeChannelUsername(s)
		assert.NoError(t, err, s)
	}
	for _, s := range invalid {
		_, err := NormalizeChannelUsername(s)
		assert.ErrorIs(t, err, ErrInvalidChannelUsername, s)
	}

	// "@abcd" is the shortest valid handle: four characters after the @
	assert.Contains(t, ErrInvalidChannelUsername.Error(), "4-32")
}

func TestValidatePrice(t *testing.T) {
	testCases := []struct {
		price string
		valid bool
	}{
		{"1", true},
		{"0.000000001", true},
		{"100.5", true},
		{"0", false},
		{"-3", false},
		{"0.0000000001", false},
		{"999999999999999999999.5", true},
		{"1e21", false},
		{"1e30", false},
		{"1e7000000", false},
		{"1e-7000000", false},
	}

	for _, tc := range testCases {
		t.Run(tc.price, func(t *testing.T) {
			err := ValidatePrice(decimal.RequireFromString(tc.price))
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPrice)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusActive, StatusEscrow))
	assert.True(t, CanTransition(StatusActive, StatusCancelled))
	assert.True(t, CanTransition(StatusEscrow, StatusCompleted))
	assert.True(t, CanTransition(StatusEscrow, StatusActive))
	assert.True(t, CanTransition(StatusEscrow, StatusCancelled))

	assert.False(t, CanTransition(StatusActive, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusActive))
	assert.False(t, CanTransition(StatusCancelled, StatusActive))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
}

func TestOrder_EscrowExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	assert.True(t, (&Order{Status: StatusEscrow, EscrowUntil: &past}).EscrowExpired(now))
	assert.False(t, (&Order{Status: StatusEscrow, EscrowUntil: &future}).EscrowExpired(now))
	assert.False(t, (&Order{Status: StatusActive, EscrowUntil: &past}).EscrowExpired(now))
	assert.False(t, (&Order{Status: StatusEscrow}).EscrowExpired(now))
}

func TestOrder_Participants(t *testing.T) {
	buyer := int64(8)
	assert.Equal(t, []int64{3}, (&Order{SellerID: 3}).Participants())
	assert.Equal(t, []int64{3, 8}, (&Order{SellerID: 3, BuyerID: &buyer}).Participants())

	o := &Order{SellerID: 3, BuyerID: &buyer}
	assert.True(t, o.IsSeller(3))
	assert.False(t, o.IsSeller(8))
	assert.True(t, o.IsBuyer(8))
	assert.False(t, (&Order{SellerID: 3}).IsBuyer(8))
}

func TestErrOrderNotFound_Is(t *testing.T) {
	err := ErrOrderNotFound{OrderID: 4}
	assert.ErrorIs(t, err, ErrOrderNotFound{})
	assert.ErrorIs(t, err, ErrOrderNotFound{OrderID: 4})
	assert.NotErrorIs(t, err, ErrOrderNotFound{OrderID: 5})
}

package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderRowColumns = []string{
	"id", "seller_id", "buyer_id", "channel_username", "channel_title", "channel_link",
	"price_ton", "status", "escrow_until", "created_at", "completed_at",
}

func TestOrderRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := &OrderRepository{querier: mock, logger: newTestLogger()}

	o, err := order.NewOrder(5, "@crypto_news", "Crypto News", decimal.RequireFromString("12.5"))
	require.NoError(t, err)

	query := regexp.QuoteMeta(`INSERT INTO orders (seller_id, channel_username, channel_title, channel_link, price_ton, status, created_at)`)
	args := []any{int64(5), "@crypto_news", "Crypto News", "https://t.me/crypto_news", "12.5", "active", o.CreatedAt}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(args...).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(31)))

		require.NoError(t, repo.Create(ctx, o))
		assert.Equal(t, int64(31), o.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("channel already listed", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(args...).WillReturnError(uniqueErr(activeChannelIndex))

		err := repo.Create(ctx, o)
		assert.ErrorIs(t, err, order.ErrChannelAlreadyListed{ChannelUsername: "@crypto_news"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other unique violation is a storage error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(args...).WillReturnError(uniqueErr("orders_pkey"))

		err := repo.Create(ctx, o)
		assert.NotErrorIs(t, err, order.ErrChannelAlreadyListed{})
		assert.ErrorContains(t, err, "failed to create order")
	})
}

func TestOrderRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := &OrderRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()
	until := now.Add(90 * time.Minute)
	buyer := int64(8)

	query := regexp.QuoteMeta(`WHERE o.id = $1`)

	t.Run("escrow order", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(31)).
			WillReturnRows(pgxmock.NewRows(orderRowColumns).AddRow(
				int64(31), int64(5), &buyer, "@crypto_news", "Crypto News", "https://t.me/crypto_news",
				"12.500000000", "escrow", &until, now, (*time.Time)(nil),
			))

		o, err := repo.GetByID(ctx, 31)
		require.NoError(t, err)
		assert.Equal(t, order.StatusEscrow, o.Status)
		assert.True(t, o.Price.Equal(decimal.RequireFromString("12.5")))
		require.NotNil(t, o.BuyerID)
		assert.Equal(t, buyer, *o.BuyerID)
		assert.Equal(t, until, *o.EscrowUntil)
		assert.Nil(t, o.CompletedAt)
		assert.Nil(t, o.Seller)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)

		o, err := repo.GetByID(ctx, 404)
		assert.Nil(t, o)
		assert.ErrorIs(t, err, order.ErrOrderNotFound{OrderID: 404})
	})
}

func TestOrderRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := &OrderRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()
	seller := int64(5)

	columns := append(append([]string{}, orderRowColumns...), "username", "first_name")
	query := regexp.QuoteMeta(`WHERE o.status = 'active' AND ($1::bigint IS NULL OR o.seller_id = $1)`)

	mock.ExpectQuery(query).WithArgs(&seller, 50, 0).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			int64(31), int64(5), (*int64)(nil), "@crypto_news", "Crypto News", "https://t.me/crypto_news",
			"1", "active", (*time.Time)(nil), now, (*time.Time)(nil), "alice", "Alice",
		))

	orders, err := repo.ListActive(ctx, order.Filter{SellerID: &seller, Limit: 50})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, &order.SellerInfo{Username: "alice", FirstName: "Alice"}, orders[0].Seller)
	assert.Nil(t, orders[0].BuyerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GuardedTransitions(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	testCases := []struct {
		name  string
		query string
		args  []any
		call  func(r *OrderRepository) (bool, error)
	}{
		{
			name:  "StartEscrowRequiresActive",
			query: `SET status = 'escrow', buyer_id = $2, escrow_until = $3 WHERE id = $1 AND status = 'active'`,
			args:  []any{int64(31), int64(8), now},
			call:  func(r *OrderRepository) (bool, error) { return r.StartEscrow(ctx, 31, 8, now) },
		},
		{
			name:  "CompleteRequiresEscrow",
			query: `SET status = 'completed', completed_at = $2 WHERE id = $1 AND status = 'escrow'`,
			args:  []any{int64(31), now},
			call:  func(r *OrderRepository) (bool, error) { return r.Complete(ctx, 31, now) },
		},
		{
			name:  "CancelRequiresActive",
			query: `SET status = 'cancelled' WHERE id = $1 AND status = 'active'`,
			args:  []any{int64(31)},
			call:  func(r *OrderRepository) (bool, error) { return r.Cancel(ctx, 31) },
		},
		{
			name:  "ExpireRequiresEscrowBuyerAndDeadline",
			query: `WHERE id = $1 AND status = 'escrow' AND buyer_id = $2 AND escrow_until < $3`,
			args:  []any{int64(31), int64(8), now, "active"},
			call: func(r *OrderRepository) (bool, error) {
				return r.ExpireEscrow(ctx, 31, 8, now, order.StatusActive)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			repo := &OrderRepository{querier: mock, logger: newTestLogger()}

			mock.ExpectExec(regexp.QuoteMeta(tc.query)).WithArgs(tc.args...).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			won, err := tc.call(repo)
			require.NoError(t, err)
			assert.True(t, won, "guard matched")

			mock.ExpectExec(regexp.QuoteMeta(tc.query)).WithArgs(tc.args...).
				WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			won, err = tc.call(repo)
			require.NoError(t, err)
			assert.False(t, won, "guard did not match")

			mock.ExpectExec(regexp.QuoteMeta(tc.query)).WithArgs(tc.args...).
				WillReturnError(errors.New("connection refused"))
			_, err = tc.call(repo)
			assert.ErrorContains(t, err, "failed to transition order")

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOrderRepository_ExpireEscrow(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("relist collides with newer listing", func(t *testing.T) {
		mock := newMock(t)
		repo := &OrderRepository{querier: mock, logger: newTestLogger()}

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders`)).WithArgs(int64(31), int64(8), now, "active").
			WillReturnError(uniqueErr(activeChannelIndex))

		won, err := repo.ExpireEscrow(ctx, 31, 8, now, order.StatusActive)
		assert.False(t, won)
		assert.ErrorIs(t, err, order.ErrChannelAlreadyListed{})
	})

	t.Run("invalid target", func(t *testing.T) {
		repo := &OrderRepository{querier: newMock(t), logger: newTestLogger()}

		_, err := repo.ExpireEscrow(ctx, 31, 8, now, order.StatusCompleted)
		assert.ErrorContains(t, err, "invalid escrow expiry target")
	})
}

func TestOrderRepository_ListExpiredEscrow(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := &OrderRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()
	past := now.Add(-time.Minute)
	buyer := int64(8)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE o.status = 'escrow' AND o.escrow_until < $1`)).WithArgs(now, 100).
		WillReturnRows(pgxmock.NewRows(orderRowColumns).AddRow(
			int64(31), int64(5), &buyer, "@crypto_news", "Crypto News", "https://t.me/crypto_news",
			"3", "escrow", &past, now, (*time.Time)(nil),
		))

	orders, err := repo.ListExpiredEscrow(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].EscrowExpired(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

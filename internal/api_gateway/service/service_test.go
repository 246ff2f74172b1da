package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func ton(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func entryOf(kind ledger.Kind, userID, orderID int64, amount string) interface{} {
	return mock.MatchedBy(func(e *ledger.Entry) bool {
		return e.Kind == kind && e.UserID == userID && e.OrderID != nil && *e.OrderID == orderID && e.Amount.Equal(ton(amount))
	})
}

func eventOf(eventType shared.EventType) interface{} {
	return mock.MatchedBy(func(m *outbox.Message) bool {
		return m.EventType == eventType
	})
}

type stubChannels struct {
	title   string
	isAdmin bool
	err     error
}

func (s stubChannels) ChannelTitle(ctx context.Context, handle string) string {
	if s.title == "" {
		return handle
	}
	return s.title
}

func (s stubChannels) IsBotAdmin(ctx context.Context, handle string) (bool, error) {
	return s.isAdmin, s.err
}

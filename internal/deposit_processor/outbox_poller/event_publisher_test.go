package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/channel-escrow-market/internal/domain/activity"
	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func escrowStartedMessage(t *testing.T) *outbox.Message {
	t.Helper()
	buyer := int64(8)
	o := &order.Order{ID: 3, SellerID: 2, BuyerID: &buyer, ChannelUsername: "@gophers", Price: decimal.NewFromInt(10), Status: order.StatusEscrow}
	msg, err := outbox.NewMessage(outbox.NewOrderEvent(shared.EventEscrowStarted, o, time.Now()))
	require.NoError(t, err)
	msg.ID = 11
	return msg
}

func TestEventPublisher_PublishEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes, projects and marks processed", func(t *testing.T) {
		msg := escrowStartedMessage(t)
		repo := &mocks.OutboxRepository{}
		feed := &mocks.ActivityRepository{}
		producer := &mocks.EventPublisher{}

		producer.On("Publish", ctx, "3", "escrow_started", []byte(msg.Payload)).Return(nil)
		feed.On("Record", ctx, mock.MatchedBy(func(items []*activity.Item) bool {
			return len(items) == 2 && items[0].UserID == 2 && items[1].UserID == 8 && items[0].EventID == msg.EventID.String()
		})).Return(nil)
		repo.On("UpdateStatus", ctx, int64(11), shared.OutboxStatusProcessed).Return(nil)

		err := NewEventPublisher(repo, feed, producer, newTestLogger()).PublishEvent(ctx, msg)

		assert.NoError(t, err)
		producer.AssertExpectations(t)
		feed.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("kafka failure leaves the message pending", func(t *testing.T) {
		msg := escrowStartedMessage(t)
		repo := &mocks.OutboxRepository{}
		feed := &mocks.ActivityRepository{}
		producer := &mocks.EventPublisher{}
		producer.On("Publish", ctx, "3", "escrow_started", mock.Anything).Return(errors.New("broker down"))

		err := NewEventPublisher(repo, feed, producer, newTestLogger()).PublishEvent(ctx, msg)

		assert.ErrorContains(t, err, "failed to publish event")
		feed.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("projection failure leaves the message pending", func(t *testing.T) {
		msg := escrowStartedMessage(t)
		repo := &mocks.OutboxRepository{}
		feed := &mocks.ActivityRepository{}
		producer := &mocks.EventPublisher{}
		producer.On("Publish", ctx, "3", "escrow_started", mock.Anything).Return(nil)
		feed.On("Record", ctx, mock.Anything).Return(errors.New("mongo down"))

		err := NewEventPublisher(repo, feed, producer, newTestLogger()).PublishEvent(ctx, msg)

		assert.ErrorContains(t, err, "failed to project event")
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("undecodable payload is marked failed", func(t *testing.T) {
		msg := &outbox.Message{ID: 12, Payload: []byte(`not json`)}
		repo := &mocks.OutboxRepository{}
		repo.On("UpdateStatus", ctx, int64(12), shared.OutboxStatusFailedToPublish).Return(nil)

		err := NewEventPublisher(repo, &mocks.ActivityRepository{}, &mocks.EventPublisher{}, newTestLogger()).PublishEvent(ctx, msg)

		assert.Error(t, err)
		repo.AssertExpectations(t)
	})
}

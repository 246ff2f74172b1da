package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/channel-escrow-market/internal/domain/activity"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
	"github.com/channel-escrow-market/internal/metrics"
	"github.com/channel-escrow-market/internal/platform/messaging/producers"
)

// EventPublisher delivers one outbox message to its downstream consumers
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl publishes events to Kafka and projects them into the
// activity feed. Both sinks are idempotent per event id, so a retried message
// is harmless.
type EventPublisherImpl struct {
	outboxRepo   outbox.Repository
	activityRepo activity.Repository
	producer     producers.EventPublisher
	logger       *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	activityRepo activity.Repository,
	producer producers.EventPublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo:   outboxRepo,
		activityRepo: activityRepo,
		producer:     producer,
		logger:       logger,
	}
}

// PublishEvent relays message and marks it processed
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With("outbox_id", message.ID, "event_id", message.EventID.String(), "event_type", string(message.EventType))

	event, err := message.GetEvent()
	if err != nil {
		logger.Error("Failed to decode event from outbox payload", "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after decode error", "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	key := strconv.FormatInt(message.AggregateID, 10)
	if err := p.producer.Publish(ctx, key, string(message.EventType), message.Payload); err != nil {
		metrics.OutboxPublishResults.WithLabelValues(string(message.EventType), "kafka_error").Inc()
		return fmt.Errorf("failed to publish event %s: %w", message.EventID.String(), err)
	}

	if err := p.activityRepo.Record(ctx, activity.FromEvent(event)); err != nil {
		metrics.OutboxPublishResults.WithLabelValues(string(message.EventType), "projection_error").Inc()
		return fmt.Errorf("failed to project event %s: %w", message.EventID.String(), err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("event %s delivered, but failed to mark outbox %d as PROCESSED: %w", message.EventID.String(), message.ID, err)
	}

	metrics.OutboxPublishResults.WithLabelValues(string(message.EventType), "published").Inc()
	logger.Debug("Outbox message published and marked as PROCESSED")
	return nil
}

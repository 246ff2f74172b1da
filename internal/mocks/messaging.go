package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) Publish(ctx context.Context, key string, eventType string, payload []byte) error {
	return m.Called(ctx, key, eventType, payload).Error(0)
}

func (m *EventPublisher) Close() error {
	return m.Called().Error(0)
}

type DeadLetterPublisher struct {
	mock.Mock
}

func (m *DeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	return m.Called(ctx, key, originalMessageValue, reason).Error(0)
}

func (m *DeadLetterPublisher) Close() error {
	return m.Called().Error(0)
}

// TxRunner runs fn with a nil transaction, counting calls
type TxRunner struct {
	Err   error
	Calls int
}

func (r *TxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	r.Calls++
	if r.Err != nil {
		return r.Err
	}
	return fn(nil)
}

package components

import (
	"testing"

	"github.com/channel-escrow-market/internal/config"
	"github.com/channel-escrow-market/internal/deposit_processor/service"
	"github.com/channel-escrow-market/internal/mocks"
	"github.com/stretchr/testify/assert"
)

func testRepositories() Repositories {
	return Repositories{
		Users:    &mocks.UserRepository{},
		Ledger:   &mocks.LedgerRepository{},
		Deposits: &mocks.DepositRepository{},
		Outbox:   &mocks.OutboxRepository{},
	}
}

func TestCreateProcessingService(t *testing.T) {
	svc := CreateProcessingService(&mocks.TxRunner{}, testRepositories(), &config.PaymentsConfig{WalletAddress: "w", CommentPrefix: "deposit_"}, newTestLogger())

	assert.IsType(t, &service.ProcessingServiceImpl{}, svc)
}

func TestCreatePooledProcessingService(t *testing.T) {
	cfg := &config.Config{
		Payments:   config.PaymentsConfig{WalletAddress: "w", CommentPrefix: "deposit_"},
		WorkerPool: config.WorkerPoolConfig{Size: 3},
	}

	svc, shutdown := CreatePooledProcessingService(&mocks.TxRunner{}, testRepositories(), cfg, newTestLogger())
	defer shutdown()

	pooled, ok := svc.(*service.WorkerPoolProcessingService)
	assert.True(t, ok)
	assert.Equal(t, 3, pooled.Capacity())
}

package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/channel-escrow-market/internal/domain/ledger"
	"github.com/channel-escrow-market/internal/domain/order"
	"github.com/channel-escrow-market/internal/domain/outbox"
	"github.com/channel-escrow-market/internal/domain/shared"
)

// memStore keeps orders, ledger entries and outbox messages in memory with
// the same compare-and-set semantics as the PostgreSQL repositories
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	orders   map[int64]*order.Order
	entries  []*ledger.Entry
	messages []*outbox.Message

	// readGate, when set, holds every GetByID until all expected readers arrived
	readGate *sync.WaitGroup
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[int64]*order.Order)}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memTx struct{}

func (memTx) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type memOrders struct{ *memStore }

func (r memOrders) Create(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.Status == order.StatusActive && existing.ChannelUsername == o.ChannelUsername {
			return order.ErrChannelAlreadyListed{ChannelUsername: o.ChannelUsername}
		}
	}
	o.ID = r.id()
	stored := *o
	r.orders[o.ID] = &stored
	return nil
}

func (r memOrders) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	o, ok := r.orders[id]
	var snapshot order.Order
	if ok {
		snapshot = *o
	}
	gate := r.readGate
	r.mu.Unlock()

	if gate != nil {
		gate.Done()
		gate.Wait()
	}
	if !ok {
		return nil, order.ErrOrderNotFound{OrderID: id}
	}
	return &snapshot, nil
}

func (r memOrders) ListActive(ctx context.Context, filter order.Filter) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if o.Status == order.StatusActive && (filter.SellerID == nil || o.SellerID == *filter.SellerID) {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memOrders) ListExpiredEscrow(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if o.EscrowExpired(now) && len(out) < limit {
			c := *o
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memOrders) StartEscrow(ctx context.Context, id, buyerID int64, until time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != order.StatusActive {
		return false, nil
	}
	o.Status = order.StatusEscrow
	o.BuyerID = &buyerID
	o.EscrowUntil = &until
	return true, nil
}

func (r memOrders) Complete(ctx context.Context, id int64, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != order.StatusEscrow {
		return false, nil
	}
	o.Status = order.StatusCompleted
	o.CompletedAt = &completedAt
	return true, nil
}

func (r memOrders) Cancel(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != order.StatusActive {
		return false, nil
	}
	o.Status = order.StatusCancelled
	return true, nil
}

func (r memOrders) ExpireEscrow(ctx context.Context, id, buyerID int64, now time.Time, target order.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || !o.EscrowExpired(now) || !o.IsBuyer(buyerID) {
		return false, nil
	}
	o.Status = target
	o.BuyerID = nil
	o.EscrowUntil = nil
	return true, nil
}

func (r memOrders) WithTx(tx pgx.Tx) order.Repository { return r }

type memLedger struct{ *memStore }

func (r memLedger) Append(ctx context.Context, entry *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.id()
	c := *entry
	r.entries = append(r.entries, &c)
	return nil
}

func (r memLedger) BalanceOf(ctx context.Context, userID int64) (decimal.Decimal, error) {
	entries, _ := r.GetByUserID(ctx, userID, 0, 0)
	return ledger.Sum(entries), nil
}

func (r memLedger) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memLedger) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	entries, _ := r.GetByUserID(ctx, userID, 0, 0)
	return int64(len(entries)), nil
}

func (r memLedger) GetByOrderID(ctx context.Context, orderID int64) ([]*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range r.entries {
		if e.OrderID != nil && *e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memLedger) WithTx(tx pgx.Tx) ledger.Repository { return r }

type memOutbox struct{ *memStore }

func (r memOutbox) Create(ctx context.Context, message *outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = r.id()
	r.messages = append(r.messages, message)
	return nil
}

func (r memOutbox) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*outbox.Message
	for _, m := range r.messages {
		if m.Status == shared.OutboxStatusPending && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memOutbox) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.Status = status
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r memOutbox) IncrementAttempts(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.Attempts++
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r memOutbox) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.EventID == eventID {
			return m, nil
		}
	}
	return nil, outbox.ErrMessageNotFound{}
}

func (r memOutbox) WithTx(tx pgx.Tx) outbox.Repository { return r }

func (s *memStore) eventTypes() []shared.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shared.EventType
	for _, m := range s.messages {
		out = append(out, m.EventType)
	}
	return out
}

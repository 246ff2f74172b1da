package shared

// EventType names a domain event written to the outbox
type EventType string

const (
	EventOrderCreated    EventType = "order_created"
	EventOrderCancelled  EventType = "order_cancelled"
	EventEscrowStarted   EventType = "escrow_started"
	EventOrderCompleted  EventType = "order_completed"
	EventEscrowExpired   EventType = "escrow_expired"
	EventDepositCredited EventType = "deposit_credited"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

package domain

import "time"

// Event types
const (
	EventTypePaymentMade       = "payment.made"
	EventTypeBalanceChanged    = "balance.changed"
	EventTypeTransactionEdited = "transaction.edited"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeAccount     = "account"
)

// OutboxEvent is a committed state change waiting for delivery. Events are
// written in the same transaction as the balance mutation and drained by the
// event publisher after commit, so delivery never runs under an account lock.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

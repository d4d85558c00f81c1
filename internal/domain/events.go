package domain

import "time"

// Event types
const (
	EventTypeSyncItemSynced       = "sync.item_synced"
	EventTypeSyncItemDeadLettered = "sync.item_dead_lettered"
	EventTypePaymentStaged        = "payment.staged"
	EventTypePaymentCompleted     = "payment.completed"
)

// Aggregate types
const (
	AggregateTypeSyncItem = "sync_item"
	AggregateTypePayment  = "payment"
)

// Event is a notification emitted after a state change.
type Event struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       any
	CreatedAt     time.Time
}

// SyncItemSyncedEvent payload
type SyncItemSyncedEvent struct {
	ItemID     string `json:"item_id"`
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"`
	Operation  string `json:"operation"`
}

// SyncItemDeadLetteredEvent payload
type SyncItemDeadLetteredEvent struct {
	ItemID    string `json:"item_id"`
	EntityID  string `json:"entity_id"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

// PaymentStagedEvent payload
type PaymentStagedEvent struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// PaymentCompletedEvent payload
type PaymentCompletedEvent struct {
	PaymentID string `json:"payment_id"`
	Provider  string `json:"provider"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

package domain

import (
	"encoding/json"
	"time"
)

// EntityType names the remote collection a queued mutation targets.
type EntityType string

const (
	EntityTypeTransaction EntityType = "transaction"
	EntityTypeAccount     EntityType = "account"
	EntityTypeLoan        EntityType = "loan"
	EntityTypeInvestment  EntityType = "investment"
	EntityTypeUserProfile EntityType = "userProfile"
)

// Valid reports whether the entity type is one of the known kinds.
func (t EntityType) Valid() bool {
	_, ok := EntityCollections[t]
	return ok
}

// Collection returns the local store collection for the entity type.
func (t EntityType) Collection() (string, error) {
	c, ok := EntityCollections[t]
	if !ok {
		return "", ErrUnknownEntityType
	}
	return c, nil
}

// Operation is the kind of mutation queued for sync.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether the operation is one of create/update/delete.
func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// SyncQueueItem is one pending mutation awaiting delivery to the remote API.
// Items drain in CreatedAt order.
type SyncQueueItem struct {
	ID          string          `json:"id"`
	EntityID    string          `json:"entityId"`
	EntityType  EntityType      `json:"entityType"`
	Operation   Operation       `json:"operation"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	Attempts    int             `json:"attempts"`
	LastAttempt *time.Time      `json:"lastAttempt,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	Dead        bool            `json:"dead"`
}

// RecordFailure bumps the attempt counter and captures the failure.
// Attempts never decrease for the lifetime of the item.
func (i *SyncQueueItem) RecordFailure(msg string, at time.Time) {
	i.Attempts++
	i.LastAttempt = &at
	i.LastError = msg
}

// Exhausted reports whether the item has used up its retry budget.
func (i *SyncQueueItem) Exhausted(maxRetries int) bool {
	return i.Attempts >= maxRetries
}

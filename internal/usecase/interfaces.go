package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/khula/khulasync/internal/domain"
)

// LocalStore defines persistent key-value access over named collections.
type LocalStore interface {
	Put(ctx context.Context, collection, id string, data json.RawMessage) error
	PutTx(ctx context.Context, tx Transaction, collection, id string, data json.RawMessage) error
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	GetAll(ctx context.Context, collection string) ([]json.RawMessage, error)
	// GetByField returns records whose top-level field equals value.
	GetByField(ctx context.Context, collection, field, value string) ([]json.RawMessage, error)
	Delete(ctx context.Context, collection, id string) error
	DeleteTx(ctx context.Context, tx Transaction, collection, id string) error
	Count(ctx context.Context, collection string) (int64, error)
}

// SyncQueueRepository defines data access for pending sync mutations.
type SyncQueueRepository interface {
	Create(ctx context.Context, item *domain.SyncQueueItem) error
	CreateTx(ctx context.Context, tx Transaction, item *domain.SyncQueueItem) error
	// ListPending returns live items ordered by creation time ascending.
	ListPending(ctx context.Context) ([]*domain.SyncQueueItem, error)
	ListDead(ctx context.Context) ([]*domain.SyncQueueItem, error)
	Remove(ctx context.Context, id string) error
	// MarkFailed persists attempts, lastAttempt, lastError and the dead flag.
	MarkFailed(ctx context.Context, item *domain.SyncQueueItem) error
	// Requeue resets the attempt counter and clears the dead flag.
	Requeue(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int64, error)
}

// OfflinePaymentRepository defines data access for staged offline payments.
type OfflinePaymentRepository interface {
	Create(ctx context.Context, payment *domain.OfflinePayment) error
	GetByID(ctx context.Context, id string) (*domain.OfflinePayment, error)
	ListByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.OfflinePayment, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
}

// SyncAPI is the remote API the sync queue drains against.
type SyncAPI interface {
	Create(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, entityType domain.EntityType, entityID string, payload json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, entityType domain.EntityType, entityID string) error
}

// PaymentProvider is a single payment processor.
type PaymentProvider interface {
	Name() domain.Provider
	// IDPrefix is the prefix of payment ids issued by this provider.
	IDPrefix() string
	CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error)
	CheckStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error)
}

// Connectivity reports the device's online state.
type Connectivity interface {
	Online() bool
	// Changes delivers the new online state on every transition.
	Changes() <-chan bool
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// EventPublisher publishes domain events to external systems.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Retrier retries an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Queuer enqueues a mutation for later delivery.
type Queuer interface {
	Enqueue(ctx context.Context, entityType domain.EntityType, op domain.Operation, payload json.RawMessage, entityID string) (*domain.SyncQueueItem, error)
}

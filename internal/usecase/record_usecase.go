package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/khula/khulasync/internal/domain"
)

// RecordService is the write/read path for entity records. Online mutations
// go straight to the remote API and the confirmed record lands in the local
// store; offline mutations (or online ones the API rejects transiently) are
// queued for the sync engine.
type RecordService struct {
	store  LocalStore
	api    SyncAPI
	conn   Connectivity
	queue  Queuer
	logger *slog.Logger
}

// NewRecordService creates a new RecordService.
func NewRecordService(store LocalStore, api SyncAPI, conn Connectivity, queue Queuer, logger *slog.Logger) *RecordService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordService{
		store:  store,
		api:    api,
		conn:   conn,
		queue:  queue,
		logger: logger,
	}
}

// SaveResult reports how a mutation was handled.
type SaveResult struct {
	// Record is the stored payload: the server's copy when the call went
	// through, the optimistic local copy when it was queued.
	Record json.RawMessage
	// EntityID is the record's identifier.
	EntityID string
	// Queued is true when the mutation awaits sync instead of being confirmed.
	Queued bool
}

// Create submits a new record.
func (s *RecordService) Create(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (*SaveResult, error) {
	return s.save(ctx, entityType, domain.OperationCreate, payload, "")
}

// Update submits changes to an existing record.
func (s *RecordService) Update(ctx context.Context, entityType domain.EntityType, entityID string, payload json.RawMessage) (*SaveResult, error) {
	return s.save(ctx, entityType, domain.OperationUpdate, payload, entityID)
}

func (s *RecordService) save(ctx context.Context, entityType domain.EntityType, op domain.Operation, payload json.RawMessage, entityID string) (*SaveResult, error) {
	collection, err := entityType.Collection()
	if err != nil {
		return nil, err
	}

	if !s.conn.Online() {
		return s.enqueue(ctx, entityType, op, payload, entityID)
	}

	var body json.RawMessage
	if op == domain.OperationCreate {
		body, err = s.api.Create(ctx, entityType, payload)
	} else {
		body, err = s.api.Update(ctx, entityType, entityID, payload)
	}
	if err != nil {
		// Queue for durability rather than losing the mutation.
		s.logger.Warn("direct api call failed, queueing mutation",
			slog.String("entity_type", string(entityType)),
			slog.String("error", err.Error()))
		return s.enqueue(ctx, entityType, op, payload, entityID)
	}

	id := recordID(body)
	if id == "" {
		id = entityID
	}
	if err := s.store.Put(ctx, collection, id, body); err != nil {
		return nil, err
	}

	return &SaveResult{Record: body, EntityID: id, Queued: false}, nil
}

// Delete removes a record.
func (s *RecordService) Delete(ctx context.Context, entityType domain.EntityType, entityID string) (*SaveResult, error) {
	collection, err := entityType.Collection()
	if err != nil {
		return nil, err
	}

	if !s.conn.Online() {
		return s.enqueue(ctx, entityType, domain.OperationDelete, nil, entityID)
	}

	if err := s.api.Delete(ctx, entityType, entityID); err != nil {
		s.logger.Warn("direct api delete failed, queueing mutation",
			slog.String("entity_type", string(entityType)),
			slog.String("error", err.Error()))
		return s.enqueue(ctx, entityType, domain.OperationDelete, nil, entityID)
	}

	if err := s.store.Delete(ctx, collection, entityID); err != nil {
		return nil, err
	}

	return &SaveResult{EntityID: entityID, Queued: false}, nil
}

func (s *RecordService) enqueue(ctx context.Context, entityType domain.EntityType, op domain.Operation, payload json.RawMessage, entityID string) (*SaveResult, error) {
	item, err := s.queue.Enqueue(ctx, entityType, op, payload, entityID)
	if err != nil {
		return nil, err
	}
	return &SaveResult{Record: item.Payload, EntityID: item.EntityID, Queued: true}, nil
}

// Get reads a record from the local store.
func (s *RecordService) Get(ctx context.Context, entityType domain.EntityType, entityID string) (json.RawMessage, error) {
	collection, err := entityType.Collection()
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, collection, entityID)
}

// List reads every record of a collection from the local store.
func (s *RecordService) List(ctx context.Context, entityType domain.EntityType) ([]json.RawMessage, error) {
	collection, err := entityType.Collection()
	if err != nil {
		return nil, err
	}
	return s.store.GetAll(ctx, collection)
}

// ListByField reads the records of a collection whose top-level field matches
// the given value, served by the collection's secondary indexes.
func (s *RecordService) ListByField(ctx context.Context, entityType domain.EntityType, field, value string) ([]json.RawMessage, error) {
	collection, err := entityType.Collection()
	if err != nil {
		return nil, err
	}
	return s.store.GetByField(ctx, collection, field, value)
}

// Count returns the number of records in a collection.
func (s *RecordService) Count(ctx context.Context, entityType domain.EntityType) (int64, error) {
	collection, err := entityType.Collection()
	if err != nil {
		return 0, err
	}
	return s.store.Count(ctx, collection)
}

package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khula/khulasync/internal/domain"
)

// SyncEngineConfig holds dependencies and tuning for the SyncEngine.
type SyncEngineConfig struct {
	Store        LocalStore
	Queue        SyncQueueRepository
	TxManager    TransactionManager
	API          SyncAPI
	Connectivity Connectivity
	IDGen        IDGenerator
	Events       EventPublisher
	Logger       *slog.Logger

	SyncInterval  time.Duration
	MaxRetries    int
	RequireOnline bool
}

// SyncEngine drains the sync queue against the remote API. It runs a periodic
// drain while online, drains immediately on reconnect, and accepts manual
// triggers. At most one drain pass runs at a time; re-entrant triggers are
// coalesced by being ignored.
type SyncEngine struct {
	store   LocalStore
	queue   SyncQueueRepository
	txm     TransactionManager
	api     SyncAPI
	conn    Connectivity
	idGen   IDGenerator
	events  EventPublisher
	logger  *slog.Logger
	retrier Retrier

	syncInterval  time.Duration
	maxRetries    int
	requireOnline bool

	syncing atomic.Bool
	started atomic.Bool
	trigger chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSyncEngine creates a new SyncEngine.
func NewSyncEngine(cfg SyncEngineConfig) *SyncEngine {
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &SyncEngine{
		store:         cfg.Store,
		queue:         cfg.Queue,
		txm:           cfg.TxManager,
		api:           cfg.API,
		conn:          cfg.Connectivity,
		idGen:         cfg.IDGen,
		events:        cfg.Events,
		logger:        cfg.Logger,
		syncInterval:  cfg.SyncInterval,
		maxRetries:    cfg.MaxRetries,
		requireOnline: cfg.RequireOnline,
		trigger:       make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
}

// WithRetrier sets a retrier applied to local store writes during drains.
func (e *SyncEngine) WithRetrier(r Retrier) *SyncEngine {
	e.retrier = r
	return e
}

// Start launches the background loop: the periodic timer (only while online)
// and the connectivity subscription. Calling Start twice is a no-op.
func (e *SyncEngine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}

	e.wg.Add(1)
	go e.run()
}

// Stop cancels the timer and detaches the connectivity subscription. An
// in-flight drain pass is allowed to finish. Stop is idempotent.
func (e *SyncEngine) Stop() {
	if !e.started.Load() {
		return
	}

	select {
	case <-e.stop:
		// already stopping
	default:
		close(e.stop)
	}

	e.wg.Wait()
}

func (e *SyncEngine) run() {
	defer e.wg.Done()

	var ticker *time.Ticker
	var tick <-chan time.Time

	startTicker := func() {
		if ticker == nil {
			ticker = time.NewTicker(e.syncInterval)
			tick = ticker.C
		}
	}
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tick = nil
		}
	}
	defer stopTicker()

	if e.conn.Online() {
		startTicker()
	}

	e.logger.Info("sync engine started",
		slog.Duration("interval", e.syncInterval),
		slog.Int("max_retries", e.maxRetries))

	for {
		select {
		case <-e.stop:
			e.logger.Info("sync engine shutting down")
			return

		case online, ok := <-e.conn.Changes():
			if !ok {
				return
			}
			if online {
				e.logger.Info("device is online, starting sync")
				startTicker()
				e.drain(context.Background())
			} else {
				e.logger.Info("device is offline, pausing sync")
				stopTicker()
			}

		case <-tick:
			e.drain(context.Background())

		case <-e.trigger:
			e.drain(context.Background())
		}
	}
}

// SyncNow runs a single drain pass. It fails with domain.ErrDeviceOffline when
// the engine requires connectivity and the device is offline. When a drain is
// already in progress it returns immediately without starting a second one.
// Per-item failures never fail the pass.
func (e *SyncEngine) SyncNow(ctx context.Context) error {
	if e.requireOnline && !e.conn.Online() {
		return domain.ErrDeviceOffline
	}

	return e.drain(ctx)
}

// drain processes every currently queued item in creation order, strictly
// sequentially. A failing item is recorded and the pass moves on.
func (e *SyncEngine) drain(ctx context.Context) error {
	if !e.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.syncing.Store(false)

	start := time.Now()
	syncDrainsTotal.Inc()
	defer func() {
		syncDrainDuration.Observe(time.Since(start).Seconds())
	}()

	items, err := e.queue.ListPending(ctx)
	if err != nil {
		e.logger.Error("failed to read sync queue", slog.String("error", err.Error()))
		return err
	}

	if len(items) == 0 {
		return nil
	}

	e.logger.Info("draining sync queue", slog.Int("count", len(items)))

	for _, item := range items {
		if err := e.syncItem(ctx, item); err != nil {
			e.recordFailure(ctx, item, err)
			continue
		}

		if err := e.queue.Remove(ctx, item.ID); err != nil {
			e.logger.Error("failed to remove synced item",
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()))
			continue
		}

		syncItemsSynced.WithLabelValues(string(item.EntityType), string(item.Operation)).Inc()
		e.publish(ctx, domain.EventTypeSyncItemSynced, domain.AggregateTypeSyncItem, item.ID, domain.SyncItemSyncedEvent{
			ItemID:     item.ID,
			EntityID:   item.EntityID,
			EntityType: string(item.EntityType),
			Operation:  string(item.Operation),
		})
	}

	return nil
}

// syncItem delivers one mutation to the remote API and reconciles the local
// record with the server response.
func (e *SyncEngine) syncItem(ctx context.Context, item *domain.SyncQueueItem) error {
	collection, err := item.EntityType.Collection()
	if err != nil {
		return err
	}

	switch item.Operation {
	case domain.OperationCreate, domain.OperationUpdate:
		var body json.RawMessage
		if item.Operation == domain.OperationCreate {
			body, err = e.api.Create(ctx, item.EntityType, item.Payload)
		} else {
			body, err = e.api.Update(ctx, item.EntityType, item.EntityID, item.Payload)
		}
		if err != nil {
			return err
		}

		// The server response is authoritative: it carries server-assigned
		// fields (id, timestamps) that overwrite the optimistic local record.
		id := recordID(body)
		if id == "" {
			id = item.EntityID
		}

		put := func() error { return e.store.Put(ctx, collection, id, body) }
		if e.retrier != nil {
			err = e.retrier.Retry(ctx, put)
		} else {
			err = put()
		}
		if err != nil {
			return err
		}

		// A create may come back under a server-assigned id; drop the
		// optimistic record stored under the provisional one.
		if id != item.EntityID && item.EntityID != "" {
			if derr := e.store.Delete(ctx, collection, item.EntityID); derr != nil {
				e.logger.Warn("failed to drop provisional record",
					slog.String("collection", collection),
					slog.String("entity_id", item.EntityID),
					slog.String("error", derr.Error()))
			}
		}

		return nil

	case domain.OperationDelete:
		return e.api.Delete(ctx, item.EntityType, item.EntityID)

	default:
		return domain.ErrUnknownOperation
	}
}

func (e *SyncEngine) recordFailure(ctx context.Context, item *domain.SyncQueueItem, cause error) {
	item.RecordFailure(cause.Error(), time.Now().UTC())
	syncItemsFailed.WithLabelValues(string(item.EntityType)).Inc()

	if item.Exhausted(e.maxRetries) {
		item.Dead = true
		syncItemsDeadLettered.Inc()
		e.logger.Warn("max retries exceeded, dead-lettering item",
			slog.String("item_id", item.ID),
			slog.String("entity_id", item.EntityID),
			slog.Int("attempts", item.Attempts),
			slog.String("error", cause.Error()))
		e.publish(ctx, domain.EventTypeSyncItemDeadLettered, domain.AggregateTypeSyncItem, item.ID, domain.SyncItemDeadLetteredEvent{
			ItemID:    item.ID,
			EntityID:  item.EntityID,
			Attempts:  item.Attempts,
			LastError: cause.Error(),
		})
	} else {
		e.logger.Warn("sync item failed, will retry",
			slog.String("item_id", item.ID),
			slog.Int("attempts", item.Attempts),
			slog.String("error", cause.Error()))
	}

	if err := e.queue.MarkFailed(ctx, item); err != nil {
		e.logger.Error("failed to persist item failure",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()))
	}
}

// Enqueue durably stores a pending mutation and, when online, fires a
// non-blocking drain. Enqueue resolves once the item is stored regardless of
// the drain outcome. For create/update the payload is also written to the
// local store optimistically, in the same transaction as the queue item.
func (e *SyncEngine) Enqueue(ctx context.Context, entityType domain.EntityType, op domain.Operation, payload json.RawMessage, entityID string) (*domain.SyncQueueItem, error) {
	collection, err := entityType.Collection()
	if err != nil {
		return nil, err
	}
	if !op.Valid() {
		return nil, domain.ErrUnknownOperation
	}

	if entityID == "" {
		entityID = recordID(payload)
	}
	if entityID == "" {
		entityID = e.idGen.Generate()
		payload, err = withRecordID(payload, entityID)
		if err != nil {
			return nil, err
		}
	}

	item := &domain.SyncQueueItem{
		ID:         e.idGen.Generate(),
		EntityID:   entityID,
		EntityType: entityType,
		Operation:  op,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
		Attempts:   0,
	}

	if err := e.persistEnqueue(ctx, item, collection); err != nil {
		return nil, err
	}

	if e.conn.Online() {
		e.TriggerDrain()
	}

	return item, nil
}

// persistEnqueue stores the queue item and the optimistic local mutation
// atomically when a transaction manager is available.
func (e *SyncEngine) persistEnqueue(ctx context.Context, item *domain.SyncQueueItem, collection string) error {
	if e.txm == nil {
		if err := e.queue.Create(ctx, item); err != nil {
			return err
		}
		return e.applyLocal(ctx, nil, item, collection)
	}

	tx, err := e.txm.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := e.queue.CreateTx(ctx, tx, item); err != nil {
		return err
	}
	if err := e.applyLocal(ctx, tx, item, collection); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (e *SyncEngine) applyLocal(ctx context.Context, tx Transaction, item *domain.SyncQueueItem, collection string) error {
	switch item.Operation {
	case domain.OperationCreate, domain.OperationUpdate:
		if tx != nil {
			return e.store.PutTx(ctx, tx, collection, item.EntityID, item.Payload)
		}
		return e.store.Put(ctx, collection, item.EntityID, item.Payload)
	case domain.OperationDelete:
		if tx != nil {
			return e.store.DeleteTx(ctx, tx, collection, item.EntityID)
		}
		return e.store.Delete(ctx, collection, item.EntityID)
	}
	return nil
}

// TriggerDrain requests a drain from the background loop without blocking.
// Requests arriving while a trigger is already pending are coalesced.
func (e *SyncEngine) TriggerDrain() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// HasPendingSync reports whether any live items are queued.
func (e *SyncEngine) HasPendingSync(ctx context.Context) (bool, error) {
	n, err := e.queue.CountPending(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PendingCount returns the number of live queued items.
func (e *SyncEngine) PendingCount(ctx context.Context) (int64, error) {
	return e.queue.CountPending(ctx)
}

// ListPending returns the live queue in drain order.
func (e *SyncEngine) ListPending(ctx context.Context) ([]*domain.SyncQueueItem, error) {
	return e.queue.ListPending(ctx)
}

// ListDeadLettered returns items that exhausted their retry budget.
func (e *SyncEngine) ListDeadLettered(ctx context.Context) ([]*domain.SyncQueueItem, error) {
	return e.queue.ListDead(ctx)
}

// Requeue puts a dead-lettered item back into rotation with a fresh attempt
// budget and fires a drain when online.
func (e *SyncEngine) Requeue(ctx context.Context, id string) error {
	if err := e.queue.Requeue(ctx, id); err != nil {
		return err
	}
	if e.conn.Online() {
		e.TriggerDrain()
	}
	return nil
}

func (e *SyncEngine) publish(ctx context.Context, eventType, aggregateType, aggregateID string, payload any) {
	if e.events == nil {
		return
	}

	event := &domain.Event{
		ID:            e.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}

	if err := e.events.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}

// recordID extracts the "id" field from a JSON entity payload.
func recordID(payload json.RawMessage) string {
	var rec struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return ""
	}
	return rec.ID
}

// withRecordID returns the payload with its "id" field set.
func withRecordID(payload json.RawMessage, id string) (json.RawMessage, error) {
	var m map[string]any
	if len(payload) == 0 {
		m = map[string]any{}
	} else if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	m["id"] = id
	return json.Marshal(m)
}

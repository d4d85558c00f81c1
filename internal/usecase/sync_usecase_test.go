package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/khula/khulasync/internal/domain"
	"github.com/khula/khulasync/internal/usecase"
	"github.com/khula/khulasync/internal/usecase/mocks"
)

func newTestEngine(queue *mocks.MockSyncQueueRepository, store *mocks.MockLocalStore, api *mocks.MockSyncAPI, conn *mocks.MockConnectivity) *usecase.SyncEngine {
	return usecase.NewSyncEngine(usecase.SyncEngineConfig{
		Store:         store,
		Queue:         queue,
		API:           api,
		Connectivity:  conn,
		IDGen:         mocks.NewMockIDGenerator(),
		Events:        mocks.NewMockEventPublisher(),
		RequireOnline: true,
	})
}

func seedItem(t *testing.T, queue *mocks.MockSyncQueueRepository, id string, entityType domain.EntityType, op domain.Operation, entityID string, createdAt time.Time) *domain.SyncQueueItem {
	t.Helper()

	payload, _ := json.Marshal(map[string]any{"id": entityID, "amount": 10})
	item := &domain.SyncQueueItem{
		ID:         id,
		EntityID:   entityID,
		EntityType: entityType,
		Operation:  op,
		Payload:    payload,
		CreatedAt:  createdAt,
	}
	if op == domain.OperationDelete {
		item.Payload = nil
	}
	if err := queue.Create(context.Background(), item); err != nil {
		t.Fatalf("failed to seed queue item: %v", err)
	}
	return item
}

func TestSyncEngine_DrainOrderIsFIFO(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(true)

	base := time.Now().UTC()
	// Seeded out of order on purpose.
	seedItem(t, queue, "q3", domain.EntityTypeAccount, domain.OperationCreate, "a3", base.Add(3*time.Second))
	seedItem(t, queue, "q1", domain.EntityTypeAccount, domain.OperationCreate, "a1", base.Add(1*time.Second))
	seedItem(t, queue, "q2", domain.EntityTypeAccount, domain.OperationCreate, "a2", base.Add(2*time.Second))

	engine := newTestEngine(queue, store, api, conn)

	if err := engine.SyncNow(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := api.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 remote calls, got %d", len(calls))
	}

	var order []string
	for _, c := range calls {
		var rec struct {
			ID string `json:"id"`
		}
		json.Unmarshal(c.Payload, &rec)
		order = append(order, rec.ID)
	}

	want := []string{"a1", "a2", "a3"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected drain order %v, got %v", want, order)
		}
	}
}

func TestSyncEngine_DrainSuccessEmptiesQueue(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(true)

	base := time.Now().UTC()
	seedItem(t, queue, "q1", domain.EntityTypeTransaction, domain.OperationCreate, "t1", base)
	seedItem(t, queue, "q2", domain.EntityTypeTransaction, domain.OperationUpdate, "t2", base.Add(time.Second))
	seedItem(t, queue, "q3", domain.EntityTypeAccount, domain.OperationCreate, "a1", base.Add(2*time.Second))

	engine := newTestEngine(queue, store, api, conn)

	if err := engine.SyncNow(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, _ := queue.CountPending(context.Background())
	if n != 0 {
		t.Fatalf("expected empty queue, got %d items", n)
	}

	txCount, _ := store.Count(context.Background(), domain.CollectionTransactions)
	if txCount != 2 {
		t.Errorf("expected 2 transaction records, got %d", txCount)
	}
	accCount, _ := store.Count(context.Background(), domain.CollectionAccounts)
	if accCount != 1 {
		t.Errorf("expected 1 account record, got %d", accCount)
	}
}

func TestSyncEngine_DeleteOpDoesNotWriteLocalRecord(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(true)

	seedItem(t, queue, "q1", domain.EntityTypeLoan, domain.OperationDelete, "l1", time.Now().UTC())

	engine := newTestEngine(queue, store, api, conn)

	if err := engine.SyncNow(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := api.Calls()
	if len(calls) != 1 || calls[0].Method != "DELETE" || calls[0].EntityID != "l1" {
		t.Fatalf("expected one DELETE call for l1, got %+v", calls)
	}

	count, _ := store.Count(context.Background(), domain.CollectionLoans)
	if count != 0 {
		t.Errorf("expected no loan records after delete sync, got %d", count)
	}
}

func TestSyncEngine_FailingItemDoesNotBlockOthers(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(true)

	base := time.Now().UTC()
	seedItem(t, queue, "q1", domain.EntityTypeTransaction, domain.OperationCreate, "t1", base)
	bad := seedItem(t, queue, "q2", domain.EntityTypeTransaction, domain.OperationCreate, "t2", base.Add(time.Second))
	seedItem(t, queue, "q3", domain.EntityTypeTransaction, domain.OperationCreate, "t3", base.Add(2*time.Second))

	api.CreateFunc = func(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (json.RawMessage, error) {
		var rec struct {
			ID string `json:"id"`
		}
		json.Unmarshal(payload, &rec)
		if rec.ID == "t2" {
			return nil, errors.New("api error: 500")
		}
		return payload, nil
	}

	engine := newTestEngine(queue, store, api, conn)

	passes := 3
	for i := 0; i < passes; i++ {
		if err := engine.SyncNow(context.Background()); err != nil {
			t.Fatalf("pass %d: unexpected error: %v", i, err)
		}
	}

	stored := queue.Item(bad.ID)
	if stored == nil {
		t.Fatal("expected failing item to remain queued")
	}
	if stored.Attempts != passes {
		t.Errorf("expected attempts == %d drain passes, got %d", passes, stored.Attempts)
	}
	if stored.LastError != "api error: 500" {
		t.Errorf("expected last error to be recorded, got %q", stored.LastError)
	}

	n, _ := queue.CountPending(context.Background())
	if n != 1 {
		t.Errorf("expected only the failing item to remain, got %d", n)
	}
}

func TestSyncEngine_ConcurrentSyncNowRunsOneDrain(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(true)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedItem(t, queue, fmt.Sprintf("q%d", i), domain.EntityTypeTransaction, domain.OperationCreate, fmt.Sprintf("t%d", i), base.Add(time.Duration(i)*time.Second))
	}

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	api.CreateFunc = func(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (json.RawMessage, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return payload, nil
	}

	engine := newTestEngine(queue, store, api, conn)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.SyncNow(context.Background())
	}()

	<-started
	// Second trigger while the first pass is mid-flight must be a no-op.
	if err := engine.SyncNow(context.Background()); err != nil {
		t.Fatalf("re-entrant SyncNow should be a no-op, got %v", err)
	}

	close(release)
	wg.Wait()

	if got := len(api.Calls()); got != 5 {
		t.Errorf("expected exactly 5 remote calls (no duplicates), got %d", got)
	}
}

func TestSyncEngine_SyncNowWhileOffline(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(false)

	engine := newTestEngine(queue, store, api, conn)

	err := engine.SyncNow(context.Background())
	if !errors.Is(err, domain.ErrDeviceOffline) {
		t.Fatalf("expected ErrDeviceOffline, got %v", err)
	}
	if len(api.Calls()) != 0 {
		t.Error("expected no remote calls while offline")
	}
}

func TestSyncEngine_DeadLettersExhaustedItems(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(true)

	item := seedItem(t, queue, "q1", domain.EntityTypeInvestment, domain.OperationCreate, "i1", time.Now().UTC())

	api.CreateFunc = func(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("api error: 503")
	}

	events := mocks.NewMockEventPublisher()
	engine := usecase.NewSyncEngine(usecase.SyncEngineConfig{
		Store:         store,
		Queue:         queue,
		API:           api,
		Connectivity:  conn,
		IDGen:         mocks.NewMockIDGenerator(),
		Events:        events,
		MaxRetries:    2,
		RequireOnline: true,
	})

	for i := 0; i < 2; i++ {
		if err := engine.SyncNow(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// After maxRetries failed passes the item is dead-lettered: excluded
	// from drains but never silently dropped.
	pending, _ := queue.ListPending(context.Background())
	if len(pending) != 0 {
		t.Fatalf("expected dead item to leave the live queue, got %d pending", len(pending))
	}

	dead, _ := queue.ListDead(context.Background())
	if len(dead) != 1 || dead[0].ID != item.ID {
		t.Fatalf("expected item in dead-letter list, got %+v", dead)
	}
	if dead[0].Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", dead[0].Attempts)
	}

	published := events.Events()
	if len(published) != 1 {
		t.Fatalf("expected 1 dead-letter event, got %d", len(published))
	}
	payload, ok := published[0].Payload.(domain.SyncItemDeadLetteredEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", published[0].Payload)
	}
	if payload.ItemID != item.ID || payload.Attempts != 2 {
		t.Errorf("unexpected dead-letter payload: %+v", payload)
	}

	callsBefore := len(api.Calls())
	if err := engine.SyncNow(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.Calls()) != callsBefore {
		t.Error("expected no further remote calls for dead-lettered item")
	}

	// Requeue puts it back into rotation.
	if err := engine.Requeue(context.Background(), item.ID); err != nil {
		t.Fatalf("requeue failed: %v", err)
	}
	pending, _ = queue.ListPending(context.Background())
	if len(pending) != 1 || pending[0].Attempts != 0 {
		t.Fatalf("expected requeued item with reset attempts, got %+v", pending)
	}
}

func TestSyncEngine_ServerReconciliation(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(true)

	engine := newTestEngine(queue, store, api, conn)

	payload, _ := json.Marshal(map[string]any{"amount": 50, "currency": "USD"})
	api.CreateFunc = func(ctx context.Context, entityType domain.EntityType, p json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"id":"t1","amount":50,"currency":"USD","status":"completed"}`), nil
	}

	item, err := engine.Enqueue(context.Background(), domain.EntityTypeTransaction, domain.OperationCreate, payload, "")
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if item.EntityID == "" {
		t.Fatal("expected a generated provisional entity id")
	}

	if err := engine.SyncNow(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The server-assigned record replaces the provisional one.
	rec, err := store.Get(context.Background(), domain.CollectionTransactions, "t1")
	if err != nil {
		t.Fatalf("expected record under server id t1: %v", err)
	}
	var got map[string]any
	json.Unmarshal(rec, &got)
	if got["status"] != "completed" {
		t.Errorf("expected server copy to win, got %v", got)
	}

	if _, err := store.Get(context.Background(), domain.CollectionTransactions, item.EntityID); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Error("expected provisional record to be dropped")
	}

	n, _ := queue.CountPending(context.Background())
	if n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

func TestSyncEngine_EnqueueWritesOptimisticRecord(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(false)

	engine := newTestEngine(queue, store, api, conn)

	payload, _ := json.Marshal(map[string]any{"id": "a9", "name": "Savings"})
	item, err := engine.Enqueue(context.Background(), domain.EntityTypeAccount, domain.OperationUpdate, payload, "")
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if item.EntityID != "a9" {
		t.Errorf("expected entity id from payload, got %s", item.EntityID)
	}

	if _, err := store.Get(context.Background(), domain.CollectionAccounts, "a9"); err != nil {
		t.Errorf("expected optimistic local record: %v", err)
	}

	// Offline: no remote calls, item stays queued.
	if len(api.Calls()) != 0 {
		t.Error("expected no remote calls while offline")
	}
	has, _ := engine.HasPendingSync(context.Background())
	if !has {
		t.Error("expected pending sync after offline enqueue")
	}
}

func TestSyncEngine_EnqueueRejectsUnknownKinds(t *testing.T) {
	engine := newTestEngine(mocks.NewMockSyncQueueRepository(), mocks.NewMockLocalStore(), mocks.NewMockSyncAPI(), mocks.NewMockConnectivity(false))

	if _, err := engine.Enqueue(context.Background(), "wallet", domain.OperationCreate, nil, ""); !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Errorf("expected ErrUnknownEntityType, got %v", err)
	}
	if _, err := engine.Enqueue(context.Background(), domain.EntityTypeAccount, "upsert", nil, "a1"); !errors.Is(err, domain.ErrUnknownOperation) {
		t.Errorf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestSyncEngine_OnlineTransitionDrainsImmediately(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(false)

	seedItem(t, queue, "q1", domain.EntityTypeTransaction, domain.OperationCreate, "t1", time.Now().UTC())

	engine := usecase.NewSyncEngine(usecase.SyncEngineConfig{
		Store:         store,
		Queue:         queue,
		API:           api,
		Connectivity:  conn,
		IDGen:         mocks.NewMockIDGenerator(),
		SyncInterval:  time.Hour, // periodic tick must not interfere
		RequireOnline: true,
	})

	engine.Start()
	defer engine.Stop()

	conn.SetOnline(true)

	deadline := time.After(2 * time.Second)
	for {
		n, _ := queue.CountPending(context.Background())
		if n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("queue not drained after reconnect")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if len(api.Calls()) != 1 {
		t.Errorf("expected 1 remote call after reconnect, got %d", len(api.Calls()))
	}
}

func TestSyncEngine_TickerSuspendedWhileOffline(t *testing.T) {
	queue := mocks.NewMockSyncQueueRepository()
	store := mocks.NewMockLocalStore()
	api := mocks.NewMockSyncAPI()
	conn := mocks.NewMockConnectivity(false)

	seedItem(t, queue, "q1", domain.EntityTypeTransaction, domain.OperationCreate, "t1", time.Now().UTC())

	engine := usecase.NewSyncEngine(usecase.SyncEngineConfig{
		Store:         store,
		Queue:         queue,
		API:           api,
		Connectivity:  conn,
		IDGen:         mocks.NewMockIDGenerator(),
		SyncInterval:  20 * time.Millisecond,
		RequireOnline: true,
	})

	engine.Start()
	defer engine.Stop()

	// Several intervals pass while offline; the periodic drain must stay
	// suspended and nothing may reach the remote.
	time.Sleep(150 * time.Millisecond)

	if calls := len(api.Calls()); calls != 0 {
		t.Errorf("expected no remote calls while offline, got %d", calls)
	}
	if n, _ := queue.CountPending(context.Background()); n != 1 {
		t.Errorf("expected item to stay queued while offline, got %d pending", n)
	}
}

func TestSyncEngine_StopIsIdempotent(t *testing.T) {
	engine := newTestEngine(mocks.NewMockSyncQueueRepository(), mocks.NewMockLocalStore(), mocks.NewMockSyncAPI(), mocks.NewMockConnectivity(true))

	engine.Start()
	engine.Stop()
	engine.Stop()
}

package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/khula/khulasync/internal/domain"
	"github.com/khula/khulasync/internal/usecase"
)

// MockLocalStore is an in-memory implementation of usecase.LocalStore.
type MockLocalStore struct {
	mu   sync.RWMutex
	data map[string]map[string]json.RawMessage

	PutFunc    func(ctx context.Context, collection, id string, data json.RawMessage) error
	GetFunc    func(ctx context.Context, collection, id string) (json.RawMessage, error)
	DeleteFunc func(ctx context.Context, collection, id string) error
}

func NewMockLocalStore() *MockLocalStore {
	return &MockLocalStore{data: make(map[string]map[string]json.RawMessage)}
}

func (m *MockLocalStore) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, collection, id, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]json.RawMessage)
	}
	m.data[collection][id] = data
	return nil
}

func (m *MockLocalStore) PutTx(ctx context.Context, tx usecase.Transaction, collection, id string, data json.RawMessage) error {
	return m.Put(ctx, collection, id, data)
}

func (m *MockLocalStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, collection, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.data[collection][id]; ok {
		return rec, nil
	}
	return nil, domain.ErrRecordNotFound
}

func (m *MockLocalStore) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.data[collection][id])
	}
	return out, nil
}

func (m *MockLocalStore) GetByField(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	all, err := m.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for _, data := range all {
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			continue
		}
		if fmt.Sprint(fields[field]) == value {
			out = append(out, data)
		}
	}
	return out, nil
}

func (m *MockLocalStore) Delete(ctx context.Context, collection, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, collection, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], id)
	return nil
}

func (m *MockLocalStore) DeleteTx(ctx context.Context, tx usecase.Transaction, collection, id string) error {
	return m.Delete(ctx, collection, id)
}

func (m *MockLocalStore) Count(ctx context.Context, collection string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data[collection])), nil
}

// MockSyncQueueRepository is an in-memory implementation of usecase.SyncQueueRepository.
type MockSyncQueueRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.SyncQueueItem

	CreateFunc     func(ctx context.Context, item *domain.SyncQueueItem) error
	ListFunc       func(ctx context.Context) ([]*domain.SyncQueueItem, error)
	RemoveFunc     func(ctx context.Context, id string) error
	MarkFailedFunc func(ctx context.Context, item *domain.SyncQueueItem) error
}

func NewMockSyncQueueRepository() *MockSyncQueueRepository {
	return &MockSyncQueueRepository{items: make(map[string]*domain.SyncQueueItem)}
}

func (m *MockSyncQueueRepository) Create(ctx context.Context, item *domain.SyncQueueItem) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *MockSyncQueueRepository) CreateTx(ctx context.Context, tx usecase.Transaction, item *domain.SyncQueueItem) error {
	return m.Create(ctx, item)
}

func (m *MockSyncQueueRepository) ListPending(ctx context.Context) ([]*domain.SyncQueueItem, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.SyncQueueItem
	for _, item := range m.items {
		if !item.Dead {
			cp := *item
			out = append(out, &cp)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (m *MockSyncQueueRepository) ListDead(ctx context.Context) ([]*domain.SyncQueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.SyncQueueItem
	for _, item := range m.items {
		if item.Dead {
			cp := *item
			out = append(out, &cp)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

func (m *MockSyncQueueRepository) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrSyncItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MockSyncQueueRepository) MarkFailed(ctx context.Context, item *domain.SyncQueueItem) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[item.ID]
	if !ok {
		return domain.ErrSyncItemNotFound
	}
	stored.Attempts = item.Attempts
	stored.LastAttempt = item.LastAttempt
	stored.LastError = item.LastError
	stored.Dead = item.Dead
	return nil
}

func (m *MockSyncQueueRepository) Requeue(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.ErrSyncItemNotFound
	}
	item.Attempts = 0
	item.Dead = false
	item.LastError = ""
	return nil
}

func (m *MockSyncQueueRepository) CountPending(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, item := range m.items {
		if !item.Dead {
			n++
		}
	}
	return n, nil
}

// Item returns the stored item by id, for assertions.
func (m *MockSyncQueueRepository) Item(id string) *domain.SyncQueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if item, ok := m.items[id]; ok {
		cp := *item
		return &cp
	}
	return nil
}

func sortByCreatedAt(items []*domain.SyncQueueItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// MockOfflinePaymentRepository is an in-memory implementation of usecase.OfflinePaymentRepository.
type MockOfflinePaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.OfflinePayment

	CreateFunc       func(ctx context.Context, payment *domain.OfflinePayment) error
	UpdateStatusFunc func(ctx context.Context, id string, status domain.PaymentStatus) error
}

func NewMockOfflinePaymentRepository() *MockOfflinePaymentRepository {
	return &MockOfflinePaymentRepository{payments: make(map[string]*domain.OfflinePayment)}
}

func (m *MockOfflinePaymentRepository) Create(ctx context.Context, payment *domain.OfflinePayment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *MockOfflinePaymentRepository) GetByID(ctx context.Context, id string) (*domain.OfflinePayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (m *MockOfflinePaymentRepository) ListByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.OfflinePayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OfflinePayment
	for _, p := range m.payments {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockOfflinePaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = status
	return nil
}

// MockSyncAPI is a scriptable implementation of usecase.SyncAPI. By default
// every call succeeds and echoes the payload back.
type MockSyncAPI struct {
	mu    sync.Mutex
	calls []APICall

	CreateFunc func(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (json.RawMessage, error)
	UpdateFunc func(ctx context.Context, entityType domain.EntityType, entityID string, payload json.RawMessage) (json.RawMessage, error)
	DeleteFunc func(ctx context.Context, entityType domain.EntityType, entityID string) error
}

// APICall records one remote call for assertions.
type APICall struct {
	Method     string
	EntityType domain.EntityType
	EntityID   string
	Payload    json.RawMessage
}

func NewMockSyncAPI() *MockSyncAPI {
	return &MockSyncAPI{}
}

func (m *MockSyncAPI) record(call APICall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns the calls made so far.
func (m *MockSyncAPI) Calls() []APICall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]APICall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockSyncAPI) Create(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (json.RawMessage, error) {
	m.record(APICall{Method: "POST", EntityType: entityType, Payload: payload})
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entityType, payload)
	}
	return payload, nil
}

func (m *MockSyncAPI) Update(ctx context.Context, entityType domain.EntityType, entityID string, payload json.RawMessage) (json.RawMessage, error) {
	m.record(APICall{Method: "PUT", EntityType: entityType, EntityID: entityID, Payload: payload})
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, entityType, entityID, payload)
	}
	return payload, nil
}

func (m *MockSyncAPI) Delete(ctx context.Context, entityType domain.EntityType, entityID string) error {
	m.record(APICall{Method: "DELETE", EntityType: entityType, EntityID: entityID})
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, entityType, entityID)
	}
	return nil
}

// MockConnectivity is a settable implementation of usecase.Connectivity.
type MockConnectivity struct {
	mu      sync.RWMutex
	online  bool
	changes chan bool
}

func NewMockConnectivity(online bool) *MockConnectivity {
	return &MockConnectivity{online: online, changes: make(chan bool, 8)}
}

func (m *MockConnectivity) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline flips the state and delivers a change notification.
func (m *MockConnectivity) SetOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
	m.changes <- online
}

func (m *MockConnectivity) Changes() <-chan bool {
	return m.changes
}

// MockPaymentProvider is a scriptable implementation of usecase.PaymentProvider.
type MockPaymentProvider struct {
	name   domain.Provider
	prefix string

	mu          sync.Mutex
	createCalls int

	CreatePaymentFunc func(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error)
	CheckStatusFunc   func(ctx context.Context, paymentID string) (domain.PaymentStatus, error)
}

func NewMockPaymentProvider(name domain.Provider, prefix string) *MockPaymentProvider {
	return &MockPaymentProvider{name: name, prefix: prefix}
}

func (m *MockPaymentProvider) Name() domain.Provider { return m.name }
func (m *MockPaymentProvider) IDPrefix() string      { return m.prefix }

func (m *MockPaymentProvider) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	m.mu.Lock()
	m.createCalls++
	n := m.createCalls
	m.mu.Unlock()

	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, req)
	}
	return &domain.PaymentResponse{
		ID:        fmt.Sprintf("%s%d", m.prefix, n),
		Status:    domain.PaymentStatusPending,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Provider:  m.name,
		Reference: req.Reference,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (m *MockPaymentProvider) CheckStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, paymentID)
	}
	return domain.PaymentStatusPending, nil
}

// CreateCalls returns how many payments were submitted to this provider.
func (m *MockPaymentProvider) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// MockIDGenerator returns sequential deterministic ids.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("id-%04d", m.next)
}

// MockEventPublisher collects published events.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []*domain.Event

	PublishFunc func(ctx context.Context, event *domain.Event) error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the events published so far.
func (m *MockEventPublisher) Events() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

// MockCache is an in-memory implementation of usecase.Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("cache miss: %s", key)
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

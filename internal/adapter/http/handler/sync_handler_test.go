package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/khula/khulasync/internal/adapter/http/dto"
	"github.com/khula/khulasync/internal/domain"
)

type syncServiceStub struct {
	syncNowFn      func(ctx context.Context) error
	pendingCountFn func(ctx context.Context) (int64, error)
	listPendingFn  func(ctx context.Context) ([]*domain.SyncQueueItem, error)
	listDeadFn     func(ctx context.Context) ([]*domain.SyncQueueItem, error)
	requeueFn      func(ctx context.Context, id string) error
}

func (s *syncServiceStub) SyncNow(ctx context.Context) error { return s.syncNowFn(ctx) }

func (s *syncServiceStub) PendingCount(ctx context.Context) (int64, error) {
	return s.pendingCountFn(ctx)
}

func (s *syncServiceStub) ListPending(ctx context.Context) ([]*domain.SyncQueueItem, error) {
	return s.listPendingFn(ctx)
}

func (s *syncServiceStub) ListDeadLettered(ctx context.Context) ([]*domain.SyncQueueItem, error) {
	return s.listDeadFn(ctx)
}

func (s *syncServiceStub) Requeue(ctx context.Context, id string) error {
	return s.requeueFn(ctx, id)
}

type connStub struct {
	online bool
}

func (c *connStub) Online() bool { return c.online }

func TestSyncHandler_Status(t *testing.T) {
	handler := NewSyncHandler(&syncServiceStub{
		pendingCountFn: func(ctx context.Context) (int64, error) { return 4, nil },
	}, &connStub{online: true})

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	rec := httptest.NewRecorder()

	handler.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.SyncStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Online || resp.PendingCount != 4 {
		t.Fatalf("expected online with 4 pending, got %+v", resp)
	}
}

func TestSyncHandler_SyncNow_Offline(t *testing.T) {
	handler := NewSyncHandler(&syncServiceStub{
		syncNowFn: func(ctx context.Context) error { return domain.ErrDeviceOffline },
	}, &connStub{})

	req := httptest.NewRequest(http.MethodPost, "/sync/now", nil)
	rec := httptest.NewRecorder()

	handler.SyncNow(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSyncHandler_SyncNow_DrainsAndReports(t *testing.T) {
	drained := false
	handler := NewSyncHandler(&syncServiceStub{
		syncNowFn: func(ctx context.Context) error {
			drained = true
			return nil
		},
		pendingCountFn: func(ctx context.Context) (int64, error) { return 0, nil },
	}, &connStub{online: true})

	req := httptest.NewRequest(http.MethodPost, "/sync/now", nil)
	rec := httptest.NewRecorder()

	handler.SyncNow(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !drained {
		t.Fatal("expected SyncNow to be invoked")
	}

	var resp dto.SyncStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.PendingCount != 0 {
		t.Fatalf("expected empty queue after drain, got %d", resp.PendingCount)
	}
}

func TestSyncHandler_ListQueue(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	handler := NewSyncHandler(&syncServiceStub{
		listPendingFn: func(ctx context.Context) ([]*domain.SyncQueueItem, error) {
			return []*domain.SyncQueueItem{
				{ID: "q1", EntityID: "t1", EntityType: domain.EntityTypeTransaction, Operation: domain.OperationCreate, CreatedAt: at},
				{ID: "q2", EntityID: "a1", EntityType: domain.EntityTypeAccount, Operation: domain.OperationUpdate, CreatedAt: at.Add(time.Second)},
			}, nil
		},
	}, &connStub{})

	req := httptest.NewRequest(http.MethodGet, "/sync/queue", nil)
	rec := httptest.NewRecorder()

	handler.ListQueue(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.ListSyncQueueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 || resp.Items[0].ID != "q1" {
		t.Fatalf("expected q1 first of 2 items, got %+v", resp)
	}
}

func TestSyncHandler_Requeue_NotFound(t *testing.T) {
	handler := NewSyncHandler(&syncServiceStub{
		requeueFn: func(ctx context.Context, id string) error { return domain.ErrSyncItemNotFound },
	}, &connStub{})

	req := httptest.NewRequest(http.MethodPost, "/sync/queue/q9/requeue", nil)
	req = setChiURLParams(req, map[string]string{"id": "q9"})
	rec := httptest.NewRecorder()

	handler.Requeue(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSyncHandler_Requeue_Success(t *testing.T) {
	var requeued string
	handler := NewSyncHandler(&syncServiceStub{
		requeueFn: func(ctx context.Context, id string) error {
			requeued = id
			return nil
		},
	}, &connStub{})

	req := httptest.NewRequest(http.MethodPost, "/sync/queue/q2/requeue", nil)
	req = setChiURLParams(req, map[string]string{"id": "q2"})
	rec := httptest.NewRecorder()

	handler.Requeue(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if requeued != "q2" {
		t.Fatalf("expected q2 requeued, got %q", requeued)
	}
}

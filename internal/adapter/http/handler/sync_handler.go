package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khula/khulasync/internal/adapter/http/dto"
	"github.com/khula/khulasync/internal/domain"
)

// SyncService defines the behavior needed by SyncHandler.
type SyncService interface {
	SyncNow(ctx context.Context) error
	PendingCount(ctx context.Context) (int64, error)
	ListPending(ctx context.Context) ([]*domain.SyncQueueItem, error)
	ListDeadLettered(ctx context.Context) ([]*domain.SyncQueueItem, error)
	Requeue(ctx context.Context, id string) error
}

// ConnectivityChecker reports whether the device is online.
type ConnectivityChecker interface {
	Online() bool
}

// SyncHandler handles sync queue HTTP requests.
type SyncHandler struct {
	syncUC SyncService
	conn   ConnectivityChecker
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncUC SyncService, conn ConnectivityChecker) *SyncHandler {
	return &SyncHandler{syncUC: syncUC, conn: conn}
}

// Status reports connectivity and the number of pending mutations.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	count, err := h.syncUC.PendingCount(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to count pending items", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SyncStatusResponse{
		Online:       h.conn.Online(),
		PendingCount: count,
	})
}

// SyncNow triggers an immediate drain of the sync queue.
func (h *SyncHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	if err := h.syncUC.SyncNow(r.Context()); err != nil {
		if errors.Is(err, domain.ErrDeviceOffline) {
			writeError(w, http.StatusServiceUnavailable, "device is offline", "queued mutations will sync when connectivity returns")
			return
		}
		writeError(w, mapDomainError(err), "sync failed", err.Error())
		return
	}

	count, err := h.syncUC.PendingCount(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to count pending items", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SyncStatusResponse{
		Online:       h.conn.Online(),
		PendingCount: count,
	})
}

// ListQueue lists pending mutations in drain order.
func (h *SyncHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.syncUC.ListPending(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list sync queue", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListSyncQueueResponse{
		Items: dto.SyncQueueItemsFromDomain(items),
		Total: int64(len(items)),
	})
}

// ListDead lists dead-lettered mutations.
func (h *SyncHandler) ListDead(w http.ResponseWriter, r *http.Request) {
	items, err := h.syncUC.ListDeadLettered(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list dead-lettered items", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListSyncQueueResponse{
		Items: dto.SyncQueueItemsFromDomain(items),
		Total: int64(len(items)),
	})
}

// Requeue moves a dead-lettered item back into the pending queue.
func (h *SyncHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing item ID", "")
		return
	}

	if err := h.syncUC.Requeue(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to requeue item", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "requeued", "id": id})
}

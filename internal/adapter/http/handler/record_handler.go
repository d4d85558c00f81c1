package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khula/khulasync/internal/adapter/http/dto"
	"github.com/khula/khulasync/internal/domain"
	"github.com/khula/khulasync/internal/usecase"
)

// RecordService defines the behavior needed by RecordHandler.
type RecordService interface {
	Create(ctx context.Context, entityType domain.EntityType, payload json.RawMessage) (*usecase.SaveResult, error)
	Update(ctx context.Context, entityType domain.EntityType, entityID string, payload json.RawMessage) (*usecase.SaveResult, error)
	Delete(ctx context.Context, entityType domain.EntityType, entityID string) (*usecase.SaveResult, error)
	Get(ctx context.Context, entityType domain.EntityType, entityID string) (json.RawMessage, error)
	List(ctx context.Context, entityType domain.EntityType) ([]json.RawMessage, error)
	ListByField(ctx context.Context, entityType domain.EntityType, field, value string) ([]json.RawMessage, error)
	Count(ctx context.Context, entityType domain.EntityType) (int64, error)
}

// RecordHandler handles entity record HTTP requests.
type RecordHandler struct {
	recordUC RecordService
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(recordUC RecordService) *RecordHandler {
	return &RecordHandler{recordUC: recordUC}
}

func entityTypeParam(r *http.Request) domain.EntityType {
	return domain.EntityType(chi.URLParam(r, "entityType"))
}

// Create submits a new record. Returns 201 when the remote API confirmed the
// write and 202 when the mutation was queued for sync.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil || len(payload) == 0 || !json.Valid(payload) {
		writeError(w, http.StatusBadRequest, "invalid request body", "expected a JSON object")
		return
	}

	result, err := h.recordUC.Create(r.Context(), entityTypeParam(r), payload)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create record", err.Error())
		return
	}

	writeJSON(w, saveStatus(result, http.StatusCreated), dto.RecordResponse{
		ID:     result.EntityID,
		Record: result.Record,
		Queued: result.Queued,
	})
}

// Update submits changes to an existing record.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payload, err := io.ReadAll(r.Body)
	if err != nil || len(payload) == 0 || !json.Valid(payload) {
		writeError(w, http.StatusBadRequest, "invalid request body", "expected a JSON object")
		return
	}

	result, err := h.recordUC.Update(r.Context(), entityTypeParam(r), id, payload)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to update record", err.Error())
		return
	}

	writeJSON(w, saveStatus(result, http.StatusOK), dto.RecordResponse{
		ID:     result.EntityID,
		Record: result.Record,
		Queued: result.Queued,
	})
}

// Delete removes a record.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing record ID", "")
		return
	}

	result, err := h.recordUC.Delete(r.Context(), entityTypeParam(r), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to delete record", err.Error())
		return
	}

	writeJSON(w, saveStatus(result, http.StatusOK), dto.RecordResponse{
		ID:     result.EntityID,
		Queued: result.Queued,
	})
}

// Get retrieves a record from the local store.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing record ID", "")
		return
	}

	record, err := h.recordUC.Get(r.Context(), entityTypeParam(r), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get record", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// List lists records of a collection from the local store. The optional
// field/value query pair filters on an indexed payload field.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	entityType := entityTypeParam(r)
	field := r.URL.Query().Get("field")
	value := r.URL.Query().Get("value")

	var (
		records []json.RawMessage
		err     error
	)
	if field != "" {
		records, err = h.recordUC.ListByField(r.Context(), entityType, field, value)
	} else {
		records, err = h.recordUC.List(r.Context(), entityType)
	}
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list records", err.Error())
		return
	}

	total := int64(len(records))
	if field == "" {
		if total, err = h.recordUC.Count(r.Context(), entityType); err != nil {
			writeError(w, mapDomainError(err), "failed to count records", err.Error())
			return
		}
	}

	if records == nil {
		records = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, dto.ListRecordsResponse{
		Records: records,
		Total:   total,
	})
}

// saveStatus picks the response code for a mutation: queued mutations are
// accepted, confirmed ones use the verb's usual code.
func saveStatus(result *usecase.SaveResult, confirmed int) int {
	if result.Queued {
		return http.StatusAccepted
	}
	return confirmed
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khula/khulasync/internal/adapter/http/dto"
	"github.com/khula/khulasync/internal/domain"
)

// PaymentService defines the behavior needed by PaymentHandler.
type PaymentService interface {
	ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error)
	CheckPaymentStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error)
	ProcessOfflineQueue(ctx context.Context) ([]*domain.PaymentResponse, error)
}

// OfflinePaymentService defines the staged payment queries needed by PaymentHandler.
type OfflinePaymentService interface {
	GetPendingPayments(ctx context.Context) ([]*domain.OfflinePayment, error)
}

// PaymentHandler handles payment HTTP requests.
type PaymentHandler struct {
	paymentUC PaymentService
	offlineUC OfflinePaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentUC PaymentService, offlineUC OfflinePaymentService) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC, offlineUC: offlineUC}
}

// Process collects a payment. While offline the request is staged durably
// and the call returns 202; the staged payment replays on reconnect.
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req dto.ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.paymentUC.ProcessPayment(r.Context(), req.ToDomain())
	if err != nil {
		if errors.Is(err, domain.ErrDeviceOffline) {
			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":  "staged",
				"message": "device offline, payment staged for replay",
			})
			return
		}
		writeError(w, mapDomainError(err), "failed to process payment", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentFromDomain(resp))
}

// Status resolves the status of a payment by id.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing payment ID", "")
		return
	}

	status, err := h.paymentUC.CheckPaymentStatus(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to check payment status", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentStatusResponse{
		ID:     id,
		Status: string(status),
	})
}

// ListOffline lists staged payments awaiting replay.
func (h *PaymentHandler) ListOffline(w http.ResponseWriter, r *http.Request) {
	pending, err := h.offlineUC.GetPendingPayments(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list offline payments", err.Error())
		return
	}

	payments := make([]*dto.OfflinePaymentResponse, len(pending))
	for i, p := range pending {
		payments[i] = dto.OfflinePaymentFromDomain(p)
	}

	writeJSON(w, http.StatusOK, dto.ListOfflinePaymentsResponse{
		Payments: payments,
		Total:    int64(len(payments)),
	})
}

// Replay replays every staged payment against the live providers.
func (h *PaymentHandler) Replay(w http.ResponseWriter, r *http.Request) {
	replayed, err := h.paymentUC.ProcessOfflineQueue(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to replay offline payments", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReplayResponse{
		Replayed: dto.PaymentsFromDomain(replayed),
		Total:    int64(len(replayed)),
	})
}

package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khula/khulasync/internal/domain"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RecordResponse wraps a stored or queued entity record.
type RecordResponse struct {
	ID     string          `json:"id"`
	Record json.RawMessage `json:"record,omitempty"`
	Queued bool            `json:"queued"`
}

// ListRecordsResponse lists the records of one collection.
type ListRecordsResponse struct {
	Records []json.RawMessage `json:"records"`
	Total   int64             `json:"total"`
}

// SyncStatusResponse reports connectivity and queue depth.
type SyncStatusResponse struct {
	Online       bool  `json:"online"`
	PendingCount int64 `json:"pendingCount"`
}

// SyncQueueItemResponse represents a queued mutation in API responses.
type SyncQueueItemResponse struct {
	ID          string          `json:"id"`
	EntityID    string          `json:"entityId"`
	EntityType  string          `json:"entityType"`
	Operation   string          `json:"operation"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	Attempts    int             `json:"attempts"`
	LastAttempt *time.Time      `json:"lastAttempt,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	Dead        bool            `json:"dead"`
}

// SyncQueueItemFromDomain converts a domain queue item to a response.
func SyncQueueItemFromDomain(i *domain.SyncQueueItem) *SyncQueueItemResponse {
	return &SyncQueueItemResponse{
		ID:          i.ID,
		EntityID:    i.EntityID,
		EntityType:  string(i.EntityType),
		Operation:   string(i.Operation),
		Payload:     i.Payload,
		CreatedAt:   i.CreatedAt,
		Attempts:    i.Attempts,
		LastAttempt: i.LastAttempt,
		LastError:   i.LastError,
		Dead:        i.Dead,
	}
}

// SyncQueueItemsFromDomain converts domain queue items to responses.
func SyncQueueItemsFromDomain(items []*domain.SyncQueueItem) []*SyncQueueItemResponse {
	result := make([]*SyncQueueItemResponse, len(items))
	for i, item := range items {
		result[i] = SyncQueueItemFromDomain(item)
	}
	return result
}

// ListSyncQueueResponse lists queued mutations.
type ListSyncQueueResponse struct {
	Items []*SyncQueueItemResponse `json:"items"`
	Total int64                    `json:"total"`
}

// PaymentResponse represents a payment outcome in API responses.
type PaymentResponse struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	PaymentURL string          `json:"paymentUrl,omitempty"`
	Provider   string          `json:"provider"`
	Reference  string          `json:"reference"`
	CreatedAt  time.Time       `json:"createdAt"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// PaymentFromDomain converts a domain payment response.
func PaymentFromDomain(p *domain.PaymentResponse) *PaymentResponse {
	return &PaymentResponse{
		ID:         p.ID,
		Status:     string(p.Status),
		Amount:     p.Amount,
		Currency:   string(p.Currency),
		PaymentURL: p.PaymentURL,
		Provider:   string(p.Provider),
		Reference:  p.Reference,
		CreatedAt:  p.CreatedAt,
		Metadata:   p.Metadata,
	}
}

// PaymentsFromDomain converts domain payment responses.
func PaymentsFromDomain(payments []*domain.PaymentResponse) []*PaymentResponse {
	result := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		result[i] = PaymentFromDomain(p)
	}
	return result
}

// PaymentStatusResponse reports the resolved status of a payment.
type PaymentStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OfflinePaymentResponse represents a staged offline payment.
type OfflinePaymentResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Display   string          `json:"display"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// OfflinePaymentFromDomain converts a staged payment to a response.
func OfflinePaymentFromDomain(p *domain.OfflinePayment) *OfflinePaymentResponse {
	return &OfflinePaymentResponse{
		ID:        p.ID,
		Amount:    p.Request.Amount,
		Currency:  string(p.Request.Currency),
		Display:   domain.DisplayAmount(p.Request.Amount, p.Request.Currency),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	}
}

// ListOfflinePaymentsResponse lists staged offline payments.
type ListOfflinePaymentsResponse struct {
	Payments []*OfflinePaymentResponse `json:"payments"`
	Total    int64                     `json:"total"`
}

// ReplayResponse reports the outcome of replaying staged payments.
type ReplayResponse struct {
	Replayed []*PaymentResponse `json:"replayed"`
	Total    int64              `json:"total"`
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khula/khulasync/internal/domain"
)

// EcoCash is the mobile-money fallback used for ZWL payments. It charges the
// customer's phone directly, so the customer phone number is required.
// Payment ids carry the "eco_" prefix.
type EcoCash struct {
	baseURL    string
	merchantID string
	apiKey     string
	httpClient *http.Client
}

// NewEcoCash creates a new EcoCash client.
func NewEcoCash(baseURL, merchantID, apiKey string, httpClient *http.Client) *EcoCash {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &EcoCash{baseURL: baseURL, merchantID: merchantID, apiKey: apiKey, httpClient: httpClient}
}

// Name returns the provider identifier.
func (e *EcoCash) Name() domain.Provider { return domain.ProviderEcoCash }

// IDPrefix returns the payment id prefix issued by EcoCash.
func (e *EcoCash) IDPrefix() string { return "eco_" }

type ecocashChargeRequest struct {
	MerchantID  string          `json:"merchantId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PhoneNumber string          `json:"phoneNumber"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
}

type ecocashChargeResponse struct {
	TransactionID string          `json:"transactionId"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"`
}

// CreatePayment initiates an EcoCash charge against the customer's phone.
func (e *EcoCash) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	if req.Customer.Phone == "" {
		return nil, fmt.Errorf("ecocash: %w: phone number required", domain.ErrMissingCustomer)
	}

	body := ecocashChargeRequest{
		MerchantID:  e.merchantID,
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		PhoneNumber: req.Customer.Phone,
		Description: req.Description,
		Reference:   req.Reference,
	}

	var out ecocashChargeResponse
	if err := e.call(ctx, http.MethodPost, "/api/v2/charges", body, &out); err != nil {
		return nil, fmt.Errorf("ecocash: %w", err)
	}

	return &domain.PaymentResponse{
		ID:        out.TransactionID,
		Status:    mapEcocashStatus(out.Status),
		Amount:    out.Amount,
		Currency:  domain.Currency(out.Currency),
		Provider:  domain.ProviderEcoCash,
		Reference: out.Reference,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// CheckStatus resolves the status of an EcoCash charge.
func (e *EcoCash) CheckStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := e.call(ctx, http.MethodGet, "/api/v2/charges/"+paymentID, nil, &out); err != nil {
		return "", fmt.Errorf("ecocash: %w", err)
	}
	return mapEcocashStatus(out.Status), nil
}

// mapEcocashStatus folds EcoCash's transaction states into the domain
// status set.
func mapEcocashStatus(s string) domain.PaymentStatus {
	switch s {
	case "SUCCESS", "COMPLETED":
		return domain.PaymentStatusCompleted
	case "FAILED", "DECLINED":
		return domain.PaymentStatusFailed
	case "CANCELLED":
		return domain.PaymentStatusCancelled
	default:
		return domain.PaymentStatusPending
	}
}

func (e *EcoCash) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", e.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

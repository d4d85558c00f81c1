// Package provider holds the payment provider HTTP clients.
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

// Bhadala is the primary payment processor. Payment ids issued by it carry
// the "bhd_" prefix.
type Bhadala struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBhadala creates a new Bhadala client.
func NewBhadala(baseURL, apiKey string, httpClient *http.Client) *Bhadala {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Bhadala{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

// Name returns the provider identifier.
func (b *Bhadala) Name() domain.Provider { return domain.ProviderBhadala }

// IDPrefix returns the payment id prefix issued by Bhadala.
func (b *Bhadala) IDPrefix() string { return "bhd_" }

type bhadalaPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Customer    domain.Customer `json:"customer"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
}

type bhadalaPaymentResponse struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	PaymentURL string          `json:"paymentUrl"`
	Reference  string          `json:"reference"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// CreatePayment submits a payment to Bhadala.
func (b *Bhadala) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	body := bhadalaPaymentRequest{
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		Description: req.Description,
		Reference:   req.Reference,
		Customer:    req.Customer,
		Metadata:    req.Metadata,
		RedirectURL: req.RedirectURL,
	}

	var out bhadalaPaymentResponse
	if err := b.call(ctx, http.MethodPost, "/v1/payments", body, &out); err != nil {
		return nil, fmt.Errorf("bhadala: %w", err)
	}

	return &domain.PaymentResponse{
		ID:         out.ID,
		Status:     domain.PaymentStatus(out.Status),
		Amount:     out.Amount,
		Currency:   domain.Currency(out.Currency),
		PaymentURL: out.PaymentURL,
		Provider:   domain.ProviderBhadala,
		Reference:  out.Reference,
		CreatedAt:  out.CreatedAt,
	}, nil
}

// CheckStatus resolves the status of a Bhadala payment.
func (b *Bhadala) CheckStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := b.call(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &out); err != nil {
		return "", fmt.Errorf("bhadala: %w", err)
	}
	return domain.PaymentStatus(out.Status), nil
}

func (b *Bhadala) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
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

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

// Flutterwave is the card and bank-transfer fallback, used for USD and ZAR
// payments. Payment ids carry the "flw_" prefix.
type Flutterwave struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewFlutterwave creates a new Flutterwave client.
func NewFlutterwave(baseURL, secretKey string, httpClient *http.Client) *Flutterwave {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Flutterwave{baseURL: baseURL, secretKey: secretKey, httpClient: httpClient}
}

// Name returns the provider identifier.
func (f *Flutterwave) Name() domain.Provider { return domain.ProviderFlutterwave }

// IDPrefix returns the payment id prefix issued by Flutterwave.
func (f *Flutterwave) IDPrefix() string { return "flw_" }

type flutterwaveChargeRequest struct {
	TxRef       string              `json:"tx_ref"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    string              `json:"currency"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	Customer    flutterwaveCustomer `json:"customer"`
	Meta        map[string]any      `json:"meta,omitempty"`
}

type flutterwaveCustomer struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phonenumber,omitempty"`
}

type flutterwaveChargeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        string          `json:"id"`
		TxRef     string          `json:"tx_ref"`
		Status    string          `json:"status"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  string          `json:"currency"`
		Link      string          `json:"link"`
		CreatedAt time.Time       `json:"created_at"`
	} `json:"data"`
}

// CreatePayment initiates a Flutterwave charge.
func (f *Flutterwave) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	txRef := req.Reference
	if txRef == "" {
		txRef = fmt.Sprintf("khula-%d", time.Now().UnixNano())
	}

	body := flutterwaveChargeRequest{
		TxRef:       txRef,
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		RedirectURL: req.RedirectURL,
		Customer: flutterwaveCustomer{
			Email:       req.Customer.Email,
			Name:        req.Customer.Name,
			PhoneNumber: req.Customer.Phone,
		},
		Meta: req.Metadata,
	}

	var out flutterwaveChargeResponse
	if err := f.call(ctx, http.MethodPost, "/v3/payments", body, &out); err != nil {
		return nil, fmt.Errorf("flutterwave: %w", err)
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("flutterwave: charge rejected: %s", out.Message)
	}

	return &domain.PaymentResponse{
		ID:         out.Data.ID,
		Status:     mapFlutterwaveStatus(out.Data.Status),
		Amount:     out.Data.Amount,
		Currency:   domain.Currency(out.Data.Currency),
		PaymentURL: out.Data.Link,
		Provider:   domain.ProviderFlutterwave,
		Reference:  out.Data.TxRef,
		CreatedAt:  out.Data.CreatedAt,
	}, nil
}

// CheckStatus resolves the status of a Flutterwave charge.
func (f *Flutterwave) CheckStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	var out flutterwaveChargeResponse
	if err := f.call(ctx, http.MethodGet, "/v3/transactions/"+paymentID+"/verify", nil, &out); err != nil {
		return "", fmt.Errorf("flutterwave: %w", err)
	}
	if out.Status != "success" {
		return "", fmt.Errorf("flutterwave: verify rejected: %s", out.Message)
	}
	return mapFlutterwaveStatus(out.Data.Status), nil
}

func mapFlutterwaveStatus(s string) domain.PaymentStatus {
	switch s {
	case "successful":
		return domain.PaymentStatusCompleted
	case "failed":
		return domain.PaymentStatusFailed
	case "cancelled":
		return domain.PaymentStatusCancelled
	default:
		return domain.PaymentStatusPending
	}
}

func (f *Flutterwave) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.httpClient.Do(req)
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

package dto

import (
	"github.com/shopspring/decimal"

	"github.com/khula/khulasync/internal/domain"
)

// CustomerRequest identifies the paying customer.
type CustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ProcessPaymentRequest represents a request to collect a payment.
type ProcessPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Customer    CustomerRequest `json:"customer"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Provider    string          `json:"provider,omitempty"`
	Methods     []string        `json:"paymentMethods,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
}

// ToDomain converts to a domain payment request.
func (r *ProcessPaymentRequest) ToDomain() *domain.PaymentRequest {
	methods := make([]domain.PaymentMethod, len(r.Methods))
	for i, m := range r.Methods {
		methods[i] = domain.PaymentMethod(m)
	}
	return &domain.PaymentRequest{
		Amount:      r.Amount,
		Currency:    domain.Currency(r.Currency),
		Description: r.Description,
		Reference:   r.Reference,
		Customer: domain.Customer{
			Name:  r.Customer.Name,
			Email: r.Customer.Email,
			Phone: r.Customer.Phone,
		},
		Metadata:    r.Metadata,
		Provider:    domain.Provider(r.Provider),
		Methods:     methods,
		RedirectURL: r.RedirectURL,
	}
}

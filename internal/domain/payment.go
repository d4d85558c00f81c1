package domain

import (
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Provider identifies a payment processor.
type Provider string

const (
	ProviderBhadala     Provider = "bhadala"
	ProviderEcoCash     Provider = "ecocash"
	ProviderFlutterwave Provider = "flutterwave"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCard         PaymentMethod = "card"
	MethodWallet       PaymentMethod = "wallet"
)

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Currency is one of the currencies Khula settles in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyZWL Currency = "ZWL"
	CurrencyZAR Currency = "ZAR"
)

// Valid reports whether the currency is supported.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyZWL, CurrencyZAR:
		return true
	}
	return false
}

// Customer identifies the paying customer.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// PaymentRequest describes a payment to be collected. It is immutable once built.
type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    Currency        `json:"currency"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	Customer    Customer        `json:"customer"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Provider    Provider        `json:"provider,omitempty"`
	Methods     []PaymentMethod `json:"methods,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
}

// Validate checks that the request can be submitted to a provider.
func (r *PaymentRequest) Validate() error {
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !r.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if r.Customer.Name == "" || r.Customer.Email == "" {
		return ErrMissingCustomer
	}
	return nil
}

// PaymentResponse is the outcome of submitting a payment.
type PaymentResponse struct {
	ID         string          `json:"id"`
	Status     PaymentStatus   `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   Currency        `json:"currency"`
	PaymentURL string          `json:"paymentUrl,omitempty"`
	Provider   Provider        `json:"provider"`
	Reference  string          `json:"reference"`
	CreatedAt  time.Time       `json:"createdAt"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// OfflinePaymentIDPrefix marks payments staged while the device was offline.
const OfflinePaymentIDPrefix = "offline_"

// OfflinePayment is a staged payment request waiting for connectivity.
// Status moves pending -> completed when the replay succeeds; records are
// never removed automatically.
type OfflinePayment struct {
	ID        string         `json:"id"`
	Request   PaymentRequest `json:"request"`
	Status    PaymentStatus  `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// IsOffline reports whether the payment id denotes a staged offline payment.
func IsOfflinePaymentID(id string) bool {
	return strings.HasPrefix(id, OfflinePaymentIDPrefix)
}

// DisplayAmount renders an amount with its currency symbol for human output.
func DisplayAmount(amount decimal.Decimal, currency Currency) string {
	cur := money.GetCurrency(string(currency))
	if cur == nil {
		return amount.StringFixed(2) + " " + string(currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, string(currency)).Display()
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Collection names in the local store.
const (
	CollectionTransactions    = "transactions"
	CollectionAccounts        = "accounts"
	CollectionLoans           = "loans"
	CollectionInvestments     = "investments"
	CollectionUserProfile     = "userProfile"
	CollectionSyncQueue       = "syncQueue"
	CollectionOfflinePayments = "offlinePayments"
)

// EntityCollections maps every entity type to its local store collection.
var EntityCollections = map[EntityType]string{
	EntityTypeTransaction: CollectionTransactions,
	EntityTypeAccount:     CollectionAccounts,
	EntityTypeLoan:        CollectionLoans,
	EntityTypeInvestment:  CollectionInvestments,
	EntityTypeUserProfile: CollectionUserProfile,
}

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeCredit TransactionType = "credit"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is a single money movement on an account.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    Currency          `json:"currency"`
	Description string            `json:"description"`
	Category    string            `json:"category,omitempty"`
	Date        time.Time         `json:"date"`
	AccountID   string            `json:"accountId"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeInvestment AccountType = "investment"
)

// Account is a customer banking account.
type Account struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     AccountType     `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency Currency        `json:"currency"`
	CardType string          `json:"cardType,omitempty"`
	LastFour string          `json:"lastFour,omitempty"`
	IsActive bool            `json:"isActive"`
}

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusRejected  LoanStatus = "rejected"
)

// LoanPayment is one entry of a loan payment schedule.
type LoanPayment struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
}

// Loan is a microfinance loan.
type Loan struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        Currency        `json:"currency"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	TermMonths      int             `json:"term"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	Status          LoanStatus      `json:"status"`
	NextPayment     *LoanPayment    `json:"nextPayment,omitempty"`
	PaymentSchedule []LoanPayment   `json:"paymentSchedule,omitempty"`
}

type InvestmentType string

const (
	InvestmentTypeBusiness InvestmentType = "business"
	InvestmentTypeProperty InvestmentType = "property"
	InvestmentTypeFund     InvestmentType = "fund"
)

type InvestmentStatus string

const (
	InvestmentStatusOpen      InvestmentStatus = "open"
	InvestmentStatusFunded    InvestmentStatus = "funded"
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusCompleted InvestmentStatus = "completed"
)

// Investment is a pooled or venture investment position.
type Investment struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Type           InvestmentType   `json:"type"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       Currency         `json:"currency"`
	InvestedAmount decimal.Decimal  `json:"investedAmount"`
	ReturnRate     decimal.Decimal  `json:"returnRate"`
	TermMonths     int              `json:"term"`
	Status         InvestmentStatus `json:"status"`
	Description    string           `json:"description,omitempty"`
}

// UserProfile is the account holder's profile.
type UserProfile struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	KYCStatus   string `json:"kycStatus"`
	Preferences struct {
		Currency      Currency `json:"currency"`
		Notifications bool     `json:"notifications"`
		Language      string   `json:"language"`
	} `json:"preferences"`
}

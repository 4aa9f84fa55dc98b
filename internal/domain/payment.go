package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ProviderStripe identifies transactions recorded by this service.
const ProviderStripe = "stripe"

// PaymentStatus is the provider-reported outcome of one checkout attempt.
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusUnknown   PaymentStatus = "unknown"
)

// TransactionAction is the ledger's own record of how an attempt concluded.
type TransactionAction string

const (
	TransactionActionComplete TransactionAction = "complete"
	TransactionActionReject   TransactionAction = "reject"
	TransactionActionPending  TransactionAction = "pending"
)

// Transaction is one append-only ledger entry for a registration.
type Transaction struct {
	ID             string
	RegistrationID int64
	Amount         decimal.Decimal
	Currency       string
	Action         TransactionAction
	Provider       string
	ProviderRef    string // Checkout session id, empty when not known.
	Data           json.RawMessage
	CreatedAt      time.Time
}

// Tone is the visual category of a message shown to the registrant.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
	ToneInfo    Tone = "info"
)

// Flash is a one-shot message displayed after a redirect.
type Flash struct {
	Message string `json:"message"`
	Tone    Tone   `json:"tone"`
}

// Package psp integrates the hosted-checkout payment service provider.
package psp

import (
	"context"
	"encoding/json"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
)

// SessionIDPlaceholder is substituted by the provider with the checkout
// session id when it redirects to the success or cancel URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// CreateSessionRequest contains the parameters for opening a checkout session.
type CreateSessionRequest struct {
	APIKey            string
	Reference         string // Registration token, echoed back by the provider.
	RegistrationID    int64
	EventID           int64
	Email             string
	Description       string
	AmountMinor       int64
	Currency          string
	SuccessURL        string
	CancelURL         string
	RequirePostalCode bool
}

// Session is a provider-hosted checkout session.
type Session struct {
	ID  string
	URL string
}

// Checkout is the authoritative state of a checkout session as reported by
// the provider.
type Checkout struct {
	SessionID       string
	Reference       string
	PaymentIntentID string
	Status          domain.PaymentStatus
	RawStatus       string
	AmountMinor     int64
	Currency        string
	Payload         json.RawMessage
}

// Provider is the interface for a hosted-checkout payment provider.
type Provider interface {
	// Name returns the identifier recorded on ledger entries.
	Name() string

	// CreateSession opens a new checkout session.
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)

	// RetrieveCheckout fetches a session and the status of its payment.
	RetrieveCheckout(ctx context.Context, apiKey, sessionID string) (*Checkout, error)
}

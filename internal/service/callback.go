package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/money"
	"github.com/dknog/indico-plugin-stripe/internal/monitoring"
	"github.com/dknog/indico-plugin-stripe/internal/psp"
	"github.com/dknog/indico-plugin-stripe/internal/redis"
	"github.com/dknog/indico-plugin-stripe/internal/repository"
)

const (
	endpointSuccess = "success"
	endpointCancel  = "cancel"
)

// Registrant-facing messages.
const (
	MessageCompleted   = "Your payment request has been processed."
	MessageRejected    = "The payment was not completed. Please retry."
	MessagePending     = "Your payment is pending."
	MessageUnknown     = "There was a problem with your payment. Please retry."
	MessageCancelled   = "Your transaction was cancelled."
	MessageUnreachable = "We could not reach the payment provider. Please retry."
)

// CallbackService reconciles provider redirects with the transaction ledger.
type CallbackService struct {
	registrationRepo repository.RegistrationRepository
	ledger           repository.TransactionLedger
	settings         *SettingsService
	provider         psp.Provider
	claims           redis.ClaimStoreInterface
	urls             URLBuilder
	logger           *slog.Logger
}

// NewCallbackService creates a new CallbackService. claims may be nil, in
// which case duplicate callbacks are not detected.
func NewCallbackService(
	registrationRepo repository.RegistrationRepository,
	ledger repository.TransactionLedger,
	settings *SettingsService,
	provider psp.Provider,
	claims redis.ClaimStoreInterface,
	urls URLBuilder,
	logger *slog.Logger,
) *CallbackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallbackService{
		registrationRepo: registrationRepo,
		ledger:           ledger,
		settings:         settings,
		provider:         provider,
		claims:           claims,
		urls:             urls,
		logger:           logger,
	}
}

// SuccessRequest contains the parameters of a success redirect.
type SuccessRequest struct {
	EventID   int64
	RegFormID int64
	Token     string
	SessionID string
	Form      url.Values // Client-supplied fields, kept for audit only.
}

// CancelRequest contains the parameters of a cancel redirect.
type CancelRequest struct {
	EventID   int64
	RegFormID int64
	Token     string
	SessionID string // Optional.
	Form      url.Values
}

// CallbackResult describes where to send the registrant and what to tell them.
type CallbackResult struct {
	Registration *domain.Registration
	Transaction  *domain.Transaction // Nil when nothing was recorded.
	Status       domain.PaymentStatus
	Flash        domain.Flash
	RedirectURL  string
	Duplicate    bool
}

type outcome struct {
	action domain.TransactionAction
	record bool
	flash  domain.Flash
}

// resolveOutcome maps every payment status to exactly one outcome.
func resolveOutcome(status domain.PaymentStatus) outcome {
	switch status {
	case domain.PaymentStatusSucceeded:
		return outcome{
			action: domain.TransactionActionComplete,
			record: true,
			flash:  domain.Flash{Message: MessageCompleted, Tone: domain.ToneSuccess},
		}
	case domain.PaymentStatusFailed:
		return outcome{
			action: domain.TransactionActionReject,
			record: true,
			flash:  domain.Flash{Message: MessageRejected, Tone: domain.ToneError},
		}
	case domain.PaymentStatusPending:
		return outcome{
			action: domain.TransactionActionPending,
			record: true,
			flash:  domain.Flash{Message: MessagePending, Tone: domain.ToneInfo},
		}
	default:
		return outcome{
			flash: domain.Flash{Message: MessageUnknown, Tone: domain.ToneError},
		}
	}
}

// HandleSuccess verifies a completed checkout with the provider and records
// the resulting transaction. The provider's status is authoritative; the
// client's fields are stored as audit data and never trusted.
//
// When the provider cannot be reached the returned result still carries the
// redirect and message for the registrant alongside the error.
func (s *CallbackService) HandleSuccess(ctx context.Context, req SuccessRequest) (*CallbackResult, error) {
	req.SessionID = sessionIDParam(req.SessionID)
	if req.Token == "" {
		return nil, fmt.Errorf("%w: token", ErrMissingParameter)
	}
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id", ErrMissingParameter)
	}

	reg, err := loadRegistration(ctx, s.registrationRepo, req.EventID, req.RegFormID, req.Token)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Resolve(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if settings.SecretKey == "" {
		return nil, ErrMissingCredentials
	}

	result := &CallbackResult{
		Registration: reg,
		RedirectURL:  s.urls.RegistrationPage(reg),
	}

	checkout, err := s.provider.RetrieveCheckout(ctx, settings.SecretKey, req.SessionID)
	if err != nil {
		if errors.Is(err, psp.ErrConnection) {
			s.logger.Error("payment provider unreachable",
				"registration_id", reg.ID,
				"session_id", req.SessionID,
				"error", err,
			)
			monitoring.TrackCallback(endpointSuccess, "unreachable")
			result.Status = domain.PaymentStatusUnknown
			result.Flash = domain.Flash{Message: MessageUnreachable, Tone: domain.ToneError}
			return result, err
		}
		return nil, err
	}

	if checkout.Reference != reg.UUID {
		s.logger.Warn("checkout session belongs to another registration",
			"registration_id", reg.ID,
			"session_id", req.SessionID,
		)
		return nil, ErrSessionMismatch
	}

	out := resolveOutcome(checkout.Status)
	result.Status = checkout.Status
	result.Flash = out.flash

	if !out.record {
		s.logger.Warn("unmappable payment status",
			"registration_id", reg.ID,
			"session_id", req.SessionID,
			"provider_status", checkout.RawStatus,
		)
		monitoring.TrackCallback(endpointSuccess, string(domain.PaymentStatusUnknown))
		return result, nil
	}

	amount, err := money.ToMajor(checkout.AmountMinor, checkout.Currency)
	if err != nil {
		return nil, fmt.Errorf("convert provider amount: %w", err)
	}

	tx := &domain.Transaction{
		ID:             uuid.NewString(),
		RegistrationID: reg.ID,
		Amount:         amount,
		Currency:       money.Normalize(checkout.Currency),
		Action:         out.action,
		Provider:       s.provider.Name(),
		ProviderRef:    checkout.SessionID,
		Data:           auditData(checkout.Payload, req.Form),
		CreatedAt:      time.Now().UTC(),
	}

	duplicate, err := s.record(ctx, tx)
	if err != nil {
		return nil, err
	}

	result.Duplicate = duplicate
	if duplicate {
		monitoring.TrackDuplicateCallback(endpointSuccess)
	} else {
		result.Transaction = tx
	}
	monitoring.TrackCallback(endpointSuccess, string(checkout.Status))

	s.logger.Info("payment callback reconciled",
		"registration_id", reg.ID,
		"session_id", checkout.SessionID,
		"action", out.action,
		"amount", amount.String(),
		"currency", tx.Currency,
		"duplicate", duplicate,
	)

	return result, nil
}

// HandleCancel records that the registrant abandoned the checkout. The
// provider is not consulted; the rejected amount is the registration's own
// price.
func (s *CallbackService) HandleCancel(ctx context.Context, req CancelRequest) (*CallbackResult, error) {
	req.SessionID = sessionIDParam(req.SessionID)
	reg, err := loadRegistration(ctx, s.registrationRepo, req.EventID, req.RegFormID, req.Token)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:             uuid.NewString(),
		RegistrationID: reg.ID,
		Amount:         reg.Price,
		Currency:       money.Normalize(reg.Currency),
		Action:         domain.TransactionActionReject,
		Provider:       s.provider.Name(),
		ProviderRef:    req.SessionID,
		Data:           auditData(nil, req.Form),
		CreatedAt:      time.Now().UTC(),
	}

	duplicate, err := s.record(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{
		Registration: reg,
		Status:       domain.PaymentStatusFailed,
		Flash:        domain.Flash{Message: MessageCancelled, Tone: domain.ToneInfo},
		RedirectURL:  s.urls.RegistrationPage(reg),
		Duplicate:    duplicate,
	}
	if duplicate {
		monitoring.TrackDuplicateCallback(endpointCancel)
	} else {
		result.Transaction = tx
	}
	monitoring.TrackCallback(endpointCancel, string(domain.TransactionActionReject))

	s.logger.Info("checkout cancelled",
		"registration_id", reg.ID,
		"session_id", req.SessionID,
		"duplicate", duplicate,
	)

	return result, nil
}

// record appends tx unless the same outcome was already recorded for its
// registration and session. A claim store error does not block the write.
func (s *CallbackService) record(ctx context.Context, tx *domain.Transaction) (bool, error) {
	claimed := false
	if s.claims != nil && tx.ProviderRef != "" {
		ok, err := s.claims.Claim(ctx, tx.RegistrationID, tx.ProviderRef, string(tx.Action))
		switch {
		case err != nil:
			s.logger.Warn("callback claim failed, recording without deduplication",
				"session_id", tx.ProviderRef,
				"error", err,
			)
		case !ok:
			return true, nil
		default:
			claimed = true
		}
	}

	if err := s.ledger.Append(ctx, tx); err != nil {
		if claimed {
			if rerr := s.claims.Release(ctx, tx.RegistrationID, tx.ProviderRef, string(tx.Action)); rerr != nil {
				s.logger.Warn("callback claim release failed", "session_id", tx.ProviderRef, "error", rerr)
			}
		}
		return false, fmt.Errorf("record transaction: %w", err)
	}

	return false, nil
}

// sessionIDParam returns the session id from a redirect, or "" when the
// provider left the template placeholder unsubstituted.
func sessionIDParam(sessionID string) string {
	if sessionID == psp.SessionIDPlaceholder {
		return ""
	}
	return sessionID
}

// auditData combines the provider's payload with the client's fields.
func auditData(provider json.RawMessage, form url.Values) json.RawMessage {
	request := make(map[string]string, len(form))
	for key := range form {
		request[key] = form.Get(key)
	}

	data := struct {
		Provider json.RawMessage   `json:"provider,omitempty"`
		Request  map[string]string `json:"request"`
	}{
		Provider: provider,
		Request:  request,
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dknog/indico-plugin-stripe/internal/money"
	"github.com/dknog/indico-plugin-stripe/internal/monitoring"
	"github.com/dknog/indico-plugin-stripe/internal/psp"
	"github.com/dknog/indico-plugin-stripe/internal/repository"
)

// CheckoutService opens hosted checkout sessions for registrations.
type CheckoutService struct {
	registrationRepo repository.RegistrationRepository
	settings         *SettingsService
	provider         psp.Provider
	urls             URLBuilder
	logger           *slog.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	registrationRepo repository.RegistrationRepository,
	settings *SettingsService,
	provider psp.Provider,
	urls URLBuilder,
	logger *slog.Logger,
) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{
		registrationRepo: registrationRepo,
		settings:         settings,
		provider:         provider,
		urls:             urls,
		logger:           logger,
	}
}

// CreateSessionRequest contains the parameters for starting a checkout.
type CreateSessionRequest struct {
	EventID   int64
	RegFormID int64
	Token     string
}

// PaymentForm is everything the registration page needs to hand the
// registrant over to the hosted checkout.
type PaymentForm struct {
	SessionID         string `json:"session_id"`
	CheckoutURL       string `json:"checkout_url"`
	PublishableKey    string `json:"publishable_key"`
	AmountMinor       int64  `json:"amount"`
	Currency          string `json:"currency"`
	Email             string `json:"email"`
	RequirePostalCode bool   `json:"require_postal_code"`
	OrgName           string `json:"org_name"`
	Description       string `json:"description"`
	MethodName        string `json:"method_name"`
}

// CreateSession opens a checkout session for the registration's price.
func (s *CheckoutService) CreateSession(ctx context.Context, req CreateSessionRequest) (*PaymentForm, error) {
	form, err := s.createSession(ctx, req)
	monitoring.TrackCheckoutSession(checkoutResult(err))
	return form, err
}

func (s *CheckoutService) createSession(ctx context.Context, req CreateSessionRequest) (*PaymentForm, error) {
	reg, err := loadRegistration(ctx, s.registrationRepo, req.EventID, req.RegFormID, req.Token)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Resolve(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, ErrPaymentDisabled
	}
	if settings.SecretKey == "" {
		return nil, ErrMissingCredentials
	}

	if !reg.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	amountMinor, err := money.ToMinor(reg.Price, reg.Currency)
	if err != nil {
		return nil, fmt.Errorf("convert registration price: %w", err)
	}
	currency := money.Normalize(reg.Currency)

	sess, err := s.provider.CreateSession(ctx, psp.CreateSessionRequest{
		APIKey:            settings.SecretKey,
		Reference:         reg.UUID,
		RegistrationID:    reg.ID,
		EventID:           reg.EventID,
		Email:             reg.Email,
		Description:       settings.Description,
		AmountMinor:       amountMinor,
		Currency:          currency,
		SuccessURL:        s.urls.SuccessURL(reg, psp.SessionIDPlaceholder),
		CancelURL:         s.urls.CancelURL(reg, psp.SessionIDPlaceholder),
		RequirePostalCode: settings.RequirePostalCode,
	})
	if err != nil {
		s.logger.Error("checkout session creation failed",
			"registration_id", reg.ID,
			"event_id", reg.EventID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("checkout session created",
		"registration_id", reg.ID,
		"session_id", sess.ID,
		"amount", amountMinor,
		"currency", currency,
	)

	return &PaymentForm{
		SessionID:         sess.ID,
		CheckoutURL:       sess.URL,
		PublishableKey:    settings.PublishableKey,
		AmountMinor:       amountMinor,
		Currency:          currency,
		Email:             reg.Email,
		RequirePostalCode: settings.RequirePostalCode,
		OrgName:           settings.OrgName,
		Description:       settings.Description,
		MethodName:        settings.MethodName,
	}, nil
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, psp.ErrConnection):
		return "provider_unavailable"
	default:
		return "rejected"
	}
}

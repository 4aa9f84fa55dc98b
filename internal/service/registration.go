package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/repository"
)

// loadRegistration resolves a registration token within an event and form.
// Malformed or foreign tokens are reported the same way as missing ones.
func loadRegistration(
	ctx context.Context,
	repo repository.RegistrationRepository,
	eventID, regFormID int64,
	token string,
) (*domain.Registration, error) {
	if eventID <= 0 || regFormID <= 0 {
		return nil, ErrInvalidIdentifier
	}
	if token == "" {
		return nil, fmt.Errorf("%w: token", ErrMissingParameter)
	}
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrUnknownRegistration
	}

	reg, err := repo.GetByUUID(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownRegistration
		}
		return nil, fmt.Errorf("load registration: %w", err)
	}

	if !reg.BelongsTo(eventID, regFormID) {
		return nil, ErrUnknownRegistration
	}

	return reg, nil
}

// URLBuilder builds the absolute registrant-facing URLs.
type URLBuilder struct {
	base string
}

// NewURLBuilder creates a URLBuilder for the given public base URL.
func NewURLBuilder(publicBaseURL string) URLBuilder {
	return URLBuilder{base: strings.TrimRight(publicBaseURL, "/")}
}

// RegistrationPage returns the page a registrant lands on after a callback.
func (b URLBuilder) RegistrationPage(reg *domain.Registration) string {
	return b.base + reg.Locator() + "/?token=" + url.QueryEscape(reg.UUID)
}

// SuccessURL returns the provider redirect target for a completed checkout.
func (b URLBuilder) SuccessURL(reg *domain.Registration, placeholder string) string {
	return b.callbackURL(reg, "success", placeholder)
}

// CancelURL returns the provider redirect target for an abandoned checkout.
func (b URLBuilder) CancelURL(reg *domain.Registration, placeholder string) string {
	return b.callbackURL(reg, "cancel", placeholder)
}

// The placeholder is appended unescaped so the provider can substitute it.
func (b URLBuilder) callbackURL(reg *domain.Registration, outcome, placeholder string) string {
	return fmt.Sprintf("%s%s/payment/response/stripe/%s?token=%s&session_id=%s",
		b.base, reg.Locator(), outcome, url.QueryEscape(reg.UUID), placeholder)
}

package repository

import (
	"context"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
)

// SettingsRepository provides read access to per-event Stripe settings.
type SettingsRepository interface {
	// GetEventSettings retrieves the settings of an event.
	// Returns ErrNotFound if the event never configured Stripe.
	GetEventSettings(ctx context.Context, eventID int64) (*domain.EventSettings, error)
}

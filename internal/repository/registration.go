package repository

import (
	"context"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
)

// RegistrationRepository provides read access to event registrations.
type RegistrationRepository interface {
	// GetByUUID retrieves a registration by its opaque token.
	// Returns ErrNotFound if no registration has the token.
	GetByUUID(ctx context.Context, uuid string) (*domain.Registration, error)
}

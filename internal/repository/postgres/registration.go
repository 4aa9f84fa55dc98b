package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/repository"
)

// RegistrationRepository is a PostgreSQL implementation of repository.RegistrationRepository.
type RegistrationRepository struct {
	q Querier
}

// NewRegistrationRepository creates a new PostgreSQL registration repository.
func NewRegistrationRepository(db *sql.DB) *RegistrationRepository {
	return &RegistrationRepository{q: db}
}

// GetByUUID retrieves a registration by its opaque token.
func (r *RegistrationRepository) GetByUUID(ctx context.Context, uuid string) (*domain.Registration, error) {
	query := `
		SELECT id, uuid, event_id, registration_form_id, email, first_name, last_name, price, currency
		FROM registrations WHERE uuid = $1
	`

	var reg domain.Registration
	err := r.q.QueryRowContext(ctx, query, uuid).Scan(
		&reg.ID,
		&reg.UUID,
		&reg.EventID,
		&reg.RegFormID,
		&reg.Email,
		&reg.FirstName,
		&reg.LastName,
		&reg.Price,
		&reg.Currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &reg, nil
}

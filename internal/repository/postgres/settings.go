package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/repository"
)

// SettingsRepository is a PostgreSQL implementation of repository.SettingsRepository.
type SettingsRepository struct {
	q Querier
}

// NewSettingsRepository creates a new PostgreSQL settings repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{q: db}
}

// GetEventSettings retrieves the Stripe settings of an event.
func (r *SettingsRepository) GetEventSettings(ctx context.Context, eventID int64) (*domain.EventSettings, error) {
	query := `
		SELECT event_id, enabled, use_event_api_keys, method_name, pub_key, sec_key, org_name, description, require_postal_code
		FROM stripe_event_settings WHERE event_id = $1
	`

	var s domain.EventSettings
	var methodName, orgName, description sql.NullString
	err := r.q.QueryRowContext(ctx, query, eventID).Scan(
		&s.EventID,
		&s.Enabled,
		&s.UseEventAPIKeys,
		&methodName,
		&s.PublishableKey,
		&s.SecretKey,
		&orgName,
		&description,
		&s.RequirePostalCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	s.MethodName = nullableString(methodName)
	s.OrgName = nullableString(orgName)
	s.Description = nullableString(description)

	return &s, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

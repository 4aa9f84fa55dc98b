package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// RunMigrations creates the tables used by the service when they are missing.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS registrations (
			id BIGSERIAL PRIMARY KEY,
			uuid UUID NOT NULL UNIQUE,
			event_id BIGINT NOT NULL,
			registration_form_id BIGINT NOT NULL,
			email TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			price NUMERIC(12, 3) NOT NULL DEFAULT 0,
			currency CHAR(3) NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS stripe_event_settings (
			event_id BIGINT PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT FALSE,
			use_event_api_keys BOOLEAN NOT NULL DEFAULT FALSE,
			method_name TEXT,
			pub_key TEXT NOT NULL DEFAULT '',
			sec_key TEXT NOT NULL DEFAULT '',
			org_name TEXT,
			description TEXT,
			require_postal_code BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS payment_transactions (
			id UUID PRIMARY KEY,
			registration_id BIGINT NOT NULL REFERENCES registrations (id),
			amount NUMERIC(12, 3) NOT NULL,
			currency CHAR(3) NOT NULL,
			action TEXT NOT NULL,
			provider TEXT NOT NULL,
			provider_ref TEXT,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS payment_transactions_registration_idx
			ON payment_transactions (registration_id, created_at)`,
	}

	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}

	return nil
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
)

// TransactionLedger is a PostgreSQL implementation of repository.TransactionLedger.
type TransactionLedger struct {
	q Querier
}

// NewTransactionLedger creates a new PostgreSQL transaction ledger.
func NewTransactionLedger(db *sql.DB) *TransactionLedger {
	return &TransactionLedger{q: db}
}

// Append records a new payment transaction.
func (r *TransactionLedger) Append(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO payment_transactions (id, registration_id, amount, currency, action, provider, provider_ref, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var providerRef sql.NullString
	if tx.ProviderRef != "" {
		providerRef = sql.NullString{String: tx.ProviderRef, Valid: true}
	}

	data := []byte(tx.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.RegistrationID,
		tx.Amount,
		tx.Currency,
		tx.Action,
		tx.Provider,
		providerRef,
		data,
		tx.CreatedAt,
	)

	return err
}

// ListByRegistration returns all transactions of a registration, oldest first.
func (r *TransactionLedger) ListByRegistration(ctx context.Context, registrationID int64) ([]*domain.Transaction, error) {
	query := `
		SELECT id, registration_id, amount, currency, action, provider, provider_ref, data, created_at
		FROM payment_transactions WHERE registration_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var providerRef sql.NullString
		var data []byte
		if err := rows.Scan(
			&tx.ID,
			&tx.RegistrationID,
			&tx.Amount,
			&tx.Currency,
			&tx.Action,
			&tx.Provider,
			&providerRef,
			&data,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		tx.ProviderRef = providerRef.String
		tx.Data = data
		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}

package repository

import (
	"context"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
)

// TransactionLedger is the append-only store of payment transactions.
type TransactionLedger interface {
	// Append records a new transaction. Existing entries are never modified.
	Append(ctx context.Context, tx *domain.Transaction) error

	// ListByRegistration returns all transactions of a registration, oldest first.
	ListByRegistration(ctx context.Context, registrationID int64) ([]*domain.Transaction, error)
}

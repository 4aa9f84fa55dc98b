package service

import (
	"context"
	"fmt"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/repository"
)

// TransactionService exposes a registration's ledger to the registrant.
type TransactionService struct {
	registrationRepo repository.RegistrationRepository
	ledger           repository.TransactionLedger
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(registrationRepo repository.RegistrationRepository, ledger repository.TransactionLedger) *TransactionService {
	return &TransactionService{
		registrationRepo: registrationRepo,
		ledger:           ledger,
	}
}

// ListTransactionsRequest identifies the registration whose ledger is read.
type ListTransactionsRequest struct {
	EventID   int64
	RegFormID int64
	Token     string
}

// ListTransactions returns the registration's transactions, oldest first.
func (s *TransactionService) ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]*domain.Transaction, error) {
	reg, err := loadRegistration(ctx, s.registrationRepo, req.EventID, req.RegFormID, req.Token)
	if err != nil {
		return nil, err
	}

	txs, err := s.ledger.ListByRegistration(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

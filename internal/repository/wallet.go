package repository

import (
	"context"

	"github.com/kennyp2233/nilo-back/internal/domain"
)

// WalletRepository defines the persistence operations for wallets and their
// transaction ledger.
type WalletRepository interface {
	// GetByUserID retrieves a user's wallet.
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)

	// Debit subtracts amount from the wallet balance if the balance covers
	// it, returning the new balance. ok is false when funds are insufficient,
	// in which case the balance is untouched.
	Debit(ctx context.Context, walletID string, amount float64) (newBalance float64, ok bool, err error)

	// Credit adds amount to the wallet balance, returning the new balance.
	Credit(ctx context.Context, walletID string, amount float64) (newBalance float64, err error)

	// CreateTransaction appends a ledger entry.
	CreateTransaction(ctx context.Context, txn *domain.WalletTransaction) error

	// ListTransactions retrieves a wallet's ledger entries, newest first.
	ListTransactions(ctx context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error)
}

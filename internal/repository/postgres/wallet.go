package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
)

// WalletRepository is a PostgreSQL implementation of repository.WalletRepository.
type WalletRepository struct {
	q Querier
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{q: db}
}

// NewWalletRepositoryWithTx creates a wallet repository using a transaction.
func NewWalletRepositoryWithTx(tx *sql.Tx) *WalletRepository {
	return &WalletRepository{q: tx}
}

// GetByUserID retrieves a user's wallet.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `SELECT id, user_id, balance FROM wallets WHERE user_id = $1`

	var wallet domain.Wallet
	err := r.q.QueryRowContext(ctx, query, userID).Scan(&wallet.ID, &wallet.UserID, &wallet.Balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &wallet, nil
}

// Debit subtracts amount from the wallet balance if the balance covers it.
// The balance check and the subtraction happen in a single statement so
// concurrent debits cannot drive the balance negative.
func (r *WalletRepository) Debit(ctx context.Context, walletID string, amount float64) (float64, bool, error) {
	query := `
		UPDATE wallets
		SET balance = balance - $1
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`

	var newBalance float64
	err := r.q.QueryRowContext(ctx, query, amount, walletID).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}

	return newBalance, true, nil
}

// Credit adds amount to the wallet balance, returning the new balance.
func (r *WalletRepository) Credit(ctx context.Context, walletID string, amount float64) (float64, error) {
	query := `
		UPDATE wallets
		SET balance = balance + $1
		WHERE id = $2
		RETURNING balance
	`

	var newBalance float64
	err := r.q.QueryRowContext(ctx, query, amount, walletID).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}

	return newBalance, nil
}

// CreateTransaction appends a ledger entry.
func (r *WalletRepository) CreateTransaction(ctx context.Context, txn *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, wallet_id, amount, balance_after, type, status, description, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.WalletID,
		txn.Amount,
		txn.BalanceAfter,
		txn.Type,
		txn.Status,
		txn.Description,
		nullString(txn.ReferenceID),
		txn.CreatedAt,
	)

	return err
}

// ListTransactions retrieves a wallet's ledger entries, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, amount, balance_after, type, status, description, reference_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.WalletTransaction
	for rows.Next() {
		var txn domain.WalletTransaction
		var referenceID sql.NullString

		if err := rows.Scan(
			&txn.ID, &txn.WalletID, &txn.Amount, &txn.BalanceAfter,
			&txn.Type, &txn.Status, &txn.Description, &referenceID, &txn.CreatedAt,
		); err != nil {
			return nil, err
		}

		txn.ReferenceID = referenceID.String
		transactions = append(transactions, &txn)
	}

	return transactions, rows.Err()
}

// Ensure WalletRepository implements repository.WalletRepository.
var _ repository.WalletRepository = (*WalletRepository)(nil)

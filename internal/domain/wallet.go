package domain

import "time"

// TransactionType represents the kind of wallet movement.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeEarning    TransactionType = "TRIP_EARNING"
)

// TransactionStatus represents the status of a wallet transaction.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Wallet represents a user's balance. The balance is always the sum of the
// wallet's transaction amounts; every mutation is paired with exactly one
// transaction row in the same database transaction.
type Wallet struct {
	ID      string
	UserID  string
	Balance float64
}

// WalletTransaction is an immutable ledger entry for a wallet.
type WalletTransaction struct {
	ID           string
	WalletID     string
	Amount       float64 // signed: negative for debits
	BalanceAfter float64
	Type         TransactionType
	Status       TransactionStatus
	Description  string
	ReferenceID  string // optional link to a Payment
	CreatedAt    time.Time
}

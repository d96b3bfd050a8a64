package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
	"github.com/kennyp2233/nilo-back/internal/repository/postgres"
)

const (
	platformFeeRate = 0.20
	taxRate         = 0.12
)

// ErrInvalidPaymentMethod is returned when the settlement method is not supported.
var ErrInvalidPaymentMethod = errors.New("unsupported payment method")

// SettlementService settles completed trips into participant ledgers and
// manages wallet deposits and withdrawals. Every balance mutation is paired
// with exactly one transaction row inside the same database transaction.
type SettlementService struct {
	db            *sql.DB
	tripRepo      repository.TripRepository
	passengerRepo repository.TripPassengerRepository
	driverRepo    repository.DriverRepository
	walletRepo    repository.WalletRepository
	paymentRepo   repository.PaymentRepository
	notifier      *NotificationService
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	passengerRepo repository.TripPassengerRepository,
	driverRepo repository.DriverRepository,
	walletRepo repository.WalletRepository,
	paymentRepo repository.PaymentRepository,
	notifier *NotificationService,
) *SettlementService {
	return &SettlementService{
		db:            db,
		tripRepo:      tripRepo,
		passengerRepo: passengerRepo,
		driverRepo:    driverRepo,
		walletRepo:    walletRepo,
		paymentRepo:   paymentRepo,
		notifier:      notifier,
	}
}

// SettleRequest contains the parameters for settling a trip.
type SettleRequest struct {
	TripID  string
	PayerID string
	Method  domain.PaymentMethod
}

// Settle creates the payment for a completed trip and moves funds. Cash
// settles immediately with no wallet movement. Wallet settlement debits the
// payer, marks the payment completed and credits the driver's wallet (when
// one exists), all in one transaction; a partial failure leaves nothing
// applied. A second settle on the same trip is rejected, never re-applied.
func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (*domain.Payment, error) {
	if req.Method != domain.PaymentMethodCash && req.Method != domain.PaymentMethodWallet {
		return nil, ErrInvalidPaymentMethod
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusCompleted {
		return nil, ErrTripNotCompleted
	}

	booking, err := s.passengerRepo.GetByTripAndPassenger(ctx, req.TripID, req.PayerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotTripPassenger
		}
		return nil, err
	}

	existing, err := s.paymentRepo.GetByTripID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTripAlreadyPaid
	}

	amount := booking.Fare
	if amount <= 0 {
		amount = trip.Fare
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	platformFee := roundMoney(amount * platformFeeRate)
	payment := &domain.Payment{
		ID:           uuid.New().String(),
		TripID:       req.TripID,
		UserID:       req.PayerID,
		Amount:       amount,
		Method:       req.Method,
		Status:       domain.PaymentStatusCompleted,
		PlatformFee:  platformFee,
		DriverAmount: roundMoney(amount - platformFee),
		TaxAmount:    roundMoney(amount * taxRate), // informational, not subtracted
		CreatedAt:    time.Now(),
	}

	if req.Method == domain.PaymentMethodCash {
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrTripAlreadyPaid
			}
			return nil, err
		}
	} else {
		if err := s.settleFromWallet(ctx, trip, payment); err != nil {
			return nil, err
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyPaymentSuccess(ctx, payment)
	}

	return payment, nil
}

// settleFromWallet runs the wallet settlement as one transaction: payment
// row, payer debit with its ledger entry, then the driver credit with its
// ledger entry when the trip has a driver with a wallet.
func (s *SettlementService) settleFromWallet(ctx context.Context, trip *domain.Trip, payment *domain.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txWalletRepo := postgres.NewWalletRepositoryWithTx(tx)

	payment.Status = domain.PaymentStatusPending
	if err = postgres.NewPaymentRepositoryWithTx(tx).Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = ErrTripAlreadyPaid
		}
		return err
	}

	var payerWallet *domain.Wallet
	payerWallet, err = txWalletRepo.GetByUserID(ctx, payment.UserID)
	if err != nil {
		return err
	}

	newBalance, ok, debitErr := txWalletRepo.Debit(ctx, payerWallet.ID, payment.Amount)
	if debitErr != nil {
		err = debitErr
		return err
	}
	if !ok {
		err = ErrInsufficientFunds
		return err
	}

	if err = txWalletRepo.CreateTransaction(ctx, &domain.WalletTransaction{
		ID:           uuid.New().String(),
		WalletID:     payerWallet.ID,
		Amount:       -payment.Amount,
		BalanceAfter: newBalance,
		Type:         domain.TransactionTypePayment,
		Status:       domain.TransactionStatusCompleted,
		Description:  "trip payment",
		ReferenceID:  payment.ID,
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}

	if err = postgres.NewPaymentRepositoryWithTx(tx).UpdateStatus(ctx, payment.ID, domain.PaymentStatusCompleted); err != nil {
		return err
	}

	if trip.DriverID != "" {
		if err = s.creditDriver(ctx, tx, trip.DriverID, payment); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	payment.Status = domain.PaymentStatusCompleted
	return nil
}

// creditDriver pays the driver share into the driver's wallet. A driver
// without a wallet simply earns nothing here; payout then happens off-ledger.
func (s *SettlementService) creditDriver(ctx context.Context, tx *sql.Tx, driverID string, payment *domain.Payment) error {
	driver, err := postgres.NewDriverRepositoryWithTx(tx).GetByID(ctx, driverID)
	if err != nil {
		return err
	}

	txWalletRepo := postgres.NewWalletRepositoryWithTx(tx)

	driverWallet, err := txWalletRepo.GetByUserID(ctx, driver.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	newBalance, err := txWalletRepo.Credit(ctx, driverWallet.ID, payment.DriverAmount)
	if err != nil {
		return err
	}

	return txWalletRepo.CreateTransaction(ctx, &domain.WalletTransaction{
		ID:           uuid.New().String(),
		WalletID:     driverWallet.ID,
		Amount:       payment.DriverAmount,
		BalanceAfter: newBalance,
		Type:         domain.TransactionTypeEarning,
		Status:       domain.TransactionStatusCompleted,
		Description:  "trip earning",
		ReferenceID:  payment.ID,
		CreatedAt:    time.Now(),
	})
}

// GetPayment retrieves a payment by ID.
func (s *SettlementService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return s.paymentRepo.GetByID(ctx, paymentID)
}

// Deposit credits a user's wallet and appends the matching ledger entry.
func (s *SettlementService) Deposit(ctx context.Context, userID string, amount float64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return s.moveFunds(ctx, userID, amount, domain.TransactionTypeDeposit, "wallet deposit")
}

// Withdraw debits a user's wallet and appends the matching ledger entry.
// Fails with ErrInsufficientFunds when the balance does not cover the amount.
func (s *SettlementService) Withdraw(ctx context.Context, userID string, amount float64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return s.moveFunds(ctx, userID, -amount, domain.TransactionTypeWithdrawal, "wallet withdrawal")
}

// moveFunds applies one signed balance change and its ledger entry in a
// single transaction.
func (s *SettlementService) moveFunds(ctx context.Context, userID string, amount float64, txnType domain.TransactionType, description string) (*domain.Wallet, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txWalletRepo := postgres.NewWalletRepositoryWithTx(tx)

	var wallet *domain.Wallet
	wallet, err = txWalletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var newBalance float64
	if amount >= 0 {
		newBalance, err = txWalletRepo.Credit(ctx, wallet.ID, amount)
		if err != nil {
			return nil, err
		}
	} else {
		var ok bool
		newBalance, ok, err = txWalletRepo.Debit(ctx, wallet.ID, -amount)
		if err != nil {
			return nil, err
		}
		if !ok {
			err = ErrInsufficientFunds
			return nil, err
		}
	}

	if err = txWalletRepo.CreateTransaction(ctx, &domain.WalletTransaction{
		ID:           uuid.New().String(),
		WalletID:     wallet.ID,
		Amount:       roundMoney(amount),
		BalanceAfter: newBalance,
		Type:         txnType,
		Status:       domain.TransactionStatusCompleted,
		Description:  description,
		CreatedAt:    time.Now(),
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	wallet.Balance = newBalance
	return wallet, nil
}

// GetWallet retrieves a user's wallet.
func (s *SettlementService) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	return s.walletRepo.GetByUserID(ctx, userID)
}

// GetTransactions retrieves a user's wallet ledger, newest first.
func (s *SettlementService) GetTransactions(ctx context.Context, userID string, limit int) ([]*domain.WalletTransaction, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}

	return s.walletRepo.ListTransactions(ctx, wallet.ID, limit)
}

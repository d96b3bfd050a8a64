package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// ──────────────────────────────────────────────
// 7. SETTLEMENT
// ──────────────────────────────────────────────

type settlementFixture struct {
	tripRepo      *MockTripRepository
	passengerRepo *MockTripPassengerRepository
	driverRepo    *MockDriverRepository
	walletRepo    *MockWalletRepository
	paymentRepo   *MockPaymentRepository
	events        *MockEventPublisher
	service       *service.SettlementService
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		tripRepo:      NewMockTripRepository(),
		passengerRepo: NewMockTripPassengerRepository(),
		driverRepo:    NewMockDriverRepository(),
		walletRepo:    NewMockWalletRepository(),
		paymentRepo:   NewMockPaymentRepository(),
		events:        NewMockEventPublisher(),
	}

	notifier := service.NewNotificationService(f.events)
	f.service = service.NewSettlementService(
		nil, f.tripRepo, f.passengerRepo, f.driverRepo,
		f.walletRepo, f.paymentRepo, notifier,
	)
	return f
}

// payableTrip seeds a COMPLETED trip with a booked passenger owing 10.00.
func (f *settlementFixture) payableTrip() {
	f.tripRepo.AddTrip(&domain.Trip{
		ID:       "trip-1",
		Status:   domain.TripStatusCompleted,
		DriverID: "driver-1",
		Fare:     12,
	})
	f.passengerRepo.AddPassenger(&domain.TripPassenger{
		ID: "tp-1", TripID: "trip-1", PassengerID: "pax-1",
		Status: domain.TripStatusCompleted, Fare: 10,
	})
}

func TestSettle_RejectsUnsupportedMethod(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()
	f.payableTrip()

	_, err := f.service.Settle(context.Background(), service.SettleRequest{
		TripID: "trip-1", PayerID: "pax-1", Method: domain.PaymentMethodCard,
	})
	if !errors.Is(err, service.ErrInvalidPaymentMethod) {
		t.Errorf("expected ErrInvalidPaymentMethod, got %v", err)
	}
}

func TestSettle_RejectsUncompletedTrip(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusInProgress, Fare: 10})
	f.passengerRepo.AddPassenger(&domain.TripPassenger{
		ID: "tp-1", TripID: "trip-1", PassengerID: "pax-1", Status: domain.TripStatusInProgress,
	})

	_, err := f.service.Settle(context.Background(), service.SettleRequest{
		TripID: "trip-1", PayerID: "pax-1", Method: domain.PaymentMethodCash,
	})
	if !errors.Is(err, service.ErrTripNotCompleted) {
		t.Errorf("expected ErrTripNotCompleted, got %v", err)
	}
}

func TestSettle_RejectsNonPassenger(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()
	f.payableTrip()

	_, err := f.service.Settle(context.Background(), service.SettleRequest{
		TripID: "trip-1", PayerID: "stranger", Method: domain.PaymentMethodCash,
	})
	if !errors.Is(err, service.ErrNotTripPassenger) {
		t.Errorf("expected ErrNotTripPassenger, got %v", err)
	}
}

func TestSettle_RejectsAlreadySettledTrip(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()
	f.payableTrip()
	f.paymentRepo.AddPayment(&domain.Payment{
		ID: "payment-0", TripID: "trip-1", UserID: "pax-1",
		Amount: 10, Status: domain.PaymentStatusCompleted,
	})

	_, err := f.service.Settle(context.Background(), service.SettleRequest{
		TripID: "trip-1", PayerID: "pax-1", Method: domain.PaymentMethodCash,
	})
	if !errors.Is(err, service.ErrTripAlreadyPaid) {
		t.Errorf("expected ErrTripAlreadyPaid, got %v", err)
	}
}

func TestSettle_CashComputesFeeSplit(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()
	f.payableTrip()

	payment, err := f.service.Settle(context.Background(), service.SettleRequest{
		TripID: "trip-1", PayerID: "pax-1", Method: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Booking fare wins over the trip fare: 10.00 at 20% fee, 12% tax.
	if payment.Amount != 10 {
		t.Errorf("expected amount 10, got %.2f", payment.Amount)
	}
	if payment.PlatformFee != 2 {
		t.Errorf("expected platform fee 2, got %.2f", payment.PlatformFee)
	}
	if payment.DriverAmount != 8 {
		t.Errorf("expected driver amount 8, got %.2f", payment.DriverAmount)
	}
	if payment.TaxAmount != 1.2 {
		t.Errorf("expected tax amount 1.20, got %.2f", payment.TaxAmount)
	}
	if payment.PlatformFee+payment.DriverAmount != payment.Amount {
		t.Error("expected fee and driver amount to sum to the total")
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected status COMPLETED, got %s", payment.Status)
	}

	// The payer hears about it on their channel.
	if f.events.CountByEvent(service.EventNotification) != 1 {
		t.Error("expected a payment notification")
	}
}

func TestSettle_FallsBackToTripFare(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()
	f.tripRepo.AddTrip(&domain.Trip{
		ID: "trip-1", Status: domain.TripStatusCompleted, DriverID: "driver-1", Fare: 12,
	})
	// Booking without its own fare.
	f.passengerRepo.AddPassenger(&domain.TripPassenger{
		ID: "tp-1", TripID: "trip-1", PassengerID: "pax-1", Status: domain.TripStatusCompleted,
	})

	payment, err := f.service.Settle(context.Background(), service.SettleRequest{
		TripID: "trip-1", PayerID: "pax-1", Method: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Amount != 12 {
		t.Errorf("expected trip fare 12, got %.2f", payment.Amount)
	}
}

func TestSettle_SecondSettleRejectedNotReapplied(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()
	f.payableTrip()

	if _, err := f.service.Settle(context.Background(), service.SettleRequest{
		TripID: "trip-1", PayerID: "pax-1", Method: domain.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.service.Settle(context.Background(), service.SettleRequest{
		TripID: "trip-1", PayerID: "pax-1", Method: domain.PaymentMethodCash,
	})
	if !errors.Is(err, service.ErrTripAlreadyPaid) {
		t.Errorf("expected ErrTripAlreadyPaid on resettle, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 8. WALLET
// ──────────────────────────────────────────────

func TestDeposit_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()

	for _, amount := range []float64{0, -5} {
		_, err := f.service.Deposit(context.Background(), "user-1", amount)
		if !errors.Is(err, service.ErrInvalidAmount) {
			t.Errorf("amount %.2f: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestWithdraw_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()

	_, err := f.service.Withdraw(context.Background(), "user-1", -1)
	if !errors.Is(err, service.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestGetWallet_RequiresUserID(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()

	_, err := f.service.GetWallet(context.Background(), "")
	if !errors.Is(err, service.ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestGetTransactions_NewestFirst(t *testing.T) {
	t.Parallel()

	f := newSettlementFixture()
	f.walletRepo.AddWallet(&domain.Wallet{ID: "wallet-1", UserID: "user-1", Balance: 30})
	for _, txn := range []*domain.WalletTransaction{
		{ID: "txn-1", WalletID: "wallet-1", Amount: 10, BalanceAfter: 10, Type: domain.TransactionTypeDeposit},
		{ID: "txn-2", WalletID: "wallet-1", Amount: 20, BalanceAfter: 30, Type: domain.TransactionTypeDeposit},
	} {
		_ = f.walletRepo.CreateTransaction(context.Background(), txn)
	}

	txns, err := f.service.GetTransactions(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	if txns[0].ID != "txn-2" {
		t.Errorf("expected newest transaction first, got %s", txns[0].ID)
	}

	// The balance matches the sum of the ledger amounts.
	var sum float64
	for _, txn := range txns {
		sum += txn.Amount
	}
	if sum != f.walletRepo.Balance("wallet-1") {
		t.Errorf("expected balance %.2f to equal ledger sum %.2f", f.walletRepo.Balance("wallet-1"), sum)
	}
}

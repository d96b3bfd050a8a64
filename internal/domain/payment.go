package domain

import "time"

// PaymentMethod represents how a trip is paid.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodWallet PaymentMethod = "WALLET"
	PaymentMethodCard   PaymentMethod = "CARD"
)

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment represents the settlement of a completed trip. At most one payment
// exists per trip. PlatformFee + DriverAmount == Amount; TaxAmount is
// informational and not subtracted from the driver payout.
type Payment struct {
	ID           string
	TripID       string
	UserID       string // paying passenger
	Amount       float64
	Method       PaymentMethod
	Status       PaymentStatus
	PlatformFee  float64
	DriverAmount float64
	TaxAmount    float64
	CreatedAt    time.Time
}

package repository

import (
	"context"

	"github.com/kennyp2233/nilo-back/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicate if a payment
	// already exists for the trip.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByTripID retrieves the payment for a trip.
	// Returns nil if no payment exists.
	GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error)

	// UpdateStatus updates the status of a payment.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
}

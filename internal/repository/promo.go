package repository

import (
	"context"

	"github.com/kennyp2233/nilo-back/internal/domain"
)

// PromoRepository defines the persistence operations for promo codes.
type PromoRepository interface {
	// Create persists a new promo code. Returns ErrDuplicate if the code is
	// already in use.
	Create(ctx context.Context, promo *domain.PromoCode) error

	// GetByCode retrieves a promo code by its code.
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)

	// List retrieves all promo codes ordered by end date.
	List(ctx context.Context) ([]*domain.PromoCode, error)

	// IncrementUses bumps the usage counter if the usage limit has not been
	// reached. Returns false when the limit is exhausted.
	IncrementUses(ctx context.Context, id string) (bool, error)
}

// TariffRepository defines the lookup of active pricing configuration.
type TariffRepository interface {
	// GetActive retrieves the active tariff for a trip type and vehicle
	// category. Returns nil if none is configured.
	GetActive(ctx context.Context, tripType domain.TripType, vehicleCategory string) (*domain.Tariff, error)
}

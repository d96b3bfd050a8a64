package repository

import (
	"context"

	"github.com/kennyp2233/nilo-back/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByUserID retrieves the driver linked to a user account.
	GetByUserID(ctx context.Context, userID string) (*domain.Driver, error)

	// MarkUnavailable flips is_available to false for a driver that is
	// currently available and verified. Returns false if the driver no longer
	// satisfies both conditions.
	MarkUnavailable(ctx context.Context, id string) (bool, error)

	// SetAvailability sets is_available unconditionally.
	SetAvailability(ctx context.Context, id string, available bool) error

	// UpdateLocation stores the driver's last reported position.
	UpdateLocation(ctx context.Context, id string, lat, lng float64) error

	// GetVehicleByDriverID retrieves the driver's registered vehicle.
	// Returns nil if the driver has no vehicle.
	GetVehicleByDriverID(ctx context.Context, driverID string) (*domain.Vehicle, error)
}

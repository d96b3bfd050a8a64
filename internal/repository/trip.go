package repository

import (
	"context"

	"github.com/kennyp2233/nilo-back/internal/domain"
)

// TripRepository defines the persistence operations for trips.
//
// Status-changing methods are compare-and-swap style: they apply the change
// only if the row is still in the expected state and report whether a row was
// updated. Callers run them inside a transaction together with the dependent
// writes so the whole unit commits or none of it does.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetByIDForUpdate retrieves a trip and row-locks it until the
	// surrounding transaction ends. Concurrent lockers of the same trip
	// block until the holder commits or rolls back.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error)

	// ListByDriverID retrieves trips assigned to a driver, newest first.
	ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error)

	// GetActiveByDriverID retrieves the driver's current non-terminal trip.
	// Returns nil if the driver has no active trip.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error)

	// UpdateStatusFrom moves the trip from one status to another, stamping
	// started_at/ended_at as appropriate. Returns false if the trip was no
	// longer in the expected status.
	UpdateStatusFrom(ctx context.Context, id string, from, to domain.TripStatus) (bool, error)

	// AssignDriver sets the driver and moves a SEARCHING trip to CONFIRMED.
	// Returns false if the trip was no longer SEARCHING.
	AssignDriver(ctx context.Context, id, driverID string) (bool, error)

	// Cancel moves the trip from the expected status to CANCELLED with the
	// given reason. Returns false if the trip was no longer in that status.
	Cancel(ctx context.Context, id string, from domain.TripStatus, reason string) (bool, error)
}

// TripPassengerRepository defines the persistence operations for trip
// passenger bookings.
type TripPassengerRepository interface {
	// Create persists a new trip passenger.
	Create(ctx context.Context, tp *domain.TripPassenger) error

	// ListByTripID retrieves all passengers of a trip.
	ListByTripID(ctx context.Context, tripID string) ([]*domain.TripPassenger, error)

	// ListByPassengerID retrieves all bookings of a passenger, newest first.
	ListByPassengerID(ctx context.Context, passengerID string) ([]*domain.TripPassenger, error)

	// GetByTripAndPassenger retrieves one passenger's booking on a trip.
	GetByTripAndPassenger(ctx context.Context, tripID, passengerID string) (*domain.TripPassenger, error)

	// UpdateStatusByTrip cascades a status to every passenger of a trip.
	UpdateStatusByTrip(ctx context.Context, tripID string, status domain.TripStatus) error

	// UpdateStatus sets one passenger's booking status. Returns false if the
	// booking was already in that status.
	UpdateStatus(ctx context.Context, tripID, passengerID string, status domain.TripStatus) (bool, error)

	// CountActiveByTrip counts the passengers of a trip that have not
	// cancelled.
	CountActiveByTrip(ctx context.Context, tripID string) (int, error)
}

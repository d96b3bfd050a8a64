package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
)

const tripColumns = `
	id, type, status, driver_id,
	start_lat, start_lng, start_address,
	end_lat, end_lng, end_address,
	distance_km, duration_min, fare, estimated_fare, route_polyline,
	scheduled_at, started_at, ended_at, cancellation_reason,
	origin, destination, available_seats, price_per_seat, created_at
`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.Type,
		trip.Status,
		nullString(trip.DriverID),
		trip.StartLocation.Latitude,
		trip.StartLocation.Longitude,
		nullString(trip.StartLocation.Address),
		trip.EndLocation.Latitude,
		trip.EndLocation.Longitude,
		nullString(trip.EndLocation.Address),
		trip.Distance,
		trip.Duration,
		trip.Fare,
		trip.EstimatedFare,
		nullString(trip.RoutePolyline),
		nullTime(trip.ScheduledAt),
		nullTime(trip.StartedAt),
		nullTime(trip.EndedAt),
		nullString(trip.CancellationReason),
		nullString(trip.Origin),
		nullString(trip.Destination),
		trip.AvailableSeats,
		trip.PricePerSeat,
		trip.CreatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// GetByIDForUpdate retrieves a trip with SELECT ... FOR UPDATE. The row lock
// serializes concurrent writers of the same trip and is held until the
// surrounding transaction ends.
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// ListByDriverID retrieves trips assigned to a driver, newest first.
func (r *TripRepository) ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE driver_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// GetActiveByDriverID retrieves the driver's current non-terminal trip.
// Returns nil if the driver has no active trip.
func (r *TripRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE driver_id = $1 AND status NOT IN ($2, $3)
		LIMIT 1
	`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, driverID, domain.TripStatusCompleted, domain.TripStatusCancelled))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return trip, nil
}

// UpdateStatusFrom moves the trip from one status to another, stamping
// started_at/ended_at as appropriate. Returns false if the trip was no longer
// in the expected status.
func (r *TripRepository) UpdateStatusFrom(ctx context.Context, id string, from, to domain.TripStatus) (bool, error) {
	query := `
		UPDATE trips
		SET status = $1,
		    started_at = CASE WHEN $1 = 'IN_PROGRESS' THEN NOW() ELSE started_at END,
		    ended_at   = CASE WHEN $1 = 'COMPLETED' THEN NOW() ELSE ended_at END
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// AssignDriver sets the driver and moves a SEARCHING trip to CONFIRMED.
// Returns false if the trip was no longer SEARCHING.
func (r *TripRepository) AssignDriver(ctx context.Context, id, driverID string) (bool, error) {
	query := `
		UPDATE trips
		SET driver_id = $1, status = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query, driverID, domain.TripStatusConfirmed, id, domain.TripStatusSearching)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// Cancel moves the trip from the expected status to CANCELLED with the given
// reason. Returns false if the trip was no longer in that status.
func (r *TripRepository) Cancel(ctx context.Context, id string, from domain.TripStatus, reason string) (bool, error) {
	query := `
		UPDATE trips
		SET status = $1, cancellation_reason = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.TripStatusCancelled, reason, id, from,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(s scanner) (*domain.Trip, error) {
	var trip domain.Trip
	var driverID, startAddress, endAddress, routePolyline sql.NullString
	var cancellationReason, origin, destination sql.NullString
	var scheduledAt, startedAt, endedAt sql.NullTime

	err := s.Scan(
		&trip.ID,
		&trip.Type,
		&trip.Status,
		&driverID,
		&trip.StartLocation.Latitude,
		&trip.StartLocation.Longitude,
		&startAddress,
		&trip.EndLocation.Latitude,
		&trip.EndLocation.Longitude,
		&endAddress,
		&trip.Distance,
		&trip.Duration,
		&trip.Fare,
		&trip.EstimatedFare,
		&routePolyline,
		&scheduledAt,
		&startedAt,
		&endedAt,
		&cancellationReason,
		&origin,
		&destination,
		&trip.AvailableSeats,
		&trip.PricePerSeat,
		&trip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	trip.DriverID = driverID.String
	trip.StartLocation.Address = startAddress.String
	trip.EndLocation.Address = endAddress.String
	trip.RoutePolyline = routePolyline.String
	trip.CancellationReason = cancellationReason.String
	trip.Origin = origin.String
	trip.Destination = destination.String
	if scheduledAt.Valid {
		trip.ScheduledAt = scheduledAt.Time
	}
	if startedAt.Valid {
		trip.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		trip.EndedAt = endedAt.Time
	}

	return &trip, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)

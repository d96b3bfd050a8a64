package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
)

// TripPassengerRepository is a PostgreSQL implementation of
// repository.TripPassengerRepository.
type TripPassengerRepository struct {
	q Querier
}

// NewTripPassengerRepository creates a new PostgreSQL trip passenger repository.
func NewTripPassengerRepository(db *sql.DB) *TripPassengerRepository {
	return &TripPassengerRepository{q: db}
}

// NewTripPassengerRepositoryWithTx creates a trip passenger repository using a transaction.
func NewTripPassengerRepositoryWithTx(tx *sql.Tx) *TripPassengerRepository {
	return &TripPassengerRepository{q: tx}
}

// Create persists a new trip passenger.
func (r *TripPassengerRepository) Create(ctx context.Context, tp *domain.TripPassenger) error {
	query := `
		INSERT INTO trip_passengers (id, trip_id, passenger_id, status, fare, booked_seats, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		tp.ID,
		tp.TripID,
		tp.PassengerID,
		tp.Status,
		tp.Fare,
		tp.BookedSeats,
		tp.CreatedAt,
	)

	return err
}

// ListByTripID retrieves all passengers of a trip.
func (r *TripPassengerRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.TripPassenger, error) {
	query := `
		SELECT id, trip_id, passenger_id, status, fare, booked_seats, created_at
		FROM trip_passengers WHERE trip_id = $1
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTripPassengers(rows)
}

// ListByPassengerID retrieves all bookings of a passenger, newest first.
func (r *TripPassengerRepository) ListByPassengerID(ctx context.Context, passengerID string) ([]*domain.TripPassenger, error) {
	query := `
		SELECT id, trip_id, passenger_id, status, fare, booked_seats, created_at
		FROM trip_passengers WHERE passenger_id = $1 ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, passengerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTripPassengers(rows)
}

// GetByTripAndPassenger retrieves one passenger's booking on a trip.
func (r *TripPassengerRepository) GetByTripAndPassenger(ctx context.Context, tripID, passengerID string) (*domain.TripPassenger, error) {
	query := `
		SELECT id, trip_id, passenger_id, status, fare, booked_seats, created_at
		FROM trip_passengers WHERE trip_id = $1 AND passenger_id = $2
	`

	var tp domain.TripPassenger
	err := r.q.QueryRowContext(ctx, query, tripID, passengerID).Scan(
		&tp.ID, &tp.TripID, &tp.PassengerID, &tp.Status, &tp.Fare, &tp.BookedSeats, &tp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &tp, nil
}

// UpdateStatusByTrip cascades a status to every passenger of a trip.
func (r *TripPassengerRepository) UpdateStatusByTrip(ctx context.Context, tripID string, status domain.TripStatus) error {
	query := `UPDATE trip_passengers SET status = $1 WHERE trip_id = $2`

	_, err := r.q.ExecContext(ctx, query, status, tripID)
	return err
}

// UpdateStatus sets one passenger's booking status. Returns false if the
// booking was already in that status.
func (r *TripPassengerRepository) UpdateStatus(ctx context.Context, tripID, passengerID string, status domain.TripStatus) (bool, error) {
	query := `
		UPDATE trip_passengers
		SET status = $1
		WHERE trip_id = $2 AND passenger_id = $3 AND status != $1
	`

	result, err := r.q.ExecContext(ctx, query, status, tripID, passengerID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// CountActiveByTrip counts the passengers of a trip that have not cancelled.
func (r *TripPassengerRepository) CountActiveByTrip(ctx context.Context, tripID string) (int, error) {
	query := `SELECT COUNT(*) FROM trip_passengers WHERE trip_id = $1 AND status != $2`

	var count int
	err := r.q.QueryRowContext(ctx, query, tripID, domain.TripStatusCancelled).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func scanTripPassengers(rows *sql.Rows) ([]*domain.TripPassenger, error) {
	var passengers []*domain.TripPassenger
	for rows.Next() {
		var tp domain.TripPassenger
		if err := rows.Scan(
			&tp.ID, &tp.TripID, &tp.PassengerID, &tp.Status, &tp.Fare, &tp.BookedSeats, &tp.CreatedAt,
		); err != nil {
			return nil, err
		}
		passengers = append(passengers, &tp)
	}

	return passengers, rows.Err()
}

// Ensure TripPassengerRepository implements repository.TripPassengerRepository.
var _ repository.TripPassengerRepository = (*TripPassengerRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
)

const driverColumns = `
	d.id, d.user_id, u.first_name, u.last_name, u.phone,
	d.is_available, d.verification_status, d.current_lat, d.current_lng
`

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `
		SELECT ` + driverColumns + `
		FROM drivers d JOIN users u ON u.id = d.user_id
		WHERE d.id = $1
	`

	return r.getOne(ctx, query, id)
}

// GetByUserID retrieves the driver linked to a user account.
func (r *DriverRepository) GetByUserID(ctx context.Context, userID string) (*domain.Driver, error) {
	query := `
		SELECT ` + driverColumns + `
		FROM drivers d JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1
	`

	return r.getOne(ctx, query, userID)
}

func (r *DriverRepository) getOne(ctx context.Context, query string, arg any) (*domain.Driver, error) {
	var driver domain.Driver
	var lat, lng sql.NullFloat64

	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&driver.ID,
		&driver.UserID,
		&driver.FirstName,
		&driver.LastName,
		&driver.Phone,
		&driver.IsAvailable,
		&driver.VerificationStatus,
		&lat,
		&lng,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	driver.CurrentLat = lat.Float64
	driver.CurrentLng = lng.Float64

	return &driver, nil
}

// MarkUnavailable flips is_available to false for a driver that is currently
// available and verified. Returns false if the driver no longer satisfies
// both conditions.
func (r *DriverRepository) MarkUnavailable(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE drivers
		SET is_available = FALSE
		WHERE id = $1 AND is_available = TRUE AND verification_status = $2
	`

	result, err := r.q.ExecContext(ctx, query, id, domain.VerificationStatusVerified)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// SetAvailability sets is_available unconditionally.
func (r *DriverRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	query := `UPDATE drivers SET is_available = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, available, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLocation stores the driver's last reported position.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	query := `UPDATE drivers SET current_lat = $1, current_lng = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, lat, lng, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetVehicleByDriverID retrieves the driver's registered vehicle.
// Returns nil if the driver has no vehicle.
func (r *DriverRepository) GetVehicleByDriverID(ctx context.Context, driverID string) (*domain.Vehicle, error) {
	query := `
		SELECT id, driver_id, plate, brand, model, category
		FROM vehicles WHERE driver_id = $1
	`

	var vehicle domain.Vehicle
	err := r.q.QueryRowContext(ctx, query, driverID).Scan(
		&vehicle.ID, &vehicle.DriverID, &vehicle.Plate, &vehicle.Brand, &vehicle.Model, &vehicle.Category,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &vehicle, nil
}

// Ensure DriverRepository implements repository.DriverRepository.
var _ repository.DriverRepository = (*DriverRepository)(nil)

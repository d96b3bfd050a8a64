package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Create persists a new payment. The trip_id column carries a unique
// constraint, so a concurrent duplicate settlement surfaces as ErrDuplicate.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, trip_id, user_id, amount, method, status, platform_fee, driver_amount, tax_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.TripID,
		payment.UserID,
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.PlatformFee,
		payment.DriverAmount,
		payment.TaxAmount,
		payment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `
		SELECT id, trip_id, user_id, amount, method, status, platform_fee, driver_amount, tax_amount, created_at
		FROM payments WHERE id = $1
	`

	payment, err := r.scanOne(ctx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// GetByTripID retrieves the payment for a trip.
// Returns nil if no payment exists.
func (r *PaymentRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error) {
	query := `
		SELECT id, trip_id, user_id, amount, method, status, platform_fee, driver_amount, tax_amount, created_at
		FROM payments WHERE trip_id = $1
	`

	payment, err := r.scanOne(ctx, query, tripID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return payment, nil
}

// UpdateStatus updates the status of a payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
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

func (r *PaymentRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&payment.ID,
		&payment.TripID,
		&payment.UserID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&payment.PlatformFee,
		&payment.DriverAmount,
		&payment.TaxAmount,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
)

// PromoRepository is a PostgreSQL implementation of repository.PromoRepository.
type PromoRepository struct {
	q Querier
}

// NewPromoRepository creates a new PostgreSQL promo repository.
func NewPromoRepository(db *sql.DB) *PromoRepository {
	return &PromoRepository{q: db}
}

// NewPromoRepositoryWithTx creates a promo repository using a transaction.
func NewPromoRepositoryWithTx(tx *sql.Tx) *PromoRepository {
	return &PromoRepository{q: tx}
}

const promoColumns = `
	id, code, description, discount_amount, discount_percent, max_discount,
	start_date, end_date, is_active, usage_limit, current_uses, min_trip_amount,
	applicable_trip_types
`

// Create persists a new promo code.
func (r *PromoRepository) Create(ctx context.Context, promo *domain.PromoCode) error {
	query := `
		INSERT INTO promo_codes (` + promoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	tripTypes := make([]string, len(promo.ApplicableTripTypes))
	for i, t := range promo.ApplicableTripTypes {
		tripTypes[i] = string(t)
	}

	_, err := r.q.ExecContext(ctx, query,
		promo.ID,
		promo.Code,
		promo.Description,
		promo.DiscountAmount,
		promo.DiscountPercent,
		promo.MaxDiscount,
		promo.StartDate,
		promo.EndDate,
		promo.IsActive,
		promo.UsageLimit,
		promo.CurrentUses,
		promo.MinTripAmount,
		pq.Array(tripTypes),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// GetByCode retrieves a promo code by its code.
func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1`

	promo, err := r.scanOne(r.q.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return promo, nil
}

// List retrieves all promo codes ordered by end date.
func (r *PromoRepository) List(ctx context.Context) ([]*domain.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY end_date DESC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promos []*domain.PromoCode
	for rows.Next() {
		promo, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, promo)
	}

	return promos, rows.Err()
}

// IncrementUses bumps the usage counter if the usage limit has not been
// reached. The condition and the increment are a single statement so
// concurrent applications cannot exceed the limit.
func (r *PromoRepository) IncrementUses(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE promo_codes
		SET current_uses = current_uses + 1
		WHERE id = $1 AND (usage_limit = 0 OR current_uses < usage_limit)
	`

	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

func (r *PromoRepository) scanOne(s scanner) (*domain.PromoCode, error) {
	var promo domain.PromoCode
	var tripTypes pq.StringArray

	err := s.Scan(
		&promo.ID,
		&promo.Code,
		&promo.Description,
		&promo.DiscountAmount,
		&promo.DiscountPercent,
		&promo.MaxDiscount,
		&promo.StartDate,
		&promo.EndDate,
		&promo.IsActive,
		&promo.UsageLimit,
		&promo.CurrentUses,
		&promo.MinTripAmount,
		&tripTypes,
	)
	if err != nil {
		return nil, err
	}

	promo.ApplicableTripTypes = make([]domain.TripType, len(tripTypes))
	for i, t := range tripTypes {
		promo.ApplicableTripTypes[i] = domain.TripType(t)
	}

	return &promo, nil
}

// Ensure PromoRepository implements repository.PromoRepository.
var _ repository.PromoRepository = (*PromoRepository)(nil)

// TariffRepository is a PostgreSQL implementation of repository.TariffRepository.
type TariffRepository struct {
	q Querier
}

// NewTariffRepository creates a new PostgreSQL tariff repository.
func NewTariffRepository(db *sql.DB) *TariffRepository {
	return &TariffRepository{q: db}
}

// GetActive retrieves the active tariff for a trip type and vehicle category.
// Returns nil if none is configured.
func (r *TariffRepository) GetActive(ctx context.Context, tripType domain.TripType, vehicleCategory string) (*domain.Tariff, error) {
	query := `
		SELECT id, base_price, price_per_km, price_per_minute, minimum_price,
		       COALESCE(surge_multiplier, 0), apply_trip_type, vehicle_category, is_active
		FROM tariff_configs
		WHERE is_active = TRUE AND apply_trip_type = $1 AND vehicle_category = $2
		LIMIT 1
	`

	var tariff domain.Tariff
	err := r.q.QueryRowContext(ctx, query, tripType, vehicleCategory).Scan(
		&tariff.ID,
		&tariff.BasePrice,
		&tariff.PricePerKm,
		&tariff.PricePerMinute,
		&tariff.MinimumPrice,
		&tariff.SurgeMultiplier,
		&tariff.ApplyTripType,
		&tariff.VehicleCategory,
		&tariff.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &tariff, nil
}

// Ensure TariffRepository implements repository.TariffRepository.
var _ repository.TariffRepository = (*TariffRepository)(nil)

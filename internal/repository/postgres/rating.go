package postgres

import (
	"context"
	"database/sql"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
)

// RatingRepository is a PostgreSQL implementation of repository.RatingRepository.
type RatingRepository struct {
	q Querier
}

// NewRatingRepository creates a new PostgreSQL rating repository.
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{q: db}
}

// Create persists a new rating. The (trip_id, from_user_id, to_user_id)
// triple carries a unique constraint.
func (r *RatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	query := `
		INSERT INTO ratings (id, trip_id, from_user_id, to_user_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		rating.ID,
		rating.TripID,
		rating.FromUserID,
		rating.ToUserID,
		rating.Score,
		nullString(rating.Comment),
		rating.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// Exists reports whether a rating already exists for the direction.
func (r *RatingRepository) Exists(ctx context.Context, tripID, fromUserID, toUserID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ratings
			WHERE trip_id = $1 AND from_user_id = $2 AND to_user_id = $3
		)
	`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, tripID, fromUserID, toUserID).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// Ensure RatingRepository implements repository.RatingRepository.
var _ repository.RatingRepository = (*RatingRepository)(nil)

package repository

import (
	"context"

	"github.com/kennyp2233/nilo-back/internal/domain"
)

// RatingRepository defines the persistence operations for ratings.
type RatingRepository interface {
	// Create persists a new rating. Returns ErrDuplicate if the same user
	// already rated the same target for this trip.
	Create(ctx context.Context, rating *domain.Rating) error

	// Exists reports whether a rating already exists for the direction.
	Exists(ctx context.Context, tripID, fromUserID, toUserID string) (bool, error)
}

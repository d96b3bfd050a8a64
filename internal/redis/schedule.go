package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const searchDeadlineKey = "trips:search_deadlines"

// DeadlineStore keeps the search deadlines of SEARCHING trips in a Redis
// sorted set scored by Unix time. Storing the schedule outside the process
// that created the trip lets any instance fire the auto-cancel, and a
// restart does not lose armed deadlines.
type DeadlineStore struct {
	client *redis.Client
}

// NewDeadlineStore creates a new DeadlineStore.
func NewDeadlineStore(client *redis.Client) *DeadlineStore {
	return &DeadlineStore{client: client}
}

// Arm schedules the search deadline for a trip.
func (s *DeadlineStore) Arm(ctx context.Context, tripID string, at time.Time) error {
	return s.client.ZAdd(ctx, searchDeadlineKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: tripID,
	}).Err()
}

// Due returns the trip IDs whose deadline has passed.
func (s *DeadlineStore) Due(ctx context.Context, now time.Time) ([]string, error) {
	return s.client.ZRangeByScore(ctx, searchDeadlineKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
}

// Remove clears the deadline for a trip.
func (s *DeadlineStore) Remove(ctx context.Context, tripID string) error {
	return s.client.ZRem(ctx, searchDeadlineKey, tripID).Err()
}

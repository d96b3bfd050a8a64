package domain

import "time"

// Rating represents one user's rating of another for a trip. Immutable once
// created; at most one rating per direction per trip.
type Rating struct {
	ID         string
	TripID     string
	FromUserID string
	ToUserID   string
	Score      int
	Comment    string
	CreatedAt  time.Time
}

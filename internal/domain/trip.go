package domain

import "time"

// TripType represents the kind of trip being requested.
type TripType string

const (
	TripTypeOnDemand  TripType = "ON_DEMAND"
	TripTypeIntercity TripType = "INTERCITY"
)

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusSearching  TripStatus = "SEARCHING"
	TripStatusScheduled  TripStatus = "SCHEDULED"
	TripStatusConfirmed  TripStatus = "CONFIRMED"
	TripStatusInProgress TripStatus = "IN_PROGRESS"
	TripStatusCompleted  TripStatus = "COMPLETED"
	TripStatusCancelled  TripStatus = "CANCELLED"
)

// IsTerminal reports whether the status allows no further transitions.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// Location is a coordinate pair with an optional resolved address.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Trip represents one ride request from creation to terminal status.
type Trip struct {
	ID                 string
	Type               TripType
	Status             TripStatus
	DriverID           string // empty until dispatch assigns a driver
	StartLocation      Location
	EndLocation        Location
	Distance           float64 // kilometers
	Duration           int     // minutes
	Fare               float64
	EstimatedFare      float64
	RoutePolyline      string
	ScheduledAt        time.Time
	StartedAt          time.Time
	EndedAt            time.Time
	CancellationReason string

	// Intercity-only fields.
	Origin         string
	Destination    string
	AvailableSeats int
	PricePerSeat   float64

	CreatedAt time.Time
}

// TripPassenger binds one passenger to one trip. Its status mirrors the
// trip status for driver-initiated transitions but lags it while individual
// passengers cancel.
type TripPassenger struct {
	ID          string
	TripID      string
	PassengerID string
	Status      TripStatus
	Fare        float64
	BookedSeats int
	CreatedAt   time.Time
}

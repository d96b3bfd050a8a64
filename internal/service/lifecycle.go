package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
	"github.com/kennyp2233/nilo-back/internal/repository/postgres"
)

// Route is the routing provider's answer for a coordinate pair.
type Route struct {
	DistanceMeters  int
	DurationSeconds int
	Geometry        string
}

// RouteProvider resolves the route between two coordinates. Lookups happen
// before any trip transaction begins, never inside one.
type RouteProvider interface {
	Route(ctx context.Context, start, end domain.Location) (*Route, error)
}

// Actor distinguishes who requests a status transition. The allowed
// transitions differ per actor.
type Actor string

const (
	ActorDriver    Actor = "driver"
	ActorPassenger Actor = "passenger"
)

// Transition tables per actor. Any pair not listed is rejected.
// SEARCHING trips reach CONFIRMED only through dispatch acceptance.
var driverTransitions = map[domain.TripStatus]map[domain.TripStatus]bool{
	domain.TripStatusScheduled: {
		domain.TripStatusConfirmed: true,
		domain.TripStatusCancelled: true,
	},
	domain.TripStatusConfirmed: {
		domain.TripStatusInProgress: true,
		domain.TripStatusCancelled:  true,
	},
	domain.TripStatusInProgress: {
		domain.TripStatusCompleted: true,
		domain.TripStatusCancelled: true,
	},
}

var passengerTransitions = map[domain.TripStatus]map[domain.TripStatus]bool{
	domain.TripStatusSearching: {domain.TripStatusCancelled: true},
	domain.TripStatusScheduled: {domain.TripStatusCancelled: true},
	domain.TripStatusConfirmed: {domain.TripStatusCancelled: true},
}

// CanTransition reports whether the actor may move a trip between the
// given statuses.
func CanTransition(actor Actor, from, to domain.TripStatus) bool {
	table := driverTransitions
	if actor == ActorPassenger {
		table = passengerTransitions
	}
	return table[from][to]
}

// TripStatusEvent is the payload broadcast to a trip room on every
// successful transition.
type TripStatusEvent struct {
	TripID string            `json:"trip_id"`
	Status domain.TripStatus `json:"status"`
	Reason string            `json:"reason,omitempty"`
}

// TripService owns trip creation, status transitions and ratings. Every
// state-changing operation is one database transaction scoped to the trip.
type TripService struct {
	db            *sql.DB
	tripRepo      repository.TripRepository
	passengerRepo repository.TripPassengerRepository
	driverRepo    repository.DriverRepository
	ratingRepo    repository.RatingRepository
	fareService   *FareService
	routes        RouteProvider
	deadlines     DeadlineStore
	notifier      *NotificationService
	events        EventPublisher
	searchTimeout time.Duration
}

// NewTripService creates a new TripService.
func NewTripService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	passengerRepo repository.TripPassengerRepository,
	driverRepo repository.DriverRepository,
	ratingRepo repository.RatingRepository,
	fareService *FareService,
	routes RouteProvider,
	deadlines DeadlineStore,
	notifier *NotificationService,
	events EventPublisher,
	searchTimeout time.Duration,
) *TripService {
	if searchTimeout <= 0 {
		searchTimeout = DefaultSearchTimeout
	}
	return &TripService{
		db:            db,
		tripRepo:      tripRepo,
		passengerRepo: passengerRepo,
		driverRepo:    driverRepo,
		ratingRepo:    ratingRepo,
		fareService:   fareService,
		routes:        routes,
		deadlines:     deadlines,
		notifier:      notifier,
		events:        events,
		searchTimeout: searchTimeout,
	}
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	PassengerID     string
	Type            domain.TripType
	StartLocation   domain.Location
	EndLocation     domain.Location
	VehicleCategory string
	ScheduledAt     time.Time // optional; zero means immediate

	// Intercity-only fields.
	Origin         string
	Destination    string
	AvailableSeats int
	PricePerSeat   float64
	Seats          int // seats booked by the requester, defaults to 1
}

// CreateTripResponse contains the created trip and the requester's booking.
type CreateTripResponse struct {
	Trip      *domain.Trip
	Passenger *domain.TripPassenger
}

// CreateTrip prices and creates a trip with the requesting passenger booked
// on it. ON_DEMAND trips start SEARCHING (or SCHEDULED when a future time is
// given) and arm the search deadline; INTERCITY trips start SCHEDULED with a
// fare derived from the published price per seat.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*CreateTripResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	// Route lookup happens before the transaction begins.
	route, err := s.routes.Route(ctx, req.StartLocation, req.EndLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}

	distanceKm := roundMoney(float64(route.DistanceMeters) / 1000)
	durationMin := int(math.Ceil(float64(route.DurationSeconds) / 60))

	now := time.Now()
	trip := &domain.Trip{
		ID:            uuid.New().String(),
		Type:          req.Type,
		StartLocation: req.StartLocation,
		EndLocation:   req.EndLocation,
		Distance:      distanceKm,
		Duration:      durationMin,
		RoutePolyline: route.Geometry,
		ScheduledAt:   req.ScheduledAt,
		CreatedAt:     now,
	}

	seats := req.Seats
	if seats <= 0 {
		seats = 1
	}

	var passengerFare float64
	switch req.Type {
	case domain.TripTypeIntercity:
		trip.Status = domain.TripStatusScheduled
		trip.Origin = req.Origin
		trip.Destination = req.Destination
		trip.AvailableSeats = req.AvailableSeats
		trip.PricePerSeat = req.PricePerSeat
		trip.EstimatedFare = IntercityFare(req.PricePerSeat, req.AvailableSeats)
		trip.Fare = trip.EstimatedFare
		passengerFare = IntercityFare(req.PricePerSeat, seats)
	default:
		// Absence of an active tariff is a hard rejection for ON_DEMAND.
		fare, _, err := s.fareService.EstimateFare(ctx, req.Type, req.VehicleCategory, distanceKm, durationMin)
		if err != nil {
			return nil, err
		}
		trip.Status = domain.TripStatusSearching
		if !req.ScheduledAt.IsZero() {
			trip.Status = domain.TripStatusScheduled
		}
		trip.EstimatedFare = fare
		trip.Fare = fare
		passengerFare = fare
	}

	passenger := &domain.TripPassenger{
		ID:          uuid.New().String(),
		TripID:      trip.ID,
		PassengerID: req.PassengerID,
		Status:      trip.Status,
		Fare:        passengerFare,
		BookedSeats: seats,
		CreatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = postgres.NewTripRepositoryWithTx(tx).Create(ctx, trip); err != nil {
		return nil, err
	}

	if err = postgres.NewTripPassengerRepositoryWithTx(tx).Create(ctx, passenger); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if trip.Status == domain.TripStatusSearching && s.deadlines != nil {
		if armErr := s.deadlines.Arm(ctx, trip.ID, now.Add(s.searchTimeout)); armErr != nil {
			log.Printf("failed to arm search deadline for trip %s: %v", trip.ID, armErr)
		}
	}

	return &CreateTripResponse{Trip: trip, Passenger: passenger}, nil
}

func (s *TripService) validateCreateRequest(req CreateTripRequest) error {
	if req.PassengerID == "" {
		return ErrInvalidUserID
	}

	if !isValidLatitude(req.StartLocation.Latitude) || !isValidLongitude(req.StartLocation.Longitude) ||
		!isValidLatitude(req.EndLocation.Latitude) || !isValidLongitude(req.EndLocation.Longitude) {
		return ErrInvalidLocation
	}

	if req.Type == domain.TripTypeIntercity {
		if req.Origin == "" || req.Destination == "" || req.AvailableSeats <= 0 || req.PricePerSeat <= 0 {
			return ErrIntercityFieldsRequired
		}
	}

	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

// AdvanceTripRequest contains the parameters for a driver-initiated
// status transition.
type AdvanceTripRequest struct {
	TripID string
	UserID string // acting driver's user ID
	Status domain.TripStatus
	Reason string // required context for CANCELLED, unused otherwise
}

// AdvanceTrip applies a driver-initiated transition: validates it against the
// transition table, updates the trip row conditionally on its current status
// and cascades the new status to every passenger row in the same transaction.
// Entering IN_PROGRESS stamps startedAt; entering COMPLETED stamps endedAt.
func (s *TripService) AdvanceTrip(ctx context.Context, req AdvanceTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotTripDriver
		}
		return nil, err
	}

	if trip.DriverID == "" || trip.DriverID != driver.ID {
		return nil, ErrNotTripDriver
	}

	if !CanTransition(ActorDriver, trip.Status, req.Status) {
		return nil, &InvalidTransitionError{Current: trip.Status, Requested: req.Status}
	}

	reason := req.Reason
	if req.Status == domain.TripStatusCancelled && reason == "" {
		reason = "cancelled by driver"
	}

	err = s.applyTransition(ctx, trip, req.Status, reason)
	if err != nil {
		return nil, err
	}

	updated, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	s.emitTransition(ctx, updated, reason)

	return updated, nil
}

// applyTransition performs the conditional trip update plus passenger cascade
// in one transaction. A zero-row update means the trip moved concurrently;
// the fresh status is reported back to the caller.
func (s *TripService) applyTransition(ctx context.Context, trip *domain.Trip, to domain.TripStatus, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txTripRepo := postgres.NewTripRepositoryWithTx(tx)

	var ok bool
	if to == domain.TripStatusCancelled {
		ok, err = txTripRepo.Cancel(ctx, trip.ID, trip.Status, reason)
	} else {
		ok, err = txTripRepo.UpdateStatusFrom(ctx, trip.ID, trip.Status, to)
	}
	if err != nil {
		return err
	}

	if !ok {
		err = s.staleStatusError(ctx, trip.ID, to)
		return err
	}

	if err = postgres.NewTripPassengerRepositoryWithTx(tx).UpdateStatusByTrip(ctx, trip.ID, to); err != nil {
		return err
	}

	return tx.Commit()
}

// staleStatusError re-reads the trip and reports the transition conflict
// with the status it actually holds now.
func (s *TripService) staleStatusError(ctx context.Context, tripID string, requested domain.TripStatus) error {
	fresh, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	return &InvalidTransitionError{Current: fresh.Status, Requested: requested}
}

// emitTransition broadcasts the transition to the trip room and sends the
// status-appropriate notification to each non-cancelled passenger.
func (s *TripService) emitTransition(ctx context.Context, trip *domain.Trip, reason string) {
	if s.events != nil {
		event := EventTripStatusChanged
		if trip.Status == domain.TripStatusCancelled {
			event = EventTripCancelled
		}
		s.events.PublishTripEvent(trip.ID, event, TripStatusEvent{
			TripID: trip.ID,
			Status: trip.Status,
			Reason: reason,
		})
	}

	if s.notifier == nil {
		return
	}

	passengerIDs, err := s.passengerUserIDs(ctx, trip.ID)
	if err != nil {
		log.Printf("failed to load passengers for trip %s: %v", trip.ID, err)
		return
	}

	switch trip.Status {
	case domain.TripStatusInProgress:
		s.notifier.NotifyTripStarted(ctx, trip, passengerIDs)
	case domain.TripStatusCompleted:
		s.notifier.NotifyTripCompleted(ctx, trip, passengerIDs)
	case domain.TripStatusCancelled:
		s.notifier.NotifyTripCancelled(ctx, trip, reason, passengerIDs)
	}
}

// passengerUserIDs returns the user IDs of every passenger booked on the trip.
func (s *TripService) passengerUserIDs(ctx context.Context, tripID string) ([]string, error) {
	passengers, err := s.passengerRepo.ListByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(passengers))
	for _, p := range passengers {
		ids = append(ids, p.PassengerID)
	}
	return ids, nil
}

// CancelTripRequest contains the parameters for a passenger cancellation.
type CancelTripRequest struct {
	TripID      string
	PassengerID string
	Reason      string
}

// CancelTrip applies a passenger-initiated cancellation: only that
// passenger's booking is cancelled, and the trip itself moves to CANCELLED
// once no non-cancelled passengers remain. Both writes share one transaction.
func (s *TripService) CancelTrip(ctx context.Context, req CancelTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	booking, err := s.passengerRepo.GetByTripAndPassenger(ctx, req.TripID, req.PassengerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotTripPassenger
		}
		return nil, err
	}

	if !CanTransition(ActorPassenger, trip.Status, domain.TripStatusCancelled) {
		return nil, &InvalidTransitionError{Current: trip.Status, Requested: domain.TripStatusCancelled}
	}

	if booking.Status == domain.TripStatusCancelled {
		return nil, &InvalidTransitionError{Current: booking.Status, Requested: domain.TripStatusCancelled}
	}

	tripCancelled := false
	err = func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		txTripRepo := postgres.NewTripRepositoryWithTx(tx)
		txPassengerRepo := postgres.NewTripPassengerRepositoryWithTx(tx)

		// Lock the trip row before touching any booking. Concurrent cancels
		// of the same trip serialize on this lock, so the passenger count
		// below cannot miss a cancellation that has not committed yet.
		locked, err := txTripRepo.GetByIDForUpdate(ctx, req.TripID)
		if err != nil {
			return err
		}
		if !CanTransition(ActorPassenger, locked.Status, domain.TripStatusCancelled) {
			err = &InvalidTransitionError{Current: locked.Status, Requested: domain.TripStatusCancelled}
			return err
		}

		ok, err := txPassengerRepo.UpdateStatus(ctx, req.TripID, req.PassengerID, domain.TripStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			err = &InvalidTransitionError{Current: domain.TripStatusCancelled, Requested: domain.TripStatusCancelled}
			return err
		}

		remaining, err := txPassengerRepo.CountActiveByTrip(ctx, req.TripID)
		if err != nil {
			return err
		}

		if remaining == 0 {
			reason := req.Reason
			if reason == "" {
				reason = "all passengers cancelled"
			}

			var cancelled bool
			cancelled, err = txTripRepo.Cancel(ctx, req.TripID, locked.Status, reason)
			if err != nil {
				return err
			}
			if !cancelled {
				err = s.staleStatusError(ctx, req.TripID, domain.TripStatusCancelled)
				return err
			}
			tripCancelled = true
		}

		return tx.Commit()
	}()
	if err != nil {
		return nil, err
	}

	updated, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if tripCancelled {
		if s.deadlines != nil {
			_ = s.deadlines.Remove(ctx, req.TripID)
		}
		s.emitTransition(ctx, updated, updated.CancellationReason)
	} else if s.events != nil {
		s.events.PublishTripEvent(updated.ID, EventTripStatusChanged, TripStatusEvent{
			TripID: updated.ID,
			Status: updated.Status,
			Reason: fmt.Sprintf("passenger %s cancelled", req.PassengerID),
		})
	}

	return updated, nil
}

// RateTripRequest contains the parameters for rating a trip party.
type RateTripRequest struct {
	TripID     string
	FromUserID string
	ToUserID   string
	Score      int
	Comment    string
}

// RateTrip records one party's rating of another for a completed trip.
// At most one rating per direction per trip.
func (s *TripService) RateTrip(ctx context.Context, req RateTripRequest) (*domain.Rating, error) {
	if req.Score < 1 || req.Score > 5 {
		return nil, ErrInvalidRating
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusCompleted {
		return nil, ErrTripNotCompleted
	}

	for _, userID := range []string{req.FromUserID, req.ToUserID} {
		party, err := s.isTripParty(ctx, trip, userID)
		if err != nil {
			return nil, err
		}
		if !party {
			return nil, ErrNotTripParty
		}
	}

	rating := &domain.Rating{
		ID:         uuid.New().String(),
		TripID:     req.TripID,
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Score:      req.Score,
		Comment:    req.Comment,
		CreatedAt:  time.Now(),
	}

	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRated
		}
		return nil, err
	}

	return rating, nil
}

// GetTrip retrieves a trip for a user that is a party to it.
func (s *TripService) GetTrip(ctx context.Context, tripID, userID string) (*domain.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	party, err := s.isTripParty(ctx, trip, userID)
	if err != nil {
		return nil, err
	}
	if !party {
		return nil, ErrNotTripParty
	}

	return trip, nil
}

// ListTrips retrieves all trips the user participates in, as passenger
// and, when the user is a driver, as driver.
func (s *TripService) ListTrips(ctx context.Context, userID string) ([]*domain.Trip, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	seen := make(map[string]bool)
	var trips []*domain.Trip

	bookings, err := s.passengerRepo.ListByPassengerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, booking := range bookings {
		trip, err := s.tripRepo.GetByID(ctx, booking.TripID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		seen[trip.ID] = true
		trips = append(trips, trip)
	}

	driver, err := s.driverRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return trips, nil
		}
		return nil, err
	}

	driven, err := s.tripRepo.ListByDriverID(ctx, driver.ID)
	if err != nil {
		return nil, err
	}

	for _, trip := range driven {
		if !seen[trip.ID] {
			trips = append(trips, trip)
		}
	}

	return trips, nil
}

// UserHasAccessToTrip reports whether the user is the trip's driver or one of
// its passengers. The fan-out hub calls this at subscribe time.
func (s *TripService) UserHasAccessToTrip(ctx context.Context, tripID, userID string) (bool, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return s.isTripParty(ctx, trip, userID)
}

func (s *TripService) isTripParty(ctx context.Context, trip *domain.Trip, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	if trip.DriverID != "" {
		driver, err := s.driverRepo.GetByID(ctx, trip.DriverID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
		if err == nil && driver.UserID == userID {
			return true, nil
		}
	}

	_, err := s.passengerRepo.GetByTripAndPassenger(ctx, trip.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/kennyp2233/nilo-back/internal/domain"
	redisstore "github.com/kennyp2233/nilo-back/internal/redis"
	"github.com/kennyp2233/nilo-back/internal/repository"
	"github.com/kennyp2233/nilo-back/internal/repository/postgres"
)

const (
	// DefaultSearchTimeout is how long a SEARCHING trip waits for a driver
	// before it is auto-cancelled.
	DefaultSearchTimeout = 120 * time.Second

	// deadlinePollInterval is how often the scheduler checks for due deadlines.
	deadlinePollInterval = 1 * time.Second

	searchTimeoutReason = "no driver available"
)

// DeadlineStore holds armed search deadlines. Deadlines survive restarts and
// any instance may fire them.
type DeadlineStore interface {
	Arm(ctx context.Context, tripID string, at time.Time) error
	Due(ctx context.Context, now time.Time) ([]string, error)
	Remove(ctx context.Context, tripID string) error
}

// LocationStore tracks live driver positions.
type LocationStore interface {
	SetDriverLocation(ctx context.Context, driverID string, lat, lng float64) error
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redisstore.DriverLocation, error)
	RemoveDriverLocation(ctx context.Context, driverID string) error
}

// DriverSummary is the driver profile carried on a confirmation event.
type DriverSummary struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// VehicleSummary is the vehicle description carried on a confirmation event.
type VehicleSummary struct {
	Plate    string `json:"plate"`
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Category string `json:"category"`
}

// TripConfirmedEvent is broadcast to the trip room when a driver accepts.
type TripConfirmedEvent struct {
	TripID  string            `json:"trip_id"`
	Status  domain.TripStatus `json:"status"`
	Driver  DriverSummary     `json:"driver"`
	Vehicle *VehicleSummary   `json:"vehicle,omitempty"`
}

// DriverLocationEvent is broadcast to the trip room as the driver moves.
type DriverLocationEvent struct {
	TripID   string  `json:"trip_id"`
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// DispatchService matches SEARCHING trips to accepting drivers and owns the
// search timeout.
type DispatchService struct {
	db            *sql.DB
	tripRepo      repository.TripRepository
	passengerRepo repository.TripPassengerRepository
	driverRepo    repository.DriverRepository
	locationStore LocationStore
	deadlines     DeadlineStore
	notifier      *NotificationService
	events        EventPublisher
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	passengerRepo repository.TripPassengerRepository,
	driverRepo repository.DriverRepository,
	locationStore LocationStore,
	deadlines DeadlineStore,
	notifier *NotificationService,
	events EventPublisher,
) *DispatchService {
	return &DispatchService{
		db:            db,
		tripRepo:      tripRepo,
		passengerRepo: passengerRepo,
		driverRepo:    driverRepo,
		locationStore: locationStore,
		deadlines:     deadlines,
		notifier:      notifier,
		events:        events,
	}
}

// AcceptTripRequest contains the parameters for a driver accepting a trip.
type AcceptTripRequest struct {
	TripID       string
	DriverUserID string
}

// AcceptTrip assigns the driver to a SEARCHING trip. The trip assignment,
// passenger cascade and driver availability flip are conditional updates in
// one transaction: under N concurrent accepts exactly one commits and the
// rest fail with TripNotAvailableError.
func (s *DispatchService) AcceptTrip(ctx context.Context, req AcceptTripRequest) (*domain.Trip, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	driver, err := s.driverRepo.GetByUserID(ctx, req.DriverUserID)
	if err != nil {
		return nil, err
	}

	// Friendly pre-checks. The conditional updates below re-verify both
	// inside the transaction.
	if driver.VerificationStatus != domain.VerificationStatusVerified {
		return nil, ErrDriverNotVerified
	}
	if !driver.IsAvailable {
		return nil, ErrDriverNotAvailable
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

	var assigned bool
	assigned, err = postgres.NewTripRepositoryWithTx(tx).AssignDriver(ctx, req.TripID, driver.ID)
	if err != nil {
		return nil, err
	}

	if !assigned {
		err = s.tripNotAvailable(ctx, req.TripID)
		return nil, err
	}

	if err = postgres.NewTripPassengerRepositoryWithTx(tx).UpdateStatusByTrip(ctx, req.TripID, domain.TripStatusConfirmed); err != nil {
		return nil, err
	}

	var unavailable bool
	unavailable, err = postgres.NewDriverRepositoryWithTx(tx).MarkUnavailable(ctx, driver.ID)
	if err != nil {
		return nil, err
	}

	if !unavailable {
		err = ErrDriverNotAvailable
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if s.deadlines != nil {
		_ = s.deadlines.Remove(ctx, req.TripID)
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	s.emitConfirmed(ctx, trip, driver)

	return trip, nil
}

// tripNotAvailable reports the accept conflict with the status the trip
// actually holds, or NotFound if it never existed.
func (s *DispatchService) tripNotAvailable(ctx context.Context, tripID string) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	return &TripNotAvailableError{Current: trip.Status}
}

// emitConfirmed broadcasts the confirmation with driver profile and vehicle
// summary and notifies every passenger individually.
func (s *DispatchService) emitConfirmed(ctx context.Context, trip *domain.Trip, driver *domain.Driver) {
	var vehicle *VehicleSummary
	v, err := s.driverRepo.GetVehicleByDriverID(ctx, driver.ID)
	if err != nil {
		log.Printf("failed to load vehicle for driver %s: %v", driver.ID, err)
	} else if v != nil {
		vehicle = &VehicleSummary{
			Plate:    v.Plate,
			Brand:    v.Brand,
			Model:    v.Model,
			Category: v.Category,
		}
	}

	if s.events != nil {
		s.events.PublishTripEvent(trip.ID, EventTripConfirmed, TripConfirmedEvent{
			TripID: trip.ID,
			Status: trip.Status,
			Driver: DriverSummary{
				ID:        driver.ID,
				FirstName: driver.FirstName,
				LastName:  driver.LastName,
				Phone:     driver.Phone,
				Lat:       driver.CurrentLat,
				Lng:       driver.CurrentLng,
			},
			Vehicle: vehicle,
		})
	}

	if s.notifier == nil {
		return
	}

	passengers, err := s.passengerRepo.ListByTripID(ctx, trip.ID)
	if err != nil {
		log.Printf("failed to load passengers for trip %s: %v", trip.ID, err)
		return
	}

	passengerIDs := make([]string, 0, len(passengers))
	for _, p := range passengers {
		passengerIDs = append(passengerIDs, p.PassengerID)
	}

	s.notifier.NotifyDriverAssigned(ctx, trip, driver, passengerIDs)
}

// RunDeadlineScheduler polls for due search deadlines and expires them until
// the context is cancelled. Run it in its own goroutine.
func (s *DispatchService) RunDeadlineScheduler(ctx context.Context) {
	ticker := time.NewTicker(deadlinePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due, err := s.deadlines.Due(ctx, now)
			if err != nil {
				log.Printf("failed to poll search deadlines: %v", err)
				continue
			}

			for _, tripID := range due {
				if err := s.ExpireSearch(ctx, tripID); err != nil {
					log.Printf("failed to expire search for trip %s: %v", tripID, err)
				}
			}
		}
	}
}

// ExpireSearch cancels a trip whose search deadline fired. If the trip
// already left SEARCHING the deadline is stale and expiry is a no-op.
func (s *DispatchService) ExpireSearch(ctx context.Context, tripID string) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.deadlines.Remove(ctx, tripID)
		}
		return err
	}

	if trip.Status != domain.TripStatusSearching {
		return s.deadlines.Remove(ctx, tripID)
	}

	cancelled := false
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

		// Fire-time check: zero rows means an accept or cancel won the race.
		cancelled, err = postgres.NewTripRepositoryWithTx(tx).Cancel(ctx, tripID, domain.TripStatusSearching, searchTimeoutReason)
		if err != nil {
			return err
		}

		if cancelled {
			if err = postgres.NewTripPassengerRepositoryWithTx(tx).UpdateStatusByTrip(ctx, tripID, domain.TripStatusCancelled); err != nil {
				return err
			}
		}

		return tx.Commit()
	}()
	if err != nil {
		return err
	}

	if err := s.deadlines.Remove(ctx, tripID); err != nil {
		return err
	}

	if cancelled {
		trip.Status = domain.TripStatusCancelled
		trip.CancellationReason = searchTimeoutReason

		if s.events != nil {
			s.events.PublishTripEvent(tripID, EventTripCancelled, TripStatusEvent{
				TripID: tripID,
				Status: domain.TripStatusCancelled,
				Reason: searchTimeoutReason,
			})
		}

		if s.notifier != nil {
			passengers, err := s.passengerRepo.ListByTripID(ctx, tripID)
			if err != nil {
				log.Printf("failed to load passengers for trip %s: %v", tripID, err)
				return nil
			}

			passengerIDs := make([]string, 0, len(passengers))
			for _, p := range passengers {
				passengerIDs = append(passengerIDs, p.PassengerID)
			}

			s.notifier.NotifyTripCancelled(ctx, trip, searchTimeoutReason, passengerIDs)
		}
	}

	return nil
}

// SetDriverAvailability is the explicit hook that re-frees (or sidelines) a
// driver. Acceptance flips availability off; nothing in this core flips it
// back on its own.
func (s *DispatchService) SetDriverAvailability(ctx context.Context, driverUserID string, available bool) (*domain.Driver, error) {
	driver, err := s.driverRepo.GetByUserID(ctx, driverUserID)
	if err != nil {
		return nil, err
	}

	if err := s.driverRepo.SetAvailability(ctx, driver.ID, available); err != nil {
		return nil, err
	}

	if !available && s.locationStore != nil {
		if err := s.locationStore.RemoveDriverLocation(ctx, driver.ID); err != nil {
			log.Printf("failed to remove location for driver %s: %v", driver.ID, err)
		}
	}

	driver.IsAvailable = available
	return driver, nil
}

// UpdateDriverLocation records the driver's position and, when the driver is
// on an active trip, streams it to that trip's room.
func (s *DispatchService) UpdateDriverLocation(ctx context.Context, driverUserID string, lat, lng float64) error {
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidLocation
	}

	driver, err := s.driverRepo.GetByUserID(ctx, driverUserID)
	if err != nil {
		return err
	}

	if err := s.driverRepo.UpdateLocation(ctx, driver.ID, lat, lng); err != nil {
		return err
	}

	if s.locationStore != nil {
		if err := s.locationStore.SetDriverLocation(ctx, driver.ID, lat, lng); err != nil {
			return err
		}
	}

	if s.events == nil {
		return nil
	}

	trip, err := s.tripRepo.GetActiveByDriverID(ctx, driver.ID)
	if err != nil {
		return err
	}

	if trip != nil {
		s.events.PublishTripEvent(trip.ID, EventDriverLocation, DriverLocationEvent{
			TripID:   trip.ID,
			DriverID: driver.ID,
			Lat:      lat,
			Lng:      lng,
		})
	}

	return nil
}

// FindNearbyDrivers returns drivers within radiusKm of a point, closest first.
func (s *DispatchService) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redisstore.DriverLocation, error) {
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}

	if radiusKm <= 0 {
		radiusKm = 5.0
	}

	return s.locationStore.FindNearbyDrivers(ctx, lat, lng, radiusKm)
}

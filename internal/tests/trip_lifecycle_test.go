package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// ──────────────────────────────────────────────
// 3. TRIP LIFECYCLE
// ──────────────────────────────────────────────

// tripFixture bundles the mocks behind a TripService. The *sql.DB is nil, so
// only paths that stop before a transaction opens are exercised here; the
// committed transitions are covered by the conditional-update tests below.
type tripFixture struct {
	tripRepo      *MockTripRepository
	passengerRepo *MockTripPassengerRepository
	driverRepo    *MockDriverRepository
	ratingRepo    *MockRatingRepository
	routes        *MockRouteProvider
	deadlines     *MockDeadlineStore
	events        *MockEventPublisher
	service       *service.TripService
}

func newTripFixture() *tripFixture {
	f := &tripFixture{
		tripRepo:      NewMockTripRepository(),
		passengerRepo: NewMockTripPassengerRepository(),
		driverRepo:    NewMockDriverRepository(),
		ratingRepo:    NewMockRatingRepository(),
		routes:        &MockRouteProvider{DistanceMeters: 5000, DurationSeconds: 720},
		deadlines:     NewMockDeadlineStore(),
		events:        NewMockEventPublisher(),
	}

	tariffRepo := NewMockTariffRepository()
	tariffRepo.SetTariff(standardTariff())
	fareService := service.NewFareService(tariffRepo, NewMockPromoRepository())
	notifier := service.NewNotificationService(f.events)

	f.service = service.NewTripService(
		nil, f.tripRepo, f.passengerRepo, f.driverRepo, f.ratingRepo,
		fareService, f.routes, f.deadlines, notifier, f.events, 0,
	)
	return f
}

func verifiedDriver(id, userID string) *domain.Driver {
	return &domain.Driver{
		ID:                 id,
		UserID:             userID,
		FirstName:          "Ana",
		LastName:           "Lopez",
		IsAvailable:        true,
		VerificationStatus: domain.VerificationStatusVerified,
	}
}

func TestCanTransition_DriverTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to domain.TripStatus
		allowed  bool
	}{
		{domain.TripStatusScheduled, domain.TripStatusConfirmed, true},
		{domain.TripStatusScheduled, domain.TripStatusCancelled, true},
		{domain.TripStatusConfirmed, domain.TripStatusInProgress, true},
		{domain.TripStatusConfirmed, domain.TripStatusCancelled, true},
		{domain.TripStatusInProgress, domain.TripStatusCompleted, true},
		{domain.TripStatusInProgress, domain.TripStatusCancelled, true},
		{domain.TripStatusConfirmed, domain.TripStatusCompleted, false},
		{domain.TripStatusSearching, domain.TripStatusConfirmed, false},
		{domain.TripStatusCompleted, domain.TripStatusCancelled, false},
		{domain.TripStatusCancelled, domain.TripStatusConfirmed, false},
	}

	for _, tc := range cases {
		if got := service.CanTransition(service.ActorDriver, tc.from, tc.to); got != tc.allowed {
			t.Errorf("driver %s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestCanTransition_PassengerOnlyCancels(t *testing.T) {
	t.Parallel()

	for _, from := range []domain.TripStatus{
		domain.TripStatusSearching,
		domain.TripStatusScheduled,
		domain.TripStatusConfirmed,
	} {
		if !service.CanTransition(service.ActorPassenger, from, domain.TripStatusCancelled) {
			t.Errorf("expected passenger cancel allowed from %s", from)
		}
	}

	if service.CanTransition(service.ActorPassenger, domain.TripStatusInProgress, domain.TripStatusCancelled) {
		t.Error("expected passenger cancel forbidden once the trip is in progress")
	}
	if service.CanTransition(service.ActorPassenger, domain.TripStatusConfirmed, domain.TripStatusInProgress) {
		t.Error("expected passengers unable to start trips")
	}
}

func TestCreateTrip_RejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()

	f := newTripFixture()

	_, err := f.service.CreateTrip(context.Background(), service.CreateTripRequest{
		PassengerID:   "pax-1",
		Type:          domain.TripTypeOnDemand,
		StartLocation: domain.Location{Latitude: 91, Longitude: 0},
		EndLocation:   domain.Location{Latitude: 0, Longitude: 0},
	})
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestCreateTrip_RejectsMissingIntercityFields(t *testing.T) {
	t.Parallel()

	f := newTripFixture()

	_, err := f.service.CreateTrip(context.Background(), service.CreateTripRequest{
		PassengerID:   "pax-1",
		Type:          domain.TripTypeIntercity,
		StartLocation: domain.Location{Latitude: -0.18, Longitude: -78.47},
		EndLocation:   domain.Location{Latitude: -2.19, Longitude: -79.88},
		Origin:        "Quito",
		// Destination, AvailableSeats and PricePerSeat missing.
	})
	if !errors.Is(err, service.ErrIntercityFieldsRequired) {
		t.Errorf("expected ErrIntercityFieldsRequired, got %v", err)
	}
}

func TestCreateTrip_RouteLookupFailureRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.routes.RouteError = errors.New("upstream timeout")

	_, err := f.service.CreateTrip(context.Background(), service.CreateTripRequest{
		PassengerID:   "pax-1",
		Type:          domain.TripTypeOnDemand,
		StartLocation: domain.Location{Latitude: -0.18, Longitude: -78.47},
		EndLocation:   domain.Location{Latitude: -0.20, Longitude: -78.49},
	})
	if !errors.Is(err, service.ErrRouteUnavailable) {
		t.Errorf("expected ErrRouteUnavailable, got %v", err)
	}
}

func TestCreateTrip_NoActiveTariffRejected(t *testing.T) {
	t.Parallel()

	f := newTripFixture()

	// Category with no configured tariff.
	_, err := f.service.CreateTrip(context.Background(), service.CreateTripRequest{
		PassengerID:     "pax-1",
		Type:            domain.TripTypeOnDemand,
		VehicleCategory: "LUXURY",
		StartLocation:   domain.Location{Latitude: -0.18, Longitude: -78.47},
		EndLocation:     domain.Location{Latitude: -0.20, Longitude: -78.49},
	})
	if !errors.Is(err, service.ErrNoActiveTariff) {
		t.Errorf("expected ErrNoActiveTariff, got %v", err)
	}
}

func TestAdvanceTrip_RejectsUserWithoutDriverProfile(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusConfirmed, DriverID: "driver-1"})

	_, err := f.service.AdvanceTrip(context.Background(), service.AdvanceTripRequest{
		TripID: "trip-1",
		UserID: "someone-else",
		Status: domain.TripStatusInProgress,
	})
	if !errors.Is(err, service.ErrNotTripDriver) {
		t.Errorf("expected ErrNotTripDriver, got %v", err)
	}
}

func TestAdvanceTrip_RejectsDriverOfAnotherTrip(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusConfirmed, DriverID: "driver-1"})
	f.driverRepo.AddDriver(verifiedDriver("driver-2", "user-d2"))

	_, err := f.service.AdvanceTrip(context.Background(), service.AdvanceTripRequest{
		TripID: "trip-1",
		UserID: "user-d2",
		Status: domain.TripStatusInProgress,
	})
	if !errors.Is(err, service.ErrNotTripDriver) {
		t.Errorf("expected ErrNotTripDriver, got %v", err)
	}
}

func TestAdvanceTrip_RejectsSkippingInProgress(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusConfirmed, DriverID: "driver-1"})
	f.driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))

	_, err := f.service.AdvanceTrip(context.Background(), service.AdvanceTripRequest{
		TripID: "trip-1",
		UserID: "user-d1",
		Status: domain.TripStatusCompleted,
	})

	var invalid *service.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.Current != domain.TripStatusConfirmed {
		t.Errorf("expected current status CONFIRMED in error, got %s", invalid.Current)
	}
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Error("expected error to match ErrInvalidTransition sentinel")
	}
}

func TestAdvanceTrip_RejectsTransitionsFromTerminalStatus(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusCompleted, DriverID: "driver-1"})
	f.driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))

	_, err := f.service.AdvanceTrip(context.Background(), service.AdvanceTripRequest{
		TripID: "trip-1",
		UserID: "user-d1",
		Status: domain.TripStatusCancelled,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelTrip_RejectsNonPassenger(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusSearching})

	_, err := f.service.CancelTrip(context.Background(), service.CancelTripRequest{
		TripID:      "trip-1",
		PassengerID: "stranger",
	})
	if !errors.Is(err, service.ErrNotTripPassenger) {
		t.Errorf("expected ErrNotTripPassenger, got %v", err)
	}
}

func TestCancelTrip_RejectsOnceInProgress(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusInProgress, DriverID: "driver-1"})
	f.passengerRepo.AddPassenger(&domain.TripPassenger{
		ID: "tp-1", TripID: "trip-1", PassengerID: "pax-1", Status: domain.TripStatusInProgress,
	})

	_, err := f.service.CancelTrip(context.Background(), service.CancelTripRequest{
		TripID:      "trip-1",
		PassengerID: "pax-1",
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelTrip_RejectsAlreadyCancelledBooking(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusConfirmed, DriverID: "driver-1"})
	f.passengerRepo.AddPassenger(&domain.TripPassenger{
		ID: "tp-1", TripID: "trip-1", PassengerID: "pax-1", Status: domain.TripStatusCancelled,
	})

	_, err := f.service.CancelTrip(context.Background(), service.CancelTripRequest{
		TripID:      "trip-1",
		PassengerID: "pax-1",
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 4. RATINGS AND ACCESS
// ──────────────────────────────────────────────

func completedTripFixture() *tripFixture {
	f := newTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusCompleted, DriverID: "driver-1"})
	f.driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))
	f.passengerRepo.AddPassenger(&domain.TripPassenger{
		ID: "tp-1", TripID: "trip-1", PassengerID: "pax-1", Status: domain.TripStatusCompleted,
	})
	return f
}

func TestRateTrip_RejectsScoreOutOfRange(t *testing.T) {
	t.Parallel()

	f := completedTripFixture()

	for _, score := range []int{0, 6, -1} {
		_, err := f.service.RateTrip(context.Background(), service.RateTripRequest{
			TripID: "trip-1", FromUserID: "pax-1", ToUserID: "user-d1", Score: score,
		})
		if !errors.Is(err, service.ErrInvalidRating) {
			t.Errorf("score %d: expected ErrInvalidRating, got %v", score, err)
		}
	}
}

func TestRateTrip_RejectsUncompletedTrip(t *testing.T) {
	t.Parallel()

	f := completedTripFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-2", Status: domain.TripStatusInProgress, DriverID: "driver-1"})

	_, err := f.service.RateTrip(context.Background(), service.RateTripRequest{
		TripID: "trip-2", FromUserID: "pax-1", ToUserID: "user-d1", Score: 5,
	})
	if !errors.Is(err, service.ErrTripNotCompleted) {
		t.Errorf("expected ErrTripNotCompleted, got %v", err)
	}
}

func TestRateTrip_RejectsOutsiders(t *testing.T) {
	t.Parallel()

	f := completedTripFixture()

	_, err := f.service.RateTrip(context.Background(), service.RateTripRequest{
		TripID: "trip-1", FromUserID: "stranger", ToUserID: "user-d1", Score: 5,
	})
	if !errors.Is(err, service.ErrNotTripParty) {
		t.Errorf("expected ErrNotTripParty, got %v", err)
	}
}

func TestRateTrip_SecondRatingSameDirectionRejected(t *testing.T) {
	t.Parallel()

	f := completedTripFixture()

	rating, err := f.service.RateTrip(context.Background(), service.RateTripRequest{
		TripID: "trip-1", FromUserID: "pax-1", ToUserID: "user-d1", Score: 4, Comment: "smooth ride",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rating.Score != 4 {
		t.Errorf("expected score 4, got %d", rating.Score)
	}

	_, err = f.service.RateTrip(context.Background(), service.RateTripRequest{
		TripID: "trip-1", FromUserID: "pax-1", ToUserID: "user-d1", Score: 1,
	})
	if !errors.Is(err, service.ErrAlreadyRated) {
		t.Errorf("expected ErrAlreadyRated, got %v", err)
	}

	// The opposite direction is still open.
	_, err = f.service.RateTrip(context.Background(), service.RateTripRequest{
		TripID: "trip-1", FromUserID: "user-d1", ToUserID: "pax-1", Score: 5,
	})
	if err != nil {
		t.Errorf("unexpected error rating the other direction: %v", err)
	}
}

func TestGetTrip_RejectsOutsiders(t *testing.T) {
	t.Parallel()

	f := completedTripFixture()

	_, err := f.service.GetTrip(context.Background(), "trip-1", "stranger")
	if !errors.Is(err, service.ErrNotTripParty) {
		t.Errorf("expected ErrNotTripParty, got %v", err)
	}

	trip, err := f.service.GetTrip(context.Background(), "trip-1", "pax-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trip.ID != "trip-1" {
		t.Errorf("expected trip-1, got %s", trip.ID)
	}
}

func TestUserHasAccessToTrip_DriverPassengerAndOutsider(t *testing.T) {
	t.Parallel()

	f := completedTripFixture()

	cases := []struct {
		userID  string
		allowed bool
	}{
		{"user-d1", true},
		{"pax-1", true},
		{"stranger", false},
		{"", false},
	}

	for _, tc := range cases {
		allowed, err := f.service.UserHasAccessToTrip(context.Background(), "trip-1", tc.userID)
		if err != nil {
			t.Fatalf("user %q: unexpected error: %v", tc.userID, err)
		}
		if allowed != tc.allowed {
			t.Errorf("user %q: expected access %v, got %v", tc.userID, tc.allowed, allowed)
		}
	}

	// Unknown trips never grant access.
	allowed, err := f.service.UserHasAccessToTrip(context.Background(), "missing-trip", "pax-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected no access to a missing trip")
	}
}

func TestListTrips_MergesBookingsAndDrivenTrips(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-a", Status: domain.TripStatusCompleted, DriverID: "driver-1"})
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-b", Status: domain.TripStatusConfirmed, DriverID: "driver-1"})
	// The driver also rode trip-a as a passenger; it must not be listed twice.
	f.passengerRepo.AddPassenger(&domain.TripPassenger{
		ID: "tp-a", TripID: "trip-a", PassengerID: "user-d1", Status: domain.TripStatusCompleted,
	})

	trips, err := f.service.ListTrips(context.Background(), "user-d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(trips))
	}
}

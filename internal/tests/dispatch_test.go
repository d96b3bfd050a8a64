package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// someTime is an arbitrary already-due deadline.
func someTime() time.Time {
	return time.Now().Add(-time.Second)
}

// ──────────────────────────────────────────────
// 5. DISPATCH
// ──────────────────────────────────────────────

type dispatchFixture struct {
	tripRepo      *MockTripRepository
	passengerRepo *MockTripPassengerRepository
	driverRepo    *MockDriverRepository
	locationStore *MockLocationStore
	deadlines     *MockDeadlineStore
	events        *MockEventPublisher
	service       *service.DispatchService
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		tripRepo:      NewMockTripRepository(),
		passengerRepo: NewMockTripPassengerRepository(),
		driverRepo:    NewMockDriverRepository(),
		locationStore: NewMockLocationStore(),
		deadlines:     NewMockDeadlineStore(),
		events:        NewMockEventPublisher(),
	}

	notifier := service.NewNotificationService(f.events)
	f.service = service.NewDispatchService(
		nil, f.tripRepo, f.passengerRepo, f.driverRepo,
		f.locationStore, f.deadlines, notifier, f.events,
	)
	return f
}

func TestAcceptTrip_RejectsUnverifiedDriver(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	driver := verifiedDriver("driver-1", "user-d1")
	driver.VerificationStatus = domain.VerificationStatusPending
	f.driverRepo.AddDriver(driver)
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusSearching})

	_, err := f.service.AcceptTrip(context.Background(), service.AcceptTripRequest{
		TripID:       "trip-1",
		DriverUserID: "user-d1",
	})
	if !errors.Is(err, service.ErrDriverNotVerified) {
		t.Errorf("expected ErrDriverNotVerified, got %v", err)
	}
}

func TestAcceptTrip_RejectsUnavailableDriver(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	driver := verifiedDriver("driver-1", "user-d1")
	driver.IsAvailable = false
	f.driverRepo.AddDriver(driver)
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusSearching})

	_, err := f.service.AcceptTrip(context.Background(), service.AcceptTripRequest{
		TripID:       "trip-1",
		DriverUserID: "user-d1",
	})
	if !errors.Is(err, service.ErrDriverNotAvailable) {
		t.Errorf("expected ErrDriverNotAvailable, got %v", err)
	}
}

func TestAcceptTrip_RejectsEmptyTripID(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()

	_, err := f.service.AcceptTrip(context.Background(), service.AcceptTripRequest{
		DriverUserID: "user-d1",
	})
	if !errors.Is(err, service.ErrInvalidTripID) {
		t.Errorf("expected ErrInvalidTripID, got %v", err)
	}
}

func TestExpireSearch_NoopWhenTripLeftSearching(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusConfirmed, DriverID: "driver-1"})
	_ = f.deadlines.Arm(context.Background(), "trip-1", someTime())

	if err := f.service.ExpireSearch(context.Background(), "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The stale deadline is dropped, the trip is untouched, nothing fires.
	if f.deadlines.Armed("trip-1") {
		t.Error("expected stale deadline to be removed")
	}
	if status := f.tripRepo.GetTrip("trip-1").Status; status != domain.TripStatusConfirmed {
		t.Errorf("expected trip untouched, got status %s", status)
	}
	if count := atomic.LoadInt32(&f.tripRepo.CancelCallCount); count != 0 {
		t.Errorf("expected no cancel attempt, got %d", count)
	}
	if events := f.events.Events(); len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestExpireSearch_RemovesDeadlineForMissingTrip(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	_ = f.deadlines.Arm(context.Background(), "ghost-trip", someTime())

	if err := f.service.ExpireSearch(context.Background(), "ghost-trip"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.deadlines.Armed("ghost-trip") {
		t.Error("expected orphaned deadline to be removed")
	}
}

func TestSetDriverAvailability_UnavailableDropsLocation(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	f.driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))
	_ = f.locationStore.SetDriverLocation(context.Background(), "driver-1", -0.18, -78.47)

	driver, err := f.service.SetDriverAvailability(context.Background(), "user-d1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driver.IsAvailable {
		t.Error("expected driver to be unavailable")
	}
	if f.locationStore.HasLocation("driver-1") {
		t.Error("expected location to be removed from the geo index")
	}

	driver, err = f.service.SetDriverAvailability(context.Background(), "user-d1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !driver.IsAvailable {
		t.Error("expected driver to be available again")
	}
}

func TestUpdateDriverLocation_RejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	f.driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))

	err := f.service.UpdateDriverLocation(context.Background(), "user-d1", -95, -78.47)
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestUpdateDriverLocation_StreamsToActiveTripRoom(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	f.driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))
	f.tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusInProgress, DriverID: "driver-1"})

	if err := f.service.UpdateDriverLocation(context.Background(), "user-d1", -0.18, -78.47); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.locationStore.HasLocation("driver-1") {
		t.Error("expected location stored in the geo index")
	}
	if d := f.driverRepo.GetDriver("driver-1"); d.CurrentLat != -0.18 || d.CurrentLng != -78.47 {
		t.Errorf("expected persisted position, got (%v, %v)", d.CurrentLat, d.CurrentLng)
	}

	events := f.events.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Event != service.EventDriverLocation || events[0].TargetID != "trip-1" {
		t.Errorf("expected driver_location event on trip-1, got %+v", events[0])
	}
}

func TestUpdateDriverLocation_NoActiveTripPublishesNothing(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()
	f.driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))

	if err := f.service.UpdateDriverLocation(context.Background(), "user-d1", -0.18, -78.47); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events := f.events.Events(); len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestFindNearbyDrivers_RejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture()

	_, err := f.service.FindNearbyDrivers(context.Background(), -0.18, -200, 5)
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 6. CONCURRENCY (run with -race)
// ──────────────────────────────────────────────

func TestConcurrentAssignDriver_ExactlyOneWinner(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusSearching})

	const attempts = 8
	var wg sync.WaitGroup
	wins := make(chan string, attempts)

	for i := 0; i < attempts; i++ {
		driverID := fmt.Sprintf("driver-%d", i)
		wg.Add(1)
		go func(did string) {
			defer wg.Done()
			ok, err := tripRepo.AssignDriver(context.Background(), "trip-1", did)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				wins <- did
			}
		}(driverID)
	}

	wg.Wait()
	close(wins)

	var winners []string
	for did := range wins {
		winners = append(winners, did)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", len(winners))
	}

	trip := tripRepo.GetTrip("trip-1")
	if trip.Status != domain.TripStatusConfirmed {
		t.Errorf("expected status CONFIRMED, got %s", trip.Status)
	}
	if trip.DriverID != winners[0] {
		t.Errorf("expected assigned driver %s, got %s", winners[0], trip.DriverID)
	}
}

func TestConcurrentAssignVsTimeoutCancel_OneWins(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusSearching})

	var wg sync.WaitGroup
	results := make(chan bool, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ok, err := tripRepo.AssignDriver(context.Background(), "trip-1", "driver-1")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		results <- ok
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ok, err := tripRepo.Cancel(context.Background(), "trip-1", domain.TripStatusSearching, "no driver available")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		results <- ok
	}()

	wg.Wait()
	close(results)

	success := 0
	for ok := range results {
		if ok {
			success++
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winner between accept and timeout, got %d", success)
	}

	trip := tripRepo.GetTrip("trip-1")
	if trip.Status != domain.TripStatusConfirmed && trip.Status != domain.TripStatusCancelled {
		t.Errorf("unexpected final status: %s", trip.Status)
	}
	if trip.Status == domain.TripStatusCancelled && trip.CancellationReason != "no driver available" {
		t.Errorf("unexpected cancellation reason: %q", trip.CancellationReason)
	}
}

func TestConcurrentDebit_NeverOverdraws(t *testing.T) {
	t.Parallel()

	walletRepo := NewMockWalletRepository()
	walletRepo.AddWallet(&domain.Wallet{ID: "wallet-1", UserID: "user-1", Balance: 100})

	const attempts = 10
	var wg sync.WaitGroup
	var success int32

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := walletRepo.Debit(context.Background(), "wallet-1", 30)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&success, 1)
			}
		}()
	}

	wg.Wait()

	if success != 3 {
		t.Errorf("expected exactly 3 debits of 30 from 100, got %d", success)
	}
	if balance := walletRepo.Balance("wallet-1"); balance != 10 {
		t.Errorf("expected balance 10, got %.2f", balance)
	}
}

func TestConcurrentMarkUnavailable_FlipsOnce(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(verifiedDriver("driver-1", "user-d1"))

	const attempts = 6
	var wg sync.WaitGroup
	var success int32

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := driverRepo.MarkUnavailable(context.Background(), "driver-1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&success, 1)
			}
		}()
	}

	wg.Wait()

	if success != 1 {
		t.Errorf("expected the availability flag to flip exactly once, got %d", success)
	}
	if driverRepo.GetDriver("driver-1").IsAvailable {
		t.Error("expected driver to be unavailable")
	}
}

package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/redis"
	"github.com/kennyp2233/nilo-back/internal/repository"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository. The
// conditional updates take the write lock for the whole check-then-set so
// they behave like the row-level conditional UPDATEs they stand in for.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	AssignDriverCallCount int32
	CancelCallCount       int32

	// Error injection
	GetByIDError      error
	AssignDriverError error
	CancelError       error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *trip
	return &copy, nil
}

// GetByIDForUpdate behaves like GetByID; the mock has no transactions to
// scope a row lock to.
func (m *MockTripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTripRepository) ListByDriverID(ctx context.Context, driverID string) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Trip
	for _, t := range m.trips {
		if t.DriverID == driverID {
			copy := *t
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockTripRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.trips {
		if t.DriverID == driverID && !t.Status.IsTerminal() {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockTripRepository) UpdateStatusFrom(ctx context.Context, id string, from, to domain.TripStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok || trip.Status != from {
		return false, nil
	}
	trip.Status = to
	switch to {
	case domain.TripStatusInProgress:
		trip.StartedAt = time.Now()
	case domain.TripStatusCompleted:
		trip.EndedAt = time.Now()
	}
	return true, nil
}

func (m *MockTripRepository) AssignDriver(ctx context.Context, id, driverID string) (bool, error) {
	atomic.AddInt32(&m.AssignDriverCallCount, 1)
	if m.AssignDriverError != nil {
		return false, m.AssignDriverError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok || trip.Status != domain.TripStatusSearching {
		return false, nil
	}
	trip.Status = domain.TripStatusConfirmed
	trip.DriverID = driverID
	return true, nil
}

func (m *MockTripRepository) Cancel(ctx context.Context, id string, from domain.TripStatus, reason string) (bool, error) {
	atomic.AddInt32(&m.CancelCallCount, 1)
	if m.CancelError != nil {
		return false, m.CancelError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok || trip.Status != from {
		return false, nil
	}
	trip.Status = domain.TripStatusCancelled
	trip.CancellationReason = reason
	return true, nil
}

// GetTrip returns a trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

// ──────────────────────────────────────────────
// MOCK TRIP PASSENGER REPOSITORY
// ──────────────────────────────────────────────

// MockTripPassengerRepository is a mock implementation of
// TripPassengerRepository.
type MockTripPassengerRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.TripPassenger
}

// NewMockTripPassengerRepository creates a new mock trip passenger repository.
func NewMockTripPassengerRepository() *MockTripPassengerRepository {
	return &MockTripPassengerRepository{
		bookings: make(map[string]*domain.TripPassenger),
	}
}

// AddPassenger adds a booking to the mock repository.
func (m *MockTripPassengerRepository) AddPassenger(tp *domain.TripPassenger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[tp.ID] = tp
}

func (m *MockTripPassengerRepository) Create(ctx context.Context, tp *domain.TripPassenger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[tp.ID] = tp
	return nil
}

func (m *MockTripPassengerRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.TripPassenger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.TripPassenger
	for _, b := range m.bookings {
		if b.TripID == tripID {
			copy := *b
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTripPassengerRepository) ListByPassengerID(ctx context.Context, passengerID string) ([]*domain.TripPassenger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.TripPassenger
	for _, b := range m.bookings {
		if b.PassengerID == passengerID {
			copy := *b
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockTripPassengerRepository) GetByTripAndPassenger(ctx context.Context, tripID, passengerID string) (*domain.TripPassenger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.TripID == tripID && b.PassengerID == passengerID {
			copy := *b
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockTripPassengerRepository) UpdateStatusByTrip(ctx context.Context, tripID string, status domain.TripStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.TripID == tripID {
			b.Status = status
		}
	}
	return nil
}

func (m *MockTripPassengerRepository) UpdateStatus(ctx context.Context, tripID, passengerID string, status domain.TripStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.TripID == tripID && b.PassengerID == passengerID {
			if b.Status == status {
				return false, nil
			}
			b.Status = status
			return true, nil
		}
	}
	return false, nil
}

func (m *MockTripPassengerRepository) CountActiveByTrip(ctx context.Context, tripID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, b := range m.bookings {
		if b.TripID == tripID && b.Status != domain.TripStatusCancelled {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu       sync.RWMutex
	drivers  map[string]*domain.Driver
	vehicles map[string]*domain.Vehicle

	// Counters for verification
	MarkUnavailableCallCount int32
	UpdateLocationCallCount  int32

	// Error injection
	GetByUserIDError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers:  make(map[string]*domain.Driver),
		vehicles: make(map[string]*domain.Vehicle),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

// AddVehicle adds a vehicle to the mock repository.
func (m *MockDriverRepository) AddVehicle(vehicle *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicle.DriverID] = vehicle
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetByUserID(ctx context.Context, userID string) (*domain.Driver, error) {
	if m.GetByUserIDError != nil {
		return nil, m.GetByUserIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.UserID == userID {
			copy := *d
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) MarkUnavailable(ctx context.Context, id string) (bool, error) {
	atomic.AddInt32(&m.MarkUnavailableCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok || !driver.IsAvailable || driver.VerificationStatus != domain.VerificationStatusVerified {
		return false, nil
	}
	driver.IsAvailable = false
	return true, nil
}

func (m *MockDriverRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.IsAvailable = available
	return nil
}

func (m *MockDriverRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.CurrentLat = lat
	driver.CurrentLng = lng
	return nil
}

func (m *MockDriverRepository) GetVehicleByDriverID(ctx context.Context, driverID string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[driverID]
	if !ok {
		return nil, nil
	}
	copy := *vehicle
	return &copy, nil
}

// GetDriver returns a driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK WALLET REPOSITORY
// ──────────────────────────────────────────────

// MockWalletRepository is a mock implementation of WalletRepository. Debit is
// a conditional update: it only applies when the balance covers the amount.
type MockWalletRepository struct {
	mu           sync.RWMutex
	wallets      map[string]*domain.Wallet
	transactions map[string][]*domain.WalletTransaction

	// Counters for verification
	DebitCallCount int32
}

// NewMockWalletRepository creates a new mock wallet repository.
func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets:      make(map[string]*domain.Wallet),
		transactions: make(map[string][]*domain.WalletTransaction),
	}
}

// AddWallet adds a wallet to the mock repository.
func (m *MockWalletRepository) AddWallet(wallet *domain.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[wallet.ID] = wallet
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.wallets {
		if w.UserID == userID {
			copy := *w
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockWalletRepository) Debit(ctx context.Context, walletID string, amount float64) (float64, bool, error) {
	atomic.AddInt32(&m.DebitCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet, ok := m.wallets[walletID]
	if !ok {
		return 0, false, repository.ErrNotFound
	}
	if wallet.Balance < amount {
		return wallet.Balance, false, nil
	}
	wallet.Balance -= amount
	return wallet.Balance, true, nil
}

func (m *MockWalletRepository) Credit(ctx context.Context, walletID string, amount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wallet, ok := m.wallets[walletID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	wallet.Balance += amount
	return wallet.Balance, nil
}

func (m *MockWalletRepository) CreateTransaction(ctx context.Context, txn *domain.WalletTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[txn.WalletID] = append(m.transactions[txn.WalletID], txn)
	return nil
}

func (m *MockWalletRepository) ListTransactions(ctx context.Context, walletID string, limit int) ([]*domain.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txns := m.transactions[walletID]
	if len(txns) > limit {
		txns = txns[len(txns)-limit:]
	}
	result := make([]*domain.WalletTransaction, 0, len(txns))
	for i := len(txns) - 1; i >= 0; i-- {
		copy := *txns[i]
		result = append(result, &copy)
	}
	return result, nil
}

// Balance returns a wallet balance for test assertions.
func (m *MockWalletRepository) Balance(walletID string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wallets[walletID].Balance
}

// TransactionCount returns the ledger length for test assertions.
func (m *MockWalletRepository) TransactionCount(walletID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions[walletID])
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
// Creating a second payment for the same trip fails with ErrDuplicate, like
// the unique index it stands in for.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	byTrip   map[string]string

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
		byTrip:   make(map[string]string),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
	m.byTrip[payment.TripID] = payment.ID
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byTrip[payment.TripID]; exists {
		return repository.ErrDuplicate
	}
	m.payments[payment.ID] = payment
	m.byTrip[payment.TripID] = payment.ID
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byTrip[tripID]
	if !ok {
		return nil, nil
	}
	copy := *m.payments[id]
	return &copy, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	payment.Status = status
	return nil
}

// ──────────────────────────────────────────────
// MOCK PROMO REPOSITORY
// ──────────────────────────────────────────────

// MockPromoRepository is a mock implementation of PromoRepository.
// IncrementUses enforces the usage limit under the write lock, like the
// conditional UPDATE it stands in for.
type MockPromoRepository struct {
	mu     sync.RWMutex
	promos map[string]*domain.PromoCode

	// Counters for verification
	IncrementUsesCallCount int32
}

// NewMockPromoRepository creates a new mock promo repository.
func NewMockPromoRepository() *MockPromoRepository {
	return &MockPromoRepository{
		promos: make(map[string]*domain.PromoCode),
	}
}

// AddPromo adds a promo code to the mock repository.
func (m *MockPromoRepository) AddPromo(promo *domain.PromoCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promos[promo.ID] = promo
}

func (m *MockPromoRepository) Create(ctx context.Context, promo *domain.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.promos {
		if p.Code == promo.Code {
			return repository.ErrDuplicate
		}
	}
	m.promos[promo.ID] = promo
	return nil
}

func (m *MockPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.promos {
		if p.Code == code {
			copy := *p
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPromoRepository) List(ctx context.Context) ([]*domain.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.PromoCode, 0, len(m.promos))
	for _, p := range m.promos {
		copy := *p
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockPromoRepository) IncrementUses(ctx context.Context, id string) (bool, error) {
	atomic.AddInt32(&m.IncrementUsesCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	promo, ok := m.promos[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if promo.UsageLimit > 0 && promo.CurrentUses >= promo.UsageLimit {
		return false, nil
	}
	promo.CurrentUses++
	return true, nil
}

// GetPromo returns a promo for test assertions.
func (m *MockPromoRepository) GetPromo(id string) *domain.PromoCode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.promos[id]
}

// ──────────────────────────────────────────────
// MOCK TARIFF REPOSITORY
// ──────────────────────────────────────────────

// MockTariffRepository is a mock implementation of TariffRepository.
type MockTariffRepository struct {
	mu      sync.RWMutex
	tariffs map[string]*domain.Tariff
}

// NewMockTariffRepository creates a new mock tariff repository.
func NewMockTariffRepository() *MockTariffRepository {
	return &MockTariffRepository{
		tariffs: make(map[string]*domain.Tariff),
	}
}

// SetTariff registers the active tariff for a trip type and category.
func (m *MockTariffRepository) SetTariff(tariff *domain.Tariff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tariffs[string(tariff.ApplyTripType)+"/"+tariff.VehicleCategory] = tariff
}

func (m *MockTariffRepository) GetActive(ctx context.Context, tripType domain.TripType, vehicleCategory string) (*domain.Tariff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tariff, ok := m.tariffs[string(tripType)+"/"+vehicleCategory]
	if !ok {
		return nil, nil
	}
	copy := *tariff
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK RATING REPOSITORY
// ──────────────────────────────────────────────

// MockRatingRepository is a mock implementation of RatingRepository. A second
// rating for the same trip and direction fails with ErrDuplicate.
type MockRatingRepository struct {
	mu      sync.RWMutex
	ratings map[string]*domain.Rating
}

// NewMockRatingRepository creates a new mock rating repository.
func NewMockRatingRepository() *MockRatingRepository {
	return &MockRatingRepository{
		ratings: make(map[string]*domain.Rating),
	}
}

func ratingKey(tripID, fromUserID, toUserID string) string {
	return tripID + "/" + fromUserID + "/" + toUserID
}

func (m *MockRatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ratingKey(rating.TripID, rating.FromUserID, rating.ToUserID)
	if _, exists := m.ratings[key]; exists {
		return repository.ErrDuplicate
	}
	m.ratings[key] = rating
	return nil
}

func (m *MockRatingRepository) Exists(ctx context.Context, tripID, fromUserID, toUserID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.ratings[ratingKey(tripID, fromUserID, toUserID)]
	return exists, nil
}

// ──────────────────────────────────────────────
// MOCK ROUTE PROVIDER
// ──────────────────────────────────────────────

// MockRouteProvider is a mock implementation of RouteProvider.
type MockRouteProvider struct {
	DistanceMeters  int
	DurationSeconds int
	Geometry        string

	// Counters for verification
	CallCount int32

	// Error injection
	RouteError error
}

func (m *MockRouteProvider) Route(ctx context.Context, start, end domain.Location) (*service.Route, error) {
	atomic.AddInt32(&m.CallCount, 1)
	if m.RouteError != nil {
		return nil, m.RouteError
	}
	return &service.Route{
		DistanceMeters:  m.DistanceMeters,
		DurationSeconds: m.DurationSeconds,
		Geometry:        m.Geometry,
	}, nil
}

// ──────────────────────────────────────────────
// MOCK DEADLINE STORE
// ──────────────────────────────────────────────

// MockDeadlineStore is a mock implementation of DeadlineStore.
type MockDeadlineStore struct {
	mu        sync.RWMutex
	deadlines map[string]time.Time

	// Counters for verification
	ArmCallCount    int32
	RemoveCallCount int32
}

// NewMockDeadlineStore creates a new mock deadline store.
func NewMockDeadlineStore() *MockDeadlineStore {
	return &MockDeadlineStore{
		deadlines: make(map[string]time.Time),
	}
}

func (m *MockDeadlineStore) Arm(ctx context.Context, tripID string, at time.Time) error {
	atomic.AddInt32(&m.ArmCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines[tripID] = at
	return nil
}

func (m *MockDeadlineStore) Due(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []string
	for tripID, at := range m.deadlines {
		if !at.After(now) {
			due = append(due, tripID)
		}
	}
	return due, nil
}

func (m *MockDeadlineStore) Remove(ctx context.Context, tripID string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deadlines, tripID)
	return nil
}

// Armed reports whether a deadline exists for test assertions.
func (m *MockDeadlineStore) Armed(tripID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.deadlines[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]redis.DriverLocation

	// Counters for verification
	SetCallCount    int32
	RemoveCallCount int32
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]redis.DriverLocation),
	}
}

func (m *MockLocationStore) SetDriverLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.DriverLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		result = append(result, loc)
	}
	return result, nil
}

func (m *MockLocationStore) RemoveDriverLocation(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// HasLocation reports whether a driver has a stored location.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent records one call to the mock event publisher.
type PublishedEvent struct {
	Scope    string // "trip" or "user"
	TargetID string
	Event    string
	Data     any
}

// MockEventPublisher records published events for assertions.
type MockEventPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
}

// NewMockEventPublisher creates a new mock event publisher.
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishTripEvent(tripID, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{Scope: "trip", TargetID: tripID, Event: event, Data: data})
}

func (m *MockEventPublisher) PublishUserEvent(userID, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{Scope: "user", TargetID: userID, Event: event, Data: data})
}

// Events returns all recorded events.
func (m *MockEventPublisher) Events() []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]PublishedEvent, len(m.events))
	copy(result, m.events)
	return result
}

// CountByEvent counts recorded events of one kind.
func (m *MockEventPublisher) CountByEvent(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.events {
		if e.Event == event {
			count++
		}
	}
	return count
}

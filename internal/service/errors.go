package service

import (
	"errors"
	"fmt"

	"github.com/kennyp2233/nilo-back/internal/domain"
)

var (
	// ErrNotTripPassenger is returned when the acting user is not a passenger of the trip.
	ErrNotTripPassenger = errors.New("user is not a passenger of this trip")

	// ErrNotTripDriver is returned when the acting user is not the driver of the trip.
	ErrNotTripDriver = errors.New("user is not the driver of this trip")

	// ErrNotTripParty is returned when the acting user is neither the driver nor a passenger.
	ErrNotTripParty = errors.New("user is not a party to this trip")

	// ErrDriverNotAvailable is returned when the driver is busy or offline.
	ErrDriverNotAvailable = errors.New("driver is not available")

	// ErrDriverNotVerified is returned when the driver has not passed verification.
	ErrDriverNotVerified = errors.New("driver is not verified")

	// ErrNoActiveTariff is returned when no pricing configuration exists for the request.
	ErrNoActiveTariff = errors.New("no active tariff for trip type and vehicle category")

	// ErrTripNotCompleted is returned when settling or rating a trip that has not completed.
	ErrTripNotCompleted = errors.New("trip is not completed")

	// ErrTripAlreadyPaid is returned when a payment already exists for the trip.
	ErrTripAlreadyPaid = errors.New("trip has already been paid")

	// ErrAlreadyRated is returned when the user already rated the same target for the trip.
	ErrAlreadyRated = errors.New("trip already rated")

	// ErrInvalidRating is returned when the rating score is outside 1..5.
	ErrInvalidRating = errors.New("rating score must be between 1 and 5")

	// ErrInsufficientFunds is returned when a wallet debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient wallet funds")

	// ErrInvalidAmount is returned when a monetary amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location coordinates")

	// ErrInvalidTripID is returned when the trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidUserID is returned when the user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrIntercityFieldsRequired is returned when an intercity trip is missing
	// origin, destination, seats or price per seat.
	ErrIntercityFieldsRequired = errors.New("intercity trips require origin, destination, seats and price per seat")

	// ErrRouteUnavailable is returned when the routing provider cannot resolve a route.
	ErrRouteUnavailable = errors.New("route unavailable for the given coordinates")

	// ErrPromoNotActive is returned when the promo code is disabled.
	ErrPromoNotActive = errors.New("promo code is not active")

	// ErrPromoExpired is returned when the promo code is outside its validity window.
	ErrPromoExpired = errors.New("promo code is expired or not yet valid")

	// ErrPromoExhausted is returned when the promo code usage limit is reached.
	ErrPromoExhausted = errors.New("promo code usage limit reached")

	// ErrPromoNotApplicable is returned when the promo code does not cover the trip type.
	ErrPromoNotApplicable = errors.New("promo code not applicable to this trip type")

	// ErrPromoMinAmount is returned when the trip amount is below the promo minimum.
	ErrPromoMinAmount = errors.New("trip amount below promo code minimum")

	// ErrInvalidPromoCode is returned when a promo code definition is malformed.
	ErrInvalidPromoCode = errors.New("promo code requires a code and a discount")

	// ErrInvalidTransition is the target for errors.Is against InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTripNotAvailable is the target for errors.Is against TripNotAvailableError.
	ErrTripNotAvailable = errors.New("trip is no longer available")
)

// InvalidTransitionError reports a status change outside the transition table,
// carrying the current and requested statuses.
type InvalidTransitionError struct {
	Current   domain.TripStatus
	Requested domain.TripStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.Current, e.Requested)
}

// Is makes the error match ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// TripNotAvailableError reports that a trip left SEARCHING before the caller's
// accept landed, carrying the status it was last seen in.
type TripNotAvailableError struct {
	Current domain.TripStatus
}

func (e *TripNotAvailableError) Error() string {
	return fmt.Sprintf("trip is no longer available (status %s)", e.Current)
}

// Is makes the error match ErrTripNotAvailable.
func (e *TripNotAvailableError) Is(target error) bool {
	return target == ErrTripNotAvailable
}

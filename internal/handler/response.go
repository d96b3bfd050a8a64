package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kennyp2233/nilo-back/internal/repository"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidPromoCode),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrIntercityFieldsRequired),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrPromoNotActive),
		errors.Is(err, service.ErrPromoExpired),
		errors.Is(err, service.ErrPromoNotApplicable),
		errors.Is(err, service.ErrPromoMinAmount):
		return http.StatusBadRequest

	// Forbidden errors
	case errors.Is(err, service.ErrNotTripPassenger),
		errors.Is(err, service.ErrNotTripDriver),
		errors.Is(err, service.ErrNotTripParty),
		errors.Is(err, service.ErrDriverNotVerified):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrTripNotAvailable),
		errors.Is(err, service.ErrTripNotCompleted),
		errors.Is(err, service.ErrTripAlreadyPaid),
		errors.Is(err, service.ErrAlreadyRated),
		errors.Is(err, service.ErrDriverNotAvailable),
		errors.Is(err, service.ErrPromoExhausted),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Insufficient wallet funds
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	// Upstream collaborator failures
	case errors.Is(err, service.ErrRouteUnavailable),
		errors.Is(err, service.ErrNoActiveTariff):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// actingUserID returns the authenticated user the gateway injected.
func actingUserID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

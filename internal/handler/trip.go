package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/service"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService     *service.TripService
	dispatchService *service.DispatchService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService, dispatchService *service.DispatchService) *TripHandler {
	return &TripHandler{
		tripService:     tripService,
		dispatchService: dispatchService,
	}
}

// LocationPayload is a coordinate pair with an optional address.
type LocationPayload struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// CreateTripRequest is the HTTP request for creating a trip.
type CreateTripRequest struct {
	Type            string          `json:"type" binding:"required"`
	Start           LocationPayload `json:"start" binding:"required"`
	End             LocationPayload `json:"end" binding:"required"`
	VehicleCategory string          `json:"vehicle_category"`
	ScheduledAt     string          `json:"scheduled_at"`

	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	AvailableSeats int     `json:"available_seats"`
	PricePerSeat   float64 `json:"price_per_seat"`
	Seats          int     `json:"seats"`
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID                 string  `json:"id"`
	Type               string  `json:"type"`
	Status             string  `json:"status"`
	DriverID           string  `json:"driver_id,omitempty"`
	StartLat           float64 `json:"start_lat"`
	StartLng           float64 `json:"start_lng"`
	StartAddress       string  `json:"start_address,omitempty"`
	EndLat             float64 `json:"end_lat"`
	EndLng             float64 `json:"end_lng"`
	EndAddress         string  `json:"end_address,omitempty"`
	DistanceKm         float64 `json:"distance_km"`
	DurationMin        int     `json:"duration_min"`
	Fare               float64 `json:"fare"`
	EstimatedFare      float64 `json:"estimated_fare"`
	ScheduledAt        string  `json:"scheduled_at,omitempty"`
	StartedAt          string  `json:"started_at,omitempty"`
	EndedAt            string  `json:"ended_at,omitempty"`
	CancellationReason string  `json:"cancellation_reason,omitempty"`
	Origin             string  `json:"origin,omitempty"`
	Destination        string  `json:"destination,omitempty"`
	AvailableSeats     int     `json:"available_seats,omitempty"`
	PricePerSeat       float64 `json:"price_per_seat,omitempty"`
}

func toTripResponse(trip *domain.Trip) TripResponse {
	response := TripResponse{
		ID:                 trip.ID,
		Type:               string(trip.Type),
		Status:             string(trip.Status),
		DriverID:           trip.DriverID,
		StartLat:           trip.StartLocation.Latitude,
		StartLng:           trip.StartLocation.Longitude,
		StartAddress:       trip.StartLocation.Address,
		EndLat:             trip.EndLocation.Latitude,
		EndLng:             trip.EndLocation.Longitude,
		EndAddress:         trip.EndLocation.Address,
		DistanceKm:         trip.Distance,
		DurationMin:        trip.Duration,
		Fare:               trip.Fare,
		EstimatedFare:      trip.EstimatedFare,
		CancellationReason: trip.CancellationReason,
		Origin:             trip.Origin,
		Destination:        trip.Destination,
		AvailableSeats:     trip.AvailableSeats,
		PricePerSeat:       trip.PricePerSeat,
	}

	if !trip.ScheduledAt.IsZero() {
		response.ScheduledAt = trip.ScheduledAt.Format(timeLayout)
	}
	if !trip.StartedAt.IsZero() {
		response.StartedAt = trip.StartedAt.Format(timeLayout)
	}
	if !trip.EndedAt.IsZero() {
		response.EndedAt = trip.EndedAt.Format(timeLayout)
	}

	return response
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var scheduledAt time.Time
	if req.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "scheduled_at must be RFC3339"})
			return
		}
		scheduledAt = parsed
	}

	result, err := h.tripService.CreateTrip(c.Request.Context(), service.CreateTripRequest{
		PassengerID:     actingUserID(c),
		Type:            domain.TripType(req.Type),
		StartLocation:   domain.Location{Latitude: req.Start.Lat, Longitude: req.Start.Lng, Address: req.Start.Address},
		EndLocation:     domain.Location{Latitude: req.End.Lat, Longitude: req.End.Lng, Address: req.End.Address},
		VehicleCategory: req.VehicleCategory,
		ScheduledAt:     scheduledAt,
		Origin:          req.Origin,
		Destination:     req.Destination,
		AvailableSeats:  req.AvailableSeats,
		PricePerSeat:    req.PricePerSeat,
		Seats:           req.Seats,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(result.Trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"), actingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ListTrips handles GET /v1/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	trips, err := h.tripService.ListTrips(c.Request.Context(), actingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, toTripResponse(trip))
	}

	respondJSON(c, http.StatusOK, response)
}

// AdvanceTripRequest is the HTTP request for a driver status transition.
type AdvanceTripRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// AdvanceTrip handles PATCH /v1/trips/:id/status
func (h *TripHandler) AdvanceTrip(c *gin.Context) {
	var req AdvanceTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	trip, err := h.tripService.AdvanceTrip(c.Request.Context(), service.AdvanceTripRequest{
		TripID: c.Param("id"),
		UserID: actingUserID(c),
		Status: domain.TripStatus(req.Status),
		Reason: req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// CancelTripRequest is the HTTP request for a passenger cancellation.
type CancelTripRequest struct {
	Reason string `json:"reason"`
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	var req CancelTripRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	trip, err := h.tripService.CancelTrip(c.Request.Context(), service.CancelTripRequest{
		TripID:      c.Param("id"),
		PassengerID: actingUserID(c),
		Reason:      req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// AcceptTrip handles POST /v1/trips/:id/accept
func (h *TripHandler) AcceptTrip(c *gin.Context) {
	trip, err := h.dispatchService.AcceptTrip(c.Request.Context(), service.AcceptTripRequest{
		TripID:       c.Param("id"),
		DriverUserID: actingUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// RateTripRequest is the HTTP request for rating a trip party.
type RateTripRequest struct {
	ToUserID string `json:"to_user_id" binding:"required"`
	Score    int    `json:"score" binding:"required"`
	Comment  string `json:"comment"`
}

// RatingResponse is the HTTP response for a created rating.
type RatingResponse struct {
	ID         string `json:"id"`
	TripID     string `json:"trip_id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Score      int    `json:"score"`
	Comment    string `json:"comment,omitempty"`
}

// RateTrip handles POST /v1/trips/:id/rate
func (h *TripHandler) RateTrip(c *gin.Context) {
	var req RateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	rating, err := h.tripService.RateTrip(c.Request.Context(), service.RateTripRequest{
		TripID:     c.Param("id"),
		FromUserID: actingUserID(c),
		ToUserID:   req.ToUserID,
		Score:      req.Score,
		Comment:    req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, RatingResponse{
		ID:         rating.ID,
		TripID:     rating.TripID,
		FromUserID: rating.FromUserID,
		ToUserID:   rating.ToUserID,
		Score:      rating.Score,
		Comment:    rating.Comment,
	})
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kennyp2233/nilo-back/internal/service"
)

// DriverHandler handles HTTP requests for driver availability and location.
type DriverHandler struct {
	dispatchService *service.DispatchService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(dispatchService *service.DispatchService) *DriverHandler {
	return &DriverHandler{dispatchService: dispatchService}
}

// AvailabilityRequest is the HTTP request for toggling driver availability.
type AvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// DriverResponse is the HTTP response for driver operations.
type DriverResponse struct {
	ID                 string `json:"id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	IsAvailable        bool   `json:"is_available"`
	VerificationStatus string `json:"verification_status"`
}

// SetAvailability handles POST /v1/drivers/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	driver, err := h.dispatchService.SetDriverAvailability(c.Request.Context(), actingUserID(c), *req.Available)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, DriverResponse{
		ID:                 driver.ID,
		FirstName:          driver.FirstName,
		LastName:           driver.LastName,
		IsAvailable:        driver.IsAvailable,
		VerificationStatus: string(driver.VerificationStatus),
	})
}

// LocationRequest is the HTTP request for a driver position update.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation handles POST /v1/drivers/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.dispatchService.UpdateDriverLocation(c.Request.Context(), actingUserID(c), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// NearbyDriverResponse is one driver position near a point.
type NearbyDriverResponse struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// NearbyDrivers handles GET /v1/drivers/nearby
func (h *DriverHandler) NearbyDrivers(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng query parameters are required"})
		return
	}

	radiusKm, _ := strconv.ParseFloat(c.Query("radius_km"), 64)

	drivers, err := h.dispatchService.FindNearbyDrivers(c.Request.Context(), lat, lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NearbyDriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, NearbyDriverResponse{
			DriverID: d.DriverID,
			Lat:      d.Lat,
			Lng:      d.Lng,
		})
	}

	respondJSON(c, http.StatusOK, response)
}

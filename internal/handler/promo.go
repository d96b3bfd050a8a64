package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// PromoHandler handles HTTP requests for promo codes.
type PromoHandler struct {
	fareService *service.FareService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(fareService *service.FareService) *PromoHandler {
	return &PromoHandler{fareService: fareService}
}

// CreatePromoRequest is the HTTP request for creating a promo code.
type CreatePromoRequest struct {
	Code                string   `json:"code" binding:"required"`
	Description         string   `json:"description"`
	DiscountAmount      float64  `json:"discount_amount"`
	DiscountPercent     float64  `json:"discount_percent"`
	MaxDiscount         float64  `json:"max_discount"`
	StartDate           string   `json:"start_date" binding:"required"`
	EndDate             string   `json:"end_date" binding:"required"`
	UsageLimit          int      `json:"usage_limit"`
	MinTripAmount       float64  `json:"min_trip_amount"`
	ApplicableTripTypes []string `json:"applicable_trip_types"`
}

// PromoResponse is the HTTP response for promo code operations.
type PromoResponse struct {
	ID                  string   `json:"id"`
	Code                string   `json:"code"`
	Description         string   `json:"description,omitempty"`
	DiscountAmount      float64  `json:"discount_amount,omitempty"`
	DiscountPercent     float64  `json:"discount_percent,omitempty"`
	MaxDiscount         float64  `json:"max_discount,omitempty"`
	StartDate           string   `json:"start_date"`
	EndDate             string   `json:"end_date"`
	IsActive            bool     `json:"is_active"`
	UsageLimit          int      `json:"usage_limit,omitempty"`
	CurrentUses         int      `json:"current_uses"`
	MinTripAmount       float64  `json:"min_trip_amount,omitempty"`
	ApplicableTripTypes []string `json:"applicable_trip_types"`
}

func toPromoResponse(promo *domain.PromoCode) PromoResponse {
	types := make([]string, 0, len(promo.ApplicableTripTypes))
	for _, t := range promo.ApplicableTripTypes {
		types = append(types, string(t))
	}

	return PromoResponse{
		ID:                  promo.ID,
		Code:                promo.Code,
		Description:         promo.Description,
		DiscountAmount:      promo.DiscountAmount,
		DiscountPercent:     promo.DiscountPercent,
		MaxDiscount:         promo.MaxDiscount,
		StartDate:           promo.StartDate.Format(timeLayout),
		EndDate:             promo.EndDate.Format(timeLayout),
		IsActive:            promo.IsActive,
		UsageLimit:          promo.UsageLimit,
		CurrentUses:         promo.CurrentUses,
		MinTripAmount:       promo.MinTripAmount,
		ApplicableTripTypes: types,
	}
}

// CreatePromo handles POST /v1/promos
func (h *PromoHandler) CreatePromo(c *gin.Context) {
	var req CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "start_date must be RFC3339"})
		return
	}

	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "end_date must be RFC3339"})
		return
	}

	types := make([]domain.TripType, 0, len(req.ApplicableTripTypes))
	for _, t := range req.ApplicableTripTypes {
		types = append(types, domain.TripType(t))
	}

	promo, err := h.fareService.CreatePromoCode(c.Request.Context(), service.CreatePromoRequest{
		Code:                req.Code,
		Description:         req.Description,
		DiscountAmount:      req.DiscountAmount,
		DiscountPercent:     req.DiscountPercent,
		MaxDiscount:         req.MaxDiscount,
		StartDate:           startDate,
		EndDate:             endDate,
		UsageLimit:          req.UsageLimit,
		MinTripAmount:       req.MinTripAmount,
		ApplicableTripTypes: types,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPromoResponse(promo))
}

// ListPromos handles GET /v1/promos
func (h *PromoHandler) ListPromos(c *gin.Context) {
	promos, err := h.fareService.ListPromoCodes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PromoResponse, 0, len(promos))
	for _, promo := range promos {
		response = append(response, toPromoResponse(promo))
	}

	respondJSON(c, http.StatusOK, response)
}

// ApplyPromoRequest is the HTTP request for applying a promo code.
type ApplyPromoRequest struct {
	Code     string  `json:"code" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
	TripType string  `json:"trip_type" binding:"required"`
}

// ApplyPromoResponse is the HTTP response for a promo application.
type ApplyPromoResponse struct {
	Code        string  `json:"code"`
	Discount    float64 `json:"discount"`
	FinalAmount float64 `json:"final_amount"`
}

// ApplyPromo handles POST /v1/promos/apply
func (h *PromoHandler) ApplyPromo(c *gin.Context) {
	var req ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.fareService.ApplyPromo(c.Request.Context(), service.ApplyPromoRequest{
		Code:     req.Code,
		Amount:   req.Amount,
		TripType: domain.TripType(req.TripType),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ApplyPromoResponse{
		Code:        result.Code,
		Discount:    result.Discount,
		FinalAmount: result.FinalAmount,
	})
}

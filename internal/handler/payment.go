package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// PaymentHandler handles HTTP requests for trip settlement.
type PaymentHandler struct {
	settlementService *service.SettlementService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlementService *service.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlementService: settlementService}
}

// SettleRequest is the HTTP request for settling a trip.
type SettleRequest struct {
	TripID string `json:"trip_id" binding:"required"`
	Method string `json:"method" binding:"required"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID           string  `json:"id"`
	TripID       string  `json:"trip_id"`
	UserID       string  `json:"user_id"`
	Amount       float64 `json:"amount"`
	Method       string  `json:"method"`
	Status       string  `json:"status"`
	PlatformFee  float64 `json:"platform_fee"`
	DriverAmount float64 `json:"driver_amount"`
	TaxAmount    float64 `json:"tax_amount"`
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:           payment.ID,
		TripID:       payment.TripID,
		UserID:       payment.UserID,
		Amount:       payment.Amount,
		Method:       string(payment.Method),
		Status:       string(payment.Status),
		PlatformFee:  payment.PlatformFee,
		DriverAmount: payment.DriverAmount,
		TaxAmount:    payment.TaxAmount,
	}
}

// Settle handles POST /v1/payments
func (h *PaymentHandler) Settle(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	payment, err := h.settlementService.Settle(c.Request.Context(), service.SettleRequest{
		TripID:  req.TripID,
		PayerID: actingUserID(c),
		Method:  domain.PaymentMethod(req.Method),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.settlementService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/service"
)

// WalletHandler handles HTTP requests for wallets.
type WalletHandler struct {
	settlementService *service.SettlementService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(settlementService *service.SettlementService) *WalletHandler {
	return &WalletHandler{settlementService: settlementService}
}

// WalletResponse is the HTTP response for wallet operations.
type WalletResponse struct {
	ID      string  `json:"id"`
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

// TransactionResponse is one wallet ledger entry.
type TransactionResponse struct {
	ID           string  `json:"id"`
	Amount       float64 `json:"amount"`
	BalanceAfter float64 `json:"balance_after"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Description  string  `json:"description,omitempty"`
	ReferenceID  string  `json:"reference_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func toWalletResponse(wallet *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:      wallet.ID,
		UserID:  wallet.UserID,
		Balance: wallet.Balance,
	}
}

// GetWallet handles GET /v1/wallet
func (h *WalletHandler) GetWallet(c *gin.Context) {
	wallet, err := h.settlementService.GetWallet(c.Request.Context(), actingUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWalletResponse(wallet))
}

// GetTransactions handles GET /v1/wallet/transactions
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	transactions, err := h.settlementService.GetTransactions(c.Request.Context(), actingUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TransactionResponse, 0, len(transactions))
	for _, txn := range transactions {
		response = append(response, TransactionResponse{
			ID:           txn.ID,
			Amount:       txn.Amount,
			BalanceAfter: txn.BalanceAfter,
			Type:         string(txn.Type),
			Status:       string(txn.Status),
			Description:  txn.Description,
			ReferenceID:  txn.ReferenceID,
			CreatedAt:    txn.CreatedAt.Format(timeLayout),
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// AmountRequest is the HTTP request for deposits and withdrawals.
type AmountRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// Deposit handles POST /v1/wallet/deposit
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	wallet, err := h.settlementService.Deposit(c.Request.Context(), actingUserID(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWalletResponse(wallet))
}

// Withdraw handles POST /v1/wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	wallet, err := h.settlementService.Withdraw(c.Request.Context(), actingUserID(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWalletResponse(wallet))
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"balance-game-backend/internal/models"
	"balance-game-backend/internal/services"
)

type WalletHandler struct {
	bank services.Bank
}

func NewWalletHandler(bank services.Bank) *WalletHandler {
	return &WalletHandler{bank: bank}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	address := c.GetString("address")

	wallet, err := h.bank.GetWallet(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": models.BalanceResponse{
			Address:     wallet.Address,
			Balance:     wallet.Balance,
			TotalStaked: wallet.TotalStaked,
			TotalWon:    wallet.TotalWon,
		},
	})
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	address := c.GetString("address")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > services.MaxTransactionHistory {
		limit = 50
	}

	transactions, err := h.bank.GetTransactions(c.Request.Context(), address, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": transactions,
		"count":        len(transactions),
	})
}

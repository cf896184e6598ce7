package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ttran/storefront-api/internal/adapter/http/middleware"
	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

type LoyaltyHandler struct {
	ledger usecase.LoyaltyLedger
}

func NewLoyaltyHandler(ledger usecase.LoyaltyLedger) *LoyaltyHandler {
	return &LoyaltyHandler{ledger: ledger}
}

func (h *LoyaltyHandler) GetBalance(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	balance, err := h.ledger.Balance(ctx, c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance": balance,
		"value":   domain.PointsValue(balance).StringFixed(2),
	})
}

func (h *LoyaltyHandler) GetHistory(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	entries, err := h.ledger.History(ctx, c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	if entries == nil {
		entries = []domain.LoyaltyEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

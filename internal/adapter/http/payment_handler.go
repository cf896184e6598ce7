package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/ttran/storefront-api/internal/adapter/http/middleware"
	"github.com/ttran/storefront-api/internal/logging"
	"github.com/ttran/storefront-api/internal/usecase"
)

type PaymentHandler struct {
	gateway       usecase.PaymentGateway
	finalize      *usecase.FinalizeOrder
	webhookSecret string
}

func NewPaymentHandler(gateway usecase.PaymentGateway, finalize *usecase.FinalizeOrder, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, finalize: finalize, webhookSecret: webhookSecret}
}

type createIntentReq struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency"`
}

// CreateIntent backs the client-side capture flow: the storefront confirms
// the intent in the browser and then submits the order with method "card".
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req createIntentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
		return
	}

	intent, err := h.gateway.CreatePaymentIntent(c.Request.Context(), req.Amount, req.Currency, map[string]string{
		"user_id": c.GetString(middleware.UserIDKey),
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"clientSecret": intent.ClientSecret,
		"intentId":     intent.ID,
	})
}

// GetSession lets the success page show the session state. Display only;
// finalize is driven by the confirm call and the webhook, never this read.
func (h *PaymentHandler) GetSession(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session_id"})
		return
	}

	sess, err := h.gateway.RetrieveSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            sess.ID,
		"paymentStatus": sess.PaymentStatus,
	})
}

// Webhook receives asynchronous payment confirmations from the provider.
// Unrecognized event types are acknowledged and ignored.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}

	var event stripeapi.Event
	if h.webhookSecret != "" {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
		if err != nil {
			logging.From(c).Warn("webhook signature rejected", "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
			return
		}
	} else if err := json.Unmarshal(payload, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}

	if event.Type != stripeapi.EventTypeCheckoutSessionCompleted {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var sess stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_event_object"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.finalize.BySessionID(ctx, sess.ID); err != nil {
		if errors.Is(err, usecase.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

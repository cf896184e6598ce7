package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ttran/storefront-api/internal/adapter/http/middleware"
	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

type OrderHandler struct {
	place    *usecase.PlaceOrder
	finalize *usecase.FinalizeOrder
	query    usecase.OrderRepo
}

func NewOrderHandler(place *usecase.PlaceOrder, finalize *usecase.FinalizeOrder, query usecase.OrderRepo) *OrderHandler {
	return &OrderHandler{place: place, finalize: finalize, query: query}
}

type orderItemReq struct {
	Product  string          `json:"product" binding:"required"`
	Quantity int64           `json:"quantity" binding:"required,gt=0"`
	Price    decimal.Decimal `json:"price"`
	Size     string          `json:"size"`
	Color    string          `json:"color"`
}

type shippingAddressReq struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Address   string `json:"address" binding:"required"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	ZipCode   string `json:"zipCode" binding:"required"`
	Country   string `json:"country" binding:"required"`
}

type createOrderReq struct {
	Items           []orderItemReq     `json:"items" binding:"required"`
	ShippingAddress shippingAddressReq `json:"shippingAddress" binding:"required"`
	PaymentMethod   string             `json:"paymentMethod" binding:"required"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Shipping        decimal.Decimal    `json:"shipping"`
	Tax             decimal.Decimal    `json:"tax"`
	Total           decimal.Decimal    `json:"total"`
	PointsUsed      int64              `json:"pointsUsed"`
}

type createOrderResp struct {
	Order       *domain.Order `json:"order"`
	CheckoutURL string        `json:"checkoutUrl,omitempty"`
}

// CreateOrder runs the settlement workflow for the authenticated buyer.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key") // prevent duplicated checkouts

	// The gateway call is part of this request, so the timeout is wider than
	// a plain CRUD endpoint's.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	items := make([]usecase.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.OrderItemInput{
			ProductID: it.Product,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Size:      it.Size,
			Color:     it.Color,
		})
	}

	out, err := h.place.Execute(ctx, usecase.PlaceOrderInput{
		UserID:         c.GetString(middleware.UserIDKey),
		IdempotencyKey: idemKey,
		PaymentMethod:  req.PaymentMethod,
		Items:          items,
		Shipping:       domain.ShippingAddress(req.ShippingAddress),
		Subtotal:       req.Subtotal,
		ShippingCost:   req.Shipping,
		Tax:            req.Tax,
		Total:          req.Total,
		PointsUsed:     req.PointsUsed,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createOrderResp{
		Order:       out.Order,
		CheckoutURL: out.CheckoutURL,
	})
}

// ConfirmPayment is the idempotent finalize keyed by order ID, called when
// the buyer lands back on the success page.
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.finalize.ByOrderID(ctx, c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	order, err := h.query.GetByID(ctx, c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.query.ListByUser(ctx, c.GetString(middleware.UserIDKey))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ListAll is the admin view across all buyers.
func (h *OrderHandler) ListAll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.query.List(ctx)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus applies an administrative fulfillment transition. Payment
// state is never touched here.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	status := domain.Status(req.Status)
	switch status {
	case domain.StatusPending, domain.StatusConfirmed, domain.StatusShipped,
		domain.StatusDelivered, domain.StatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_status"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.query.UpdateStatus(ctx, c.Param("id"), status); err != nil {
		writeOrderError(c, err)
		return
	}
	order, err := h.query.GetByID(ctx, c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func writeOrderError(c *gin.Context, err error) {
	var pointsErr *usecase.InsufficientPointsError
	var sessErr *usecase.GatewaySessionError
	switch {
	case errors.As(err, &pointsErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient_points",
			"message":   pointsErr.Error(),
			"required":  pointsErr.Required,
			"available": pointsErr.Available,
		})
	case errors.Is(err, usecase.ErrEmptyOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_order"})
	case errors.Is(err, usecase.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient_stock"})
	case errors.Is(err, usecase.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found"})
	case errors.Is(err, usecase.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
	case errors.Is(err, usecase.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_request"})
	case errors.As(err, &sessErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment_session_failed", "orderId": sessErr.OrderID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}

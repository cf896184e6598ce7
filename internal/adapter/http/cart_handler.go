package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ttran/storefront-api/internal/adapter/http/middleware"
	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

type CartHandler struct {
	carts     usecase.CartStore
	inventory usecase.InventoryLedger
}

func NewCartHandler(carts usecase.CartStore, inventory usecase.InventoryLedger) *CartHandler {
	return &CartHandler{carts: carts, inventory: inventory}
}

type cartResp struct {
	Items       []domain.CartItem `json:"items"`
	Total       string            `json:"total"`
	PointsTotal int64             `json:"pointsTotal"`
}

func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	cart, err := h.carts.Get(ctx, c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

type addItemReq struct {
	Product    string `json:"product" binding:"required"`
	Quantity   int64  `json:"quantity" binding:"required,gt=0"`
	Size       string `json:"size"`
	Color      string `json:"color"`
	WithPoints bool   `json:"withPoints"`
}

// AddItem snapshots the unit price (and points price) at add time; a later
// catalog edit does not reprice a cart line.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	product, err := h.inventory.Product(ctx, req.Product)
	if err != nil {
		if errors.Is(err, usecase.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	userID := c.GetString(middleware.UserIDKey)
	cart, err := h.carts.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	withPoints := req.WithPoints || product.Kind == domain.KindLoyaltyOnly
	merged := false
	for i, it := range cart.Items {
		if it.ProductID == req.Product && it.Size == req.Size &&
			it.Color == req.Color && it.WithPoints == withPoints {
			cart.Items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:   req.Product,
			Quantity:    req.Quantity,
			Price:       product.EffectivePrice(),
			PointsPrice: product.PointsPrice,
			Size:        req.Size,
			Color:       req.Color,
			WithPoints:  withPoints,
		})
	}

	if err := h.carts.Upsert(ctx, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

type updateItemReq struct {
	Quantity int64 `json:"quantity" binding:"gte=0"`
}

// UpdateItem sets a line's quantity; zero removes the line.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	userID := c.GetString(middleware.UserIDKey)
	cart, err := h.carts.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	productID := c.Param("productId")
	found := false
	out := cart.Items[:0]
	for _, it := range cart.Items {
		if it.ProductID == productID {
			found = true
			if req.Quantity == 0 {
				continue
			}
			it.Quantity = req.Quantity
		}
		out = append(out, it)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "item_not_in_cart"})
		return
	}
	cart.Items = out

	if err := h.carts.Upsert(ctx, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	userID := c.GetString(middleware.UserIDKey)
	cart, err := h.carts.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	productID := c.Param("productId")
	out := cart.Items[:0]
	for _, it := range cart.Items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	cart.Items = out

	if err := h.carts.Upsert(ctx, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

func (h *CartHandler) Clear(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.carts.Clear(ctx, c.GetString(middleware.UserIDKey)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.Status(http.StatusNoContent)
}

func toCartResp(cart *domain.Cart) cartResp {
	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResp{
		Items:       items,
		Total:       cart.CashTotal().StringFixed(2),
		PointsTotal: cart.PointsTotal(),
	}
}

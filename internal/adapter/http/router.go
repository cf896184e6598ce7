package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ttran/storefront-api/internal/adapter/http/middleware"
	"github.com/ttran/storefront-api/internal/logging"
)

func NewRouter(
	oh *OrderHandler,
	ph *PaymentHandler,
	ch *CartHandler,
	lh *LoyaltyHandler,
	th *TokenHandler,
	authz *middleware.Authz,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	// Provider calls this directly; authenticated by signature, not by JWT.
	r.POST("/webhooks/stripe", ph.Webhook)

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", authz.Require("orders.write"), oh.CreateOrder)
		v1.GET("/orders", authz.Require("orders.read"), oh.ListMyOrders)
		v1.GET("/orders/:id", authz.Require("orders.read"), oh.GetOrderByID)
		v1.POST("/orders/:id/confirm-payment", authz.Require("orders.write"), oh.ConfirmPayment)

		v1.GET("/admin/orders", authz.Require("orders.admin"), oh.ListAll)
		v1.PATCH("/admin/orders/:id/status", authz.Require("orders.admin"), oh.UpdateStatus)

		v1.POST("/payments/intent", authz.Require("payments.write"), ph.CreateIntent)
		v1.GET("/payments/session", authz.Require("orders.read"), ph.GetSession)

		v1.GET("/cart", authz.Require("cart.write"), ch.GetCart)
		v1.POST("/cart/items", authz.Require("cart.write"), ch.AddItem)
		v1.PATCH("/cart/items/:productId", authz.Require("cart.write"), ch.UpdateItem)
		v1.DELETE("/cart/items/:productId", authz.Require("cart.write"), ch.RemoveItem)
		v1.DELETE("/cart", authz.Require("cart.write"), ch.Clear)

		v1.GET("/loyalty/balance", authz.Require("loyalty.read"), lh.GetBalance)
		v1.GET("/loyalty/history", authz.Require("loyalty.read"), lh.GetHistory)
	}

	return r
}

package observ

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement counters. HTTP-level metrics live in the gin middleware; these
// track the workflow itself.
var (
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_orders_created_total",
			Help: "Orders created, by payment method",
		},
		[]string{"payment_method"},
	)

	OrdersFinalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_orders_finalized_total",
			Help: "Pending orders finalized to paid",
		},
	)

	GatewaySessionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_gateway_session_failures_total",
			Help: "Hosted checkout session creations that failed after the order row was persisted",
		},
	)
)

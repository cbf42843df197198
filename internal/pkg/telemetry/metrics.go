package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts order creation attempts by outcome: created,
	// replayed, validation_failed, product_unavailable, out_of_stock,
	// in_flight, error.
	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Order placement attempts by outcome",
		},
		[]string{"outcome"},
	)

	OrderPlacementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_placement_duration_seconds",
			Help:    "Time spent reserving stock and persisting an order",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	StockCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_compensations_total",
			Help: "Restocks issued to undo partial reservations",
		},
		[]string{"result"},
	)

	IdempotentReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotent_replays_total",
			Help: "Order requests answered from the idempotency ledger",
		},
	)

	PaymentGatewayFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_gateway_failures_total",
			Help: "Payment intent creations that failed and were skipped",
		},
	)

	// CircuitBreakerState is 0 closed, 1 open, 2 half-open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit"},
	)

	NotifierFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_failures_total",
			Help: "Change events that could not be delivered",
		},
		[]string{"sink"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

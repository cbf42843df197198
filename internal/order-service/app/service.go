package app

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/storefront-orders/internal/coordinator/sagalog"
	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
)

// Mode is the placement strategy used for one order.
type Mode string

const (
	ModeTransactional Mode = "transactional"
	ModeFallback      Mode = "fallback"
)

const (
	DefaultIdempotencyWindow = 5 * time.Minute
	defaultInFlightWait      = 3 * time.Second
	defaultInFlightPoll      = 50 * time.Millisecond
	defaultCurrency          = "pen"
)

// Dependencies are the collaborators of OrderService. Inventory and Orders
// are required; everything else may be nil.
type Dependencies struct {
	Inventory  ports.InventoryStore
	Orders     ports.OrderRepository
	Transactor ports.Transactor
	Gateway    ports.PaymentGateway
	Notifier   ports.Notifier
	Claimer    ports.IdempotencyClaimer
	SagaLog    sagalog.Repository
	Logger     *slog.Logger
}

type Config struct {
	// SupportsTransactions is decided once at startup, from configuration or
	// a store probe. When false the Transactor is never used.
	SupportsTransactions bool

	IdempotencyWindow time.Duration
	// InFlightWait bounds how long a request waits for a concurrent request
	// holding the same idempotency key.
	InFlightWait time.Duration
	InFlightPoll time.Duration

	Currency string
	Pricing  Pricing

	// NotifyTimeout bounds each background change notification.
	NotifyTimeout time.Duration

	Now func() time.Time
}

// OrderService places orders over a shared inventory store. It keeps no
// mutable state of its own; all mutual exclusion happens in the store.
type OrderService struct {
	deps      Dependencies
	cfg       Config
	ledger    *ledger
	announcer *announcer
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewOrderService(deps Dependencies, cfg Config) *OrderService {
	if cfg.IdempotencyWindow <= 0 {
		cfg.IdempotencyWindow = DefaultIdempotencyWindow
	}
	if cfg.InFlightWait <= 0 {
		cfg.InFlightWait = defaultInFlightWait
	}
	if cfg.InFlightPoll <= 0 {
		cfg.InFlightPoll = defaultInFlightPoll
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if deps.Transactor == nil {
		cfg.SupportsTransactions = false
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "order-service")

	var ann *announcer
	if deps.Notifier != nil {
		ann = newAnnouncer(deps.Notifier, cfg.NotifyTimeout, defaultNotifyInFlight)
	}

	return &OrderService{
		deps:      deps,
		cfg:       cfg,
		logger:    logger,
		announcer: ann,
		tracer:    otel.Tracer("github.com/jcmexdev/storefront-orders/order-service"),
		ledger: &ledger{
			orders:  deps.Orders,
			claimer: deps.Claimer,
			window:  cfg.IdempotencyWindow,
			wait:    cfg.InFlightWait,
			poll:    cfg.InFlightPoll,
			now:     cfg.Now,
			logger:  logger,
		},
	}
}

// Mode reports the placement strategy new orders start with.
func (s *OrderService) Mode() Mode {
	if s.cfg.SupportsTransactions {
		return ModeTransactional
	}
	return ModeFallback
}

func (s *OrderService) gatewayEnabled() bool {
	return s.deps.Gateway != nil && s.deps.Gateway.Enabled()
}

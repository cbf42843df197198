package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jcmexdev/storefront-orders/internal/coordinator"
	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

type CreateOrderResult struct {
	Order *domain.Order
	// ClientSecret is set when a payment intent was created for this call.
	ClientSecret string
	// Replayed is true when the order came from the idempotency ledger.
	Replayed bool
	Mode     Mode
}

// CreateOrder validates the request, answers replays from the idempotency
// ledger, snapshots prices, reserves stock for every line and persists a
// pending order. A failed reservation restocks whatever was already taken.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	res, err := s.createOrder(ctx, in)

	outcome := placementOutcome(res, err)
	telemetry.OrdersPlaced.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("order.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("order.id", res.Order.ID),
		attribute.String("order.mode", string(res.Mode)),
	)
	return res, nil
}

func (s *OrderService) createOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	key := in.IdempotencyKey
	release := func() {}
	if key != "" {
		existing, err := s.ledger.FindRecent(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(ctx, existing), nil
		}

		rel, existing, err := s.ledger.Acquire(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(ctx, existing), nil
		}
		release = rel
	}

	res, err := s.placeNewOrder(ctx, in)
	if err != nil {
		release()
		return nil, err
	}
	return res, nil
}

func (s *OrderService) replay(ctx context.Context, order *domain.Order) *CreateOrderResult {
	telemetry.IdempotentReplays.Inc()
	s.logger.InfoContext(ctx, "idempotent replay", "order_id", order.ID)
	return &CreateOrderResult{Order: order, Replayed: true}
}

func (s *OrderService) placeNewOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	products, err := s.snapshotProducts(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	order := s.newOrder(in, products)

	start := time.Now()
	secret, mode, err := s.place(ctx, order, in)
	telemetry.OrderPlacementDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		if domain.IsBusinessError(err) {
			return nil, err
		}
		var pe *domain.PersistenceError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "place order", Err: err}
	}

	s.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"mode", mode,
		"items", len(order.Items),
		"total", order.Amounts.Total.StringFixed(domain.MoneyPlaces),
	)
	s.announceStock(ctx, productIDs(order.Items))

	return &CreateOrderResult{Order: order, ClientSecret: secret, Mode: mode}, nil
}

// snapshotProducts loads every referenced product in one read and rejects
// the order if any is missing, unpublished or soft-deleted.
func (s *OrderService) snapshotProducts(ctx context.Context, items []OrderItemInput) (map[string]domain.Product, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	ids = distinct(ids)

	products, err := s.deps.Inventory.FindProducts(ctx, ids)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load products", Err: err}
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, it := range items {
		if p, ok := byID[it.ProductID]; !ok || !p.Orderable() {
			return nil, &domain.ProductUnavailableError{ProductID: it.ProductID}
		}
	}
	return byID, nil
}

func (s *OrderService) newOrder(in CreateOrderInput, products map[string]domain.Product) *domain.Order {
	items := snapshotItems(in.Items, products)

	method := in.PaymentMethod
	if method == "" {
		method = domain.DefaultPaymentMethod
	}

	order := &domain.Order{
		ID:      s.deps.Orders.NextID(),
		Items:   items,
		Amounts: s.cfg.Pricing.Amounts(items),
		Payment: domain.Payment{
			Method: method,
			Status: domain.PaymentRequiresPayment,
		},
		Status: domain.StatusPending,
	}
	if in.User != nil && (in.User.Email != "" || in.User.Name != "") {
		u := *in.User
		order.User = &u
	}
	if in.IdempotencyKey != "" {
		order.Idempotency = &domain.IdempotencyMetadata{
			Key:       in.IdempotencyKey,
			CreatedAt: s.cfg.Now().UTC(),
		}
	}
	return order
}

// place reserves and persists order. In transactional mode a store that
// turns out not to support transactions is retried once in fallback mode.
func (s *OrderService) place(ctx context.Context, order *domain.Order, in CreateOrderInput) (string, Mode, error) {
	payload := sagaPayload(in)

	var intent *ports.PaymentIntent
	if s.cfg.SupportsTransactions {
		// The provider is called before the transaction opens so a slow
		// gateway never holds store locks.
		intent = s.createIntent(ctx, order)
		secret, err := s.placeTransactional(ctx, order, payload, intent)
		if !errors.Is(err, domain.ErrTransactionsUnsupported) {
			return secret, ModeTransactional, err
		}
		s.logger.WarnContext(ctx, "store refused the transaction, retrying placement in fallback mode",
			"order_id", order.ID, "error", err)
	}

	secret, err := s.placeFallback(ctx, order, payload, intent)
	return secret, ModeFallback, err
}

// placeTransactional runs reservation, insert and payment linkage in one
// store transaction. Any failure aborts it, so nothing is compensated.
func (s *OrderService) placeTransactional(ctx context.Context, order *domain.Order, payload string, intent *ports.PaymentIntent) (string, error) {
	err := s.deps.Transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		saga := coordinator.NewOrchestrator(order.ID, s.placementSteps(order), s.deps.SagaLog,
			coordinator.WithMode(string(ModeTransactional)),
			coordinator.WithPayload(payload),
			coordinator.WithoutCompensation(),
			coordinator.WithLogger(s.logger),
		)
		if err := saga.Start(txCtx); err != nil {
			return err
		}
		if intent == nil {
			return nil
		}
		return s.attachIntent(txCtx, order, *intent)
	})
	if err != nil || intent == nil {
		return "", err
	}
	order.Payment.ProviderID = intent.ProviderID
	return intent.ClientSecret, nil
}

// placeFallback reserves item by item and restocks the reserved items if a
// later step fails. The order is not linearizable across items. intent is
// reused when a transactional attempt already created one.
func (s *OrderService) placeFallback(ctx context.Context, order *domain.Order, payload string, intent *ports.PaymentIntent) (string, error) {
	saga := coordinator.NewOrchestrator(order.ID, s.placementSteps(order), s.deps.SagaLog,
		coordinator.WithMode(string(ModeFallback)),
		coordinator.WithPayload(payload),
		coordinator.WithLogger(s.logger),
	)
	if err := saga.Start(ctx); err != nil {
		return "", err
	}

	if intent == nil {
		intent = s.createIntent(ctx, order)
	}
	if intent == nil {
		return "", nil
	}
	if err := s.attachIntent(ctx, order, *intent); err != nil {
		// The order and its stock are committed; it stays payable through
		// another path, exactly as when the gateway is down.
		s.logger.ErrorContext(ctx, "order persisted without payment reference",
			"order_id", order.ID, "error", err)
		return "", nil
	}
	order.Payment.ProviderID = intent.ProviderID
	return intent.ClientSecret, nil
}

func (s *OrderService) placementSteps(order *domain.Order) []coordinator.Step {
	steps := coordinator.ReservationSteps(s.deps.Inventory, order.Reservations())
	return append(steps, coordinator.NewPersistOrderStep(s.deps.Orders, order))
}

// createIntent asks the gateway for a payment intent when the order's method
// needs one. It returns nil when the gateway is skipped or fails; failures
// are logged and counted, never returned.
func (s *OrderService) createIntent(ctx context.Context, order *domain.Order) *ports.PaymentIntent {
	if !order.Payment.Method.RequiresGateway() || !s.gatewayEnabled() {
		return nil
	}

	intent, err := s.deps.Gateway.CreatePaymentIntent(ctx, ports.PaymentIntentRequest{
		OrderID:        order.ID,
		AmountMinor:    domain.MinorUnits(order.Amounts.Total),
		Currency:       s.cfg.Currency,
		IdempotencyKey: "order-" + order.ID,
	})
	if err != nil {
		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			gwErr = &domain.GatewayError{Provider: "payment", Err: err}
		}
		telemetry.PaymentGatewayFailures.Inc()
		s.logger.WarnContext(ctx, "payment intent not created, order continues without it",
			"order_id", order.ID, "error", gwErr)
		return nil
	}
	return &intent
}

func (s *OrderService) attachIntent(ctx context.Context, order *domain.Order, intent ports.PaymentIntent) error {
	providerID := intent.ProviderID
	if _, err := s.deps.Orders.Update(ctx, order.ID, domain.OrderPatch{ProviderID: &providerID}); err != nil {
		return &domain.PersistenceError{Op: "link payment intent", Err: err}
	}
	return nil
}

func placementOutcome(res *CreateOrderResult, err error) string {
	if err == nil {
		if res.Replayed {
			return "replayed"
		}
		return "created"
	}
	var (
		ve  *domain.ValidationError
		pu  *domain.ProductUnavailableError
		oos *domain.OutOfStockError
	)
	switch {
	case errors.As(err, &ve):
		return "validation_failed"
	case errors.As(err, &pu):
		return "product_unavailable"
	case errors.As(err, &oos):
		return "out_of_stock"
	case errors.Is(err, domain.ErrIdempotencyInFlight):
		return "in_flight"
	default:
		return "error"
	}
}

// sagaPayload is the order input as recorded in the saga log. Customer
// details are left out; the log is an operational record, not a copy of the
// order.
func sagaPayload(in CreateOrderInput) string {
	in.User = nil
	b, err := json.Marshal(in)
	if err != nil {
		return ""
	}
	return string(b)
}

func productIDs(items []domain.OrderItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	return distinct(ids)
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

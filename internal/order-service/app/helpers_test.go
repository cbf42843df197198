package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront-orders/internal/coordinator/sagalog"
	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/memory"
	"github.com/jcmexdev/storefront-orders/internal/order-service/app"
	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

type fixture struct {
	store    *memory.Store
	svc      *app.OrderService
	notifier *recordingNotifier
	gateway  *fakeGateway
	sagaLog  *memorySagaLog
	tx       *countingTransactor
	clock    *fakeClock
}

type fixtureOption func(*app.Dependencies, *app.Config)

func withGateway(g *fakeGateway) fixtureOption {
	return func(d *app.Dependencies, _ *app.Config) { d.Gateway = g }
}

func withClaimer(c ports.IdempotencyClaimer) fixtureOption {
	return func(d *app.Dependencies, _ *app.Config) { d.Claimer = c }
}

func withPricing(p app.Pricing) fixtureOption {
	return func(_ *app.Dependencies, c *app.Config) { c.Pricing = p }
}

// withBrokenOrders makes every order insert fail while inventory keeps working.
func withBrokenOrders() fixtureOption {
	return func(d *app.Dependencies, _ *app.Config) {
		d.Orders = brokenOrders{Store: d.Inventory.(*memory.Store)}
	}
}

func withNotifier(n ports.Notifier) fixtureOption {
	return func(d *app.Dependencies, _ *app.Config) { d.Notifier = n }
}

func withNotifyTimeout(timeout time.Duration) fixtureOption {
	return func(_ *app.Dependencies, c *app.Config) { c.NotifyTimeout = timeout }
}

// newFixture builds a service over a fresh memory store in the given mode.
func newFixture(t *testing.T, mode app.Mode, storeOpts []memory.Option, opts ...fixtureOption) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := memory.NewStore(storeOpts...)
	f := &fixture{
		store:    store,
		notifier: &recordingNotifier{},
		gateway:  &fakeGateway{},
		sagaLog:  &memorySagaLog{},
		tx:       &countingTransactor{inner: store},
		clock:    clock,
	}

	deps := app.Dependencies{
		Inventory:  store,
		Orders:     store,
		Transactor: f.tx,
		Notifier:   f.notifier,
		SagaLog:    f.sagaLog,
	}
	cfg := app.Config{
		SupportsTransactions: mode == app.ModeTransactional,
		InFlightWait:         2 * time.Second,
		InFlightPoll:         5 * time.Millisecond,
		Now:                  clock.Now,
	}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}
	f.svc = app.NewOrderService(deps, cfg)
	return f
}

var modes = []app.Mode{app.ModeTransactional, app.ModeFallback}

// settle waits until every change notification has been delivered.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Flush(ctx))
}

func (f *fixture) product(stock int, price string) domain.Product {
	return f.store.PutProduct(domain.Product{
		Slug:      "p-" + price,
		Name:      "Product " + price,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Published: true,
	})
}

func (f *fixture) stock(id string) int {
	p, _ := f.store.Product(id)
	return p.Stock
}

func orderFor(items ...app.OrderItemInput) app.CreateOrderInput {
	return app.CreateOrderInput{Items: items}
}

func item(productID string, qty int) app.OrderItemInput {
	return app.OrderItemInput{ProductID: productID, Qty: qty}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingTransactor struct {
	inner ports.Transactor
	calls atomic.Int32
	open  atomic.Bool
}

func (c *countingTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls.Add(1)
	return c.inner.WithinTransaction(ctx, func(ctx context.Context) error {
		c.open.Store(true)
		defer c.open.Store(false)
		return fn(ctx)
	})
}

type recordingNotifier struct {
	mu       sync.Mutex
	products []domain.ProductChanged
	orders   []domain.OrderUpdated
	err      error
}

func (n *recordingNotifier) NotifyProductChanged(_ context.Context, e domain.ProductChanged) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.products = append(n.products, e)
	return n.err
}

func (n *recordingNotifier) NotifyOrderUpdated(_ context.Context, e domain.OrderUpdated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, e)
	return n.err
}

func (n *recordingNotifier) productEvents() []domain.ProductChanged {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ProductChanged(nil), n.products...)
}

func (n *recordingNotifier) orderEvents() []domain.OrderUpdated {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.OrderUpdated(nil), n.orders...)
}

// stallingNotifier never completes a delivery on its own; it returns only
// when the delivery context ends.
type stallingNotifier struct {
	expired     atomic.Int32
	noDeadlines atomic.Int32
}

func (n *stallingNotifier) stall(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		n.noDeadlines.Add(1)
	}
	<-ctx.Done()
	n.expired.Add(1)
	return ctx.Err()
}

func (n *stallingNotifier) NotifyProductChanged(ctx context.Context, _ domain.ProductChanged) error {
	return n.stall(ctx)
}

func (n *stallingNotifier) NotifyOrderUpdated(ctx context.Context, _ domain.OrderUpdated) error {
	return n.stall(ctx)
}

type fakeGateway struct {
	enabled bool
	err     error
	// onCall runs at the start of every CreatePaymentIntent.
	onCall func()

	mu       sync.Mutex
	requests []ports.PaymentIntentRequest
}

func (g *fakeGateway) Enabled() bool { return g.enabled }

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, req ports.PaymentIntentRequest) (ports.PaymentIntent, error) {
	if g.onCall != nil {
		g.onCall()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return ports.PaymentIntent{}, g.err
	}
	return ports.PaymentIntent{ProviderID: "pi_" + req.OrderID, ClientSecret: "secret_" + req.OrderID}, nil
}

func (g *fakeGateway) calls() []ports.PaymentIntentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.PaymentIntentRequest(nil), g.requests...)
}

type memorySagaLog struct {
	mu      sync.Mutex
	entries []*sagalog.SagaLog
}

func (m *memorySagaLog) Save(_ context.Context, e *sagalog.SagaLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memorySagaLog) History(_ context.Context, sagaID string) ([]*sagalog.SagaLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sagalog.SagaLog
	for _, e := range m.entries {
		if e.SagaID == sagaID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memorySagaLog) statuses(sagaID string) []sagalog.Status {
	history, _ := m.History(context.Background(), sagaID)
	out := make([]sagalog.Status, len(history))
	for i, e := range history {
		out[i] = e.Status
	}
	return out
}

// brokenOrders fails every insert.
type brokenOrders struct {
	*memory.Store
}

var errDiskFull = errors.New("disk full")

func (b brokenOrders) Create(context.Context, *domain.Order) error {
	return errDiskFull
}

package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront-orders/internal/coordinator/sagalog"
	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/idempotency"
	"github.com/jcmexdev/storefront-orders/internal/order-service/adapters/memory"
	"github.com/jcmexdev/storefront-orders/internal/order-service/app"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

func TestCreateOrder_ReservesStockAndPricesOrder(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode, nil)
			p := f.product(5, "10.00")

			res, err := f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 3)))
			require.NoError(t, err)

			assert.Equal(t, mode, res.Mode)
			assert.False(t, res.Replayed)
			assert.Equal(t, 2, f.stock(p.ID))

			o := res.Order
			assert.Equal(t, domain.StatusPending, o.Status)
			assert.Equal(t, domain.PaymentCOD, o.Payment.Method)
			assert.Equal(t, domain.PaymentRequiresPayment, o.Payment.Status)
			require.Len(t, o.Items, 1)
			assert.Equal(t, p.Name, o.Items[0].Name)
			assert.Equal(t, "10.00", o.Items[0].UnitPrice.StringFixed(2))
			assert.Equal(t, "30.00", o.Items[0].LineTotal.StringFixed(2))
			assert.Equal(t, "30.00", o.Amounts.Subtotal.StringFixed(2))
			assert.Equal(t, "30.00", o.Amounts.Total.StringFixed(2))

			stored, err := f.svc.GetOrder(context.Background(), o.ID)
			require.NoError(t, err)
			assert.Equal(t, o.ID, stored.ID)
		})
	}
}

func TestCreateOrder_ConcurrentBuyersOfLastUnit(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode, nil)
			p := f.product(1, "25.00")

			const buyers = 20
			var (
				wg         sync.WaitGroup
				mu         sync.Mutex
				successes  int
				outOfStock int
			)
			for i := 0; i < buyers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 1)))

					mu.Lock()
					defer mu.Unlock()
					var oos *domain.OutOfStockError
					switch {
					case err == nil:
						successes++
					case errors.As(err, &oos):
						outOfStock++
						assert.Equal(t, p.ID, oos.ProductID)
						assert.Equal(t, 0, oos.Available)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, buyers-1, outOfStock)
			assert.Equal(t, 0, f.stock(p.ID))
			assert.Equal(t, 1, f.store.OrderCount())
		})
	}
}

func TestCreateOrder_PartialFailureLeavesStockUntouched(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode, nil)
			a := f.product(5, "10.00")
			b := f.product(1, "20.00")

			_, err := f.svc.CreateOrder(context.Background(), orderFor(item(a.ID, 2), item(b.ID, 2)))

			var oos *domain.OutOfStockError
			require.ErrorAs(t, err, &oos)
			assert.Equal(t, b.ID, oos.ProductID)
			assert.Equal(t, 1, oos.Available)

			assert.Equal(t, 5, f.stock(a.ID))
			assert.Equal(t, 1, f.stock(b.ID))
			assert.Zero(t, f.store.OrderCount())
		})
	}
}

func TestCreateOrder_CompensationFailureKeepsOriginalError(t *testing.T) {
	f := newFixture(t, app.ModeFallback, nil)
	a := f.product(5, "10.00")
	b := f.product(0, "20.00")
	f.store.FailNextRestock(errors.New("connection reset"))

	_, err := f.svc.CreateOrder(context.Background(), orderFor(item(a.ID, 2), item(b.ID, 1)))

	var oos *domain.OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, b.ID, oos.ProductID)
	// The failed compensation leaks the reservation; it is logged, not retried.
	assert.Equal(t, 3, f.stock(a.ID))
	assert.Zero(t, f.store.OrderCount())

	entries := f.sagaLog.entries
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, sagalog.StatusFailed, last.Status)
	assert.Contains(t, last.ErrorMessages, "compensation of Reserve_Stock_"+a.ID)
}

func TestCreateOrder_PersistenceFailureRestoresStock(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode, nil, withBrokenOrders())
			p := f.product(4, "10.00")

			_, err := f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 3)))

			var pe *domain.PersistenceError
			require.ErrorAs(t, err, &pe)
			assert.ErrorIs(t, err, errDiskFull)
			assert.False(t, domain.IsBusinessError(err))
			assert.Equal(t, 4, f.stock(p.ID))
		})
	}
}

func TestCreateOrder_IdempotentResubmit(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode, nil)
			p := f.product(5, "10.00")

			in := orderFor(item(p.ID, 2))
			in.IdempotencyKey = "  checkout-42  "

			first, err := f.svc.CreateOrder(context.Background(), in)
			require.NoError(t, err)
			require.NotNil(t, first.Order.Idempotency)
			assert.Equal(t, "checkout-42", first.Order.Idempotency.Key)

			second, err := f.svc.CreateOrder(context.Background(), in)
			require.NoError(t, err)

			assert.True(t, second.Replayed)
			assert.Equal(t, first.Order.ID, second.Order.ID)
			assert.Equal(t, 3, f.stock(p.ID))
			assert.Equal(t, 1, f.store.OrderCount())
		})
	}
}

func TestCreateOrder_IdempotencyKeyExpiresAfterWindow(t *testing.T) {
	f := newFixture(t, app.ModeFallback, nil)
	p := f.product(5, "10.00")

	in := orderFor(item(p.ID, 1))
	in.IdempotencyKey = "retry-me"

	first, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	f.clock.Advance(app.DefaultIdempotencyWindow - time.Second)
	again, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.Order.ID, again.Order.ID)

	f.clock.Advance(2 * time.Second)
	later, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	assert.False(t, later.Replayed)
	assert.NotEqual(t, first.Order.ID, later.Order.ID)
	assert.Equal(t, 3, f.stock(p.ID))
}

func TestCreateOrder_ConcurrentRequestsWithSameKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			claimer := idempotency.NewRedisClaimer(client, "order-service-"+string(mode))
			f := newFixture(t, mode, nil, withClaimer(claimer))
			p := f.product(10, "10.00")

			in := orderFor(item(p.ID, 2))
			in.IdempotencyKey = "double-click"

			const requests = 8
			ids := make([]string, requests)
			var wg sync.WaitGroup
			for i := 0; i < requests; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res, err := f.svc.CreateOrder(context.Background(), in)
					if assert.NoError(t, err) {
						ids[i] = res.Order.ID
					}
				}(i)
			}
			wg.Wait()

			for _, id := range ids {
				assert.Equal(t, ids[0], id)
			}
			assert.Equal(t, 1, f.store.OrderCount())
			assert.Equal(t, 8, f.stock(p.ID))
		})
	}
}

func TestCreateOrder_FailedAttemptReleasesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, app.ModeFallback, nil, withClaimer(idempotency.NewRedisClaimer(client, "order-service")))
	p := f.product(1, "10.00")

	in := orderFor(item(p.ID, 2))
	in.IdempotencyKey = "too-many"

	_, err := f.svc.CreateOrder(context.Background(), in)
	var oos *domain.OutOfStockError
	require.ErrorAs(t, err, &oos)

	in.Items[0].Qty = 1
	res, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, 0, f.stock(p.ID))
}

func TestCreateOrder_PriceSnapshotIsImmutable(t *testing.T) {
	f := newFixture(t, app.ModeTransactional, nil)
	p := f.product(5, "10.00")

	res, err := f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 2)))
	require.NoError(t, err)

	require.NoError(t, f.store.SetPrice(p.ID, decimal.RequireFromString("99.00")))

	stored, err := f.svc.GetOrder(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", stored.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "20.00", stored.Amounts.Total.StringFixed(2))
}

func TestCreateOrder_AppliesShippingAndTax(t *testing.T) {
	pricing := app.Pricing{
		Shipping: decimal.RequireFromString("5.00"),
		TaxRate:  decimal.RequireFromString("0.18"),
	}
	f := newFixture(t, app.ModeFallback, nil, withPricing(pricing))
	a := f.product(10, "19.99")
	b := f.product(10, "0.50")

	res, err := f.svc.CreateOrder(context.Background(), orderFor(item(a.ID, 3), item(b.ID, 1)))
	require.NoError(t, err)

	amounts := res.Order.Amounts
	assert.Equal(t, "60.47", amounts.Subtotal.StringFixed(2))
	assert.Equal(t, "5.00", amounts.Shipping.StringFixed(2))
	assert.Equal(t, "10.88", amounts.Tax.StringFixed(2))
	assert.Equal(t, "76.35", amounts.Total.StringFixed(2))
	assert.True(t, amounts.Total.Equal(amounts.Subtotal.Add(amounts.Shipping).Add(amounts.Tax)))
}

func TestCreateOrder_RejectsUnavailableProducts(t *testing.T) {
	deletedAt := time.Now()
	tests := []struct {
		name    string
		product *domain.Product
	}{
		{name: "unpublished", product: &domain.Product{Name: "Draft", Price: decimal.NewFromInt(5), Stock: 3}},
		{name: "soft deleted", product: &domain.Product{Name: "Gone", Price: decimal.NewFromInt(5), Stock: 3, Published: true, DeletedAt: &deletedAt}},
		{name: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, app.ModeFallback, nil)
			ok := f.product(5, "10.00")

			id := "does-not-exist"
			if tt.product != nil {
				id = f.store.PutProduct(*tt.product).ID
			}

			_, err := f.svc.CreateOrder(context.Background(), orderFor(item(ok.ID, 1), item(id, 1)))

			var pu *domain.ProductUnavailableError
			require.ErrorAs(t, err, &pu)
			assert.Equal(t, id, pu.ProductID)
			assert.Equal(t, 5, f.stock(ok.ID))
			assert.Zero(t, f.store.OrderCount())
			assert.Empty(t, f.sagaLog.entries)
		})
	}
}

func TestCreateOrder_ValidationNamesOffendingFields(t *testing.T) {
	tests := []struct {
		name  string
		in    app.CreateOrderInput
		field string
	}{
		{name: "no items", in: app.CreateOrderInput{}, field: "items"},
		{name: "empty items", in: app.CreateOrderInput{Items: []app.OrderItemInput{}}, field: "items"},
		{name: "zero qty", in: orderFor(item("a", 1), item("b", 0)), field: "items[1].qty"},
		{name: "missing product id", in: orderFor(item("", 1)), field: "items[0].productId"},
		{name: "unknown payment method", in: app.CreateOrderInput{Items: []app.OrderItemInput{item("a", 1)}, PaymentMethod: "barter"}, field: "paymentMethod"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, app.ModeFallback, nil)

			_, err := f.svc.CreateOrder(context.Background(), tt.in)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			require.NotEmpty(t, ve.Fields)
			assert.Equal(t, tt.field, ve.Fields[0].Field)
			assert.NotEmpty(t, ve.Fields[0].Message)
		})
	}
}

func TestCreateOrder_FallsBackWhenStoreRefusesTransactions(t *testing.T) {
	f := newFixture(t, app.ModeTransactional, []memory.Option{memory.WithoutTransactions()})
	p := f.product(5, "10.00")

	res, err := f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 2)))
	require.NoError(t, err)

	assert.Equal(t, app.ModeFallback, res.Mode)
	assert.Equal(t, int32(1), f.tx.calls.Load())
	assert.Equal(t, 3, f.stock(p.ID))
	// No latch: the next order probes the transaction path again.
	assert.Equal(t, app.ModeTransactional, f.svc.Mode())

	_, err = f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 1)))
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tx.calls.Load())
}

func TestCreateOrder_FallbackModeNeverOpensTransaction(t *testing.T) {
	f := newFixture(t, app.ModeFallback, nil)
	p := f.product(5, "10.00")

	_, err := f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 1)))
	require.NoError(t, err)
	assert.Zero(t, f.tx.calls.Load())
}

func TestCreateOrder_CreatesPaymentIntentForStripe(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			gw := &fakeGateway{enabled: true}
			f := newFixture(t, mode, nil, withGateway(gw))
			p := f.product(5, "12.50")

			in := orderFor(item(p.ID, 2))
			in.PaymentMethod = domain.PaymentStripe
			res, err := f.svc.CreateOrder(context.Background(), in)
			require.NoError(t, err)

			id := res.Order.ID
			assert.Equal(t, "secret_"+id, res.ClientSecret)
			assert.Equal(t, "pi_"+id, res.Order.Payment.ProviderID)

			calls := gw.calls()
			require.Len(t, calls, 1)
			assert.Equal(t, int64(2500), calls[0].AmountMinor)
			assert.Equal(t, "pen", calls[0].Currency)
			assert.Equal(t, "order-"+id, calls[0].IdempotencyKey)

			stored, err := f.svc.GetOrder(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, "pi_"+id, stored.Payment.ProviderID)
		})
	}
}

func TestCreateOrder_CallsGatewayOutsideTransaction(t *testing.T) {
	gw := &fakeGateway{enabled: true}
	f := newFixture(t, app.ModeTransactional, nil, withGateway(gw))
	var calledInTx atomic.Bool
	gw.onCall = func() {
		if f.tx.open.Load() {
			calledInTx.Store(true)
		}
	}
	p := f.product(5, "10.00")

	in := orderFor(item(p.ID, 1))
	in.PaymentMethod = domain.PaymentStripe
	res, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, app.ModeTransactional, res.Mode)
	assert.Len(t, gw.calls(), 1)
	assert.False(t, calledInTx.Load())
	assert.Equal(t, "pi_"+res.Order.ID, res.Order.Payment.ProviderID)
}

func TestCreateOrder_DowngradeReusesPaymentIntent(t *testing.T) {
	gw := &fakeGateway{enabled: true}
	f := newFixture(t, app.ModeTransactional, []memory.Option{memory.WithoutTransactions()}, withGateway(gw))
	p := f.product(5, "10.00")

	in := orderFor(item(p.ID, 1))
	in.PaymentMethod = domain.PaymentStripe
	res, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	id := res.Order.ID
	assert.Equal(t, app.ModeFallback, res.Mode)
	assert.Len(t, gw.calls(), 1)
	assert.Equal(t, "secret_"+id, res.ClientSecret)

	stored, err := f.svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "pi_"+id, stored.Payment.ProviderID)
}

func TestCreateOrder_GatewayFailureDoesNotFailOrder(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			gw := &fakeGateway{enabled: true, err: errors.New("503 from provider")}
			f := newFixture(t, mode, nil, withGateway(gw))
			p := f.product(5, "10.00")

			in := orderFor(item(p.ID, 1))
			in.PaymentMethod = domain.PaymentStripe
			res, err := f.svc.CreateOrder(context.Background(), in)
			require.NoError(t, err)

			assert.Empty(t, res.ClientSecret)
			assert.Empty(t, res.Order.Payment.ProviderID)
			assert.Equal(t, 4, f.stock(p.ID))
			assert.Len(t, gw.calls(), 1)
		})
	}
}

func TestCreateOrder_SkipsGatewayWhenNotNeeded(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		method  domain.PaymentMethod
	}{
		{name: "gateway disabled", enabled: false, method: domain.PaymentStripe},
		{name: "offline method", enabled: true, method: domain.PaymentYape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{enabled: tt.enabled}
			f := newFixture(t, app.ModeFallback, nil, withGateway(gw))
			p := f.product(5, "10.00")

			in := orderFor(item(p.ID, 1))
			in.PaymentMethod = tt.method
			res, err := f.svc.CreateOrder(context.Background(), in)
			require.NoError(t, err)

			assert.Empty(t, res.ClientSecret)
			assert.Equal(t, tt.method, res.Order.Payment.Method)
			assert.Empty(t, gw.calls())
		})
	}
}

func TestCreateOrder_AnnouncesStockChanges(t *testing.T) {
	f := newFixture(t, app.ModeFallback, nil)
	a := f.product(5, "10.00")
	b := f.product(7, "3.00")

	_, err := f.svc.CreateOrder(context.Background(), orderFor(item(a.ID, 2), item(b.ID, 1), item(a.ID, 1)))
	require.NoError(t, err)
	f.settle(t)

	events := f.notifier.productEvents()
	require.Len(t, events, 2)

	stock := make(map[string]int)
	for _, e := range events {
		assert.Equal(t, domain.ActionUpdate, e.Action)
		require.NotNil(t, e.Product.Stock)
		stock[e.Product.ID] = *e.Product.Stock
	}
	assert.Equal(t, map[string]int{a.ID: 2, b.ID: 6}, stock)
}

func TestCreateOrder_NotifierFailureIsIgnored(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	f := newFixture(t, app.ModeFallback, nil, withNotifier(n))
	p := f.product(5, "10.00")

	res, err := f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 1)))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Order.ID)
	f.settle(t)
	assert.Len(t, n.productEvents(), 1)
}

func TestOrderService_StalledNotifierDoesNotDelayCallers(t *testing.T) {
	n := &stallingNotifier{}
	f := newFixture(t, app.ModeTransactional, nil, withNotifier(n), withNotifyTimeout(50*time.Millisecond))
	p := f.product(5, "10.00")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()

	res, err := f.svc.CreateOrder(ctx, orderFor(item(p.ID, 1)))
	require.NoError(t, err)
	cancelled, err := f.svc.CancelOrder(ctx, res.Order.ID)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.stock(p.ID))

	// One stock event from the placement, one stock and one order event
	// from the cancellation. Each is abandoned at its own deadline.
	f.settle(t)
	assert.Equal(t, int32(3), n.expired.Load())
	assert.Zero(t, n.noDeadlines.Load())
}

func TestCreateOrder_RecordsSagaTransitions(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t, app.ModeFallback, nil)
		p := f.product(5, "10.00")

		res, err := f.svc.CreateOrder(context.Background(), orderFor(item(p.ID, 1)))
		require.NoError(t, err)

		assert.Equal(t, []sagalog.Status{
			sagalog.StatusStarted,
			sagalog.StatusStepDone,
			sagalog.StatusStepDone,
			sagalog.StatusCompleted,
		}, f.sagaLog.statuses(res.Order.ID))

		history, err := f.sagaLog.History(context.Background(), res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, string(app.ModeFallback), history[0].Mode)
		assert.Contains(t, history[0].Payload, p.ID)
	})

	t.Run("payload leaves out customer details", func(t *testing.T) {
		f := newFixture(t, app.ModeTransactional, nil)
		p := f.product(5, "10.00")

		in := orderFor(item(p.ID, 1))
		in.User = &domain.Customer{Email: "ana@example.com", Name: "Ana Quispe"}
		res, err := f.svc.CreateOrder(context.Background(), in)
		require.NoError(t, err)
		require.NotNil(t, res.Order.User)

		history, err := f.sagaLog.History(context.Background(), res.Order.ID)
		require.NoError(t, err)
		require.NotEmpty(t, history)
		assert.Contains(t, history[0].Payload, p.ID)
		assert.NotContains(t, history[0].Payload, "ana@example.com")
		assert.NotContains(t, history[0].Payload, "Ana Quispe")
	})

	t.Run("fallback failure compensates", func(t *testing.T) {
		f := newFixture(t, app.ModeFallback, nil)
		a := f.product(5, "10.00")
		b := f.product(0, "10.00")

		_, err := f.svc.CreateOrder(context.Background(), orderFor(item(a.ID, 1), item(b.ID, 1)))
		require.Error(t, err)

		sagaID := f.sagaLog.entries[0].SagaID
		assert.Equal(t, []sagalog.Status{
			sagalog.StatusStarted,
			sagalog.StatusStepDone,
			sagalog.StatusCompensating,
			sagalog.StatusFailed,
		}, f.sagaLog.statuses(sagaID))
	})

	t.Run("transactional failure aborts", func(t *testing.T) {
		f := newFixture(t, app.ModeTransactional, nil)
		a := f.product(5, "10.00")
		b := f.product(0, "10.00")

		_, err := f.svc.CreateOrder(context.Background(), orderFor(item(a.ID, 1), item(b.ID, 1)))
		require.Error(t, err)

		sagaID := f.sagaLog.entries[0].SagaID
		assert.Equal(t, []sagalog.Status{
			sagalog.StatusStarted,
			sagalog.StatusStepDone,
			sagalog.StatusFailed,
		}, f.sagaLog.statuses(sagaID))
	})
}

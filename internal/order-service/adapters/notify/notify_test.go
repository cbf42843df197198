package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBus_BroadcastsToAllSubscribers(t *testing.T) {
	bus := NewBus(nil)
	a, unsubA := bus.Subscribe()
	b, unsubB := bus.Subscribe()
	defer unsubB()

	stock := 4
	err := bus.NotifyProductChanged(context.Background(), domain.ProductChanged{
		Action:  domain.ActionUpdate,
		Product: domain.ProductSnapshot{ID: "p1", Stock: &stock},
	})
	require.NoError(t, err)

	for _, ch := range []<-chan Event{a, b} {
		e := receive(t, ch)
		assert.Equal(t, domain.EventProductChanged, e.Type)
		assert.JSONEq(t, `{"action":"update","product":{"id":"p1","stock":4}}`, string(e.Payload))
	}

	unsubA()
	unsubA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, bus.Subscribers())
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(nil)
	_, unsub := bus.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Publish(Event{Type: "system.heartbeat", Payload: json.RawMessage(`{}`)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestRedis_PublishAndRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus := NewBus(nil)
	events, unsub := bus.Subscribe()
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relayDone := make(chan error, 1)
	go func() { relayDone <- NewRedisRelay(client, "storefront:events", bus, nil).Run(ctx) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("storefront:events")["storefront:events"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	pub := NewRedisPublisher(client, "storefront:events")
	err := pub.NotifyOrderUpdated(ctx, domain.OrderUpdated{
		ID:            "o1",
		Status:        domain.StatusCancelled,
		PaymentStatus: domain.PaymentRequiresPayment,
	})
	require.NoError(t, err)

	e := receive(t, events)
	assert.Equal(t, domain.EventOrderUpdated, e.Type)
	assert.JSONEq(t, `{"id":"o1","status":"cancelled","paymentStatus":"requires_payment"}`, string(e.Payload))

	cancel()
	select {
	case err := <-relayDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRedisPublisher_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	err := NewRedisPublisher(client, "storefront:events").
		NotifyOrderUpdated(context.Background(), domain.OrderUpdated{ID: "o1"})
	assert.Error(t, err)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaPublisher_KeysByAggregate(t *testing.T) {
	w := &fakeWriter{}
	pub := NewKafkaPublisher(w)
	ctx := context.Background()

	require.NoError(t, pub.NotifyProductChanged(ctx, domain.ProductChanged{
		Action:  domain.ActionUpdate,
		Product: domain.ProductSnapshot{ID: "p9"},
	}))
	require.NoError(t, pub.NotifyOrderUpdated(ctx, domain.OrderUpdated{ID: "o7", Status: domain.StatusPaid}))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "p9", string(w.msgs[0].Key))
	assert.Equal(t, "o7", string(w.msgs[1].Key))
	assert.Equal(t, headerEventType, w.msgs[1].Headers[0].Key)
	assert.Equal(t, domain.EventOrderUpdated, string(w.msgs[1].Headers[0].Value))

	var e Event
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &e))
	assert.Equal(t, domain.EventOrderUpdated, e.Type)
}

func TestNewKafkaWriter_DoesNotHoldEventsForABatch(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "storefront.events")
	defer w.Close()

	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, w.WriteTimeout)
	assert.Positive(t, w.ReadTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}

func TestMulti_DeliversToEverySinkAndJoinsErrors(t *testing.T) {
	bus := NewBus(nil)
	events, unsub := bus.Subscribe()
	defer unsub()

	broken := &fakeWriter{err: errors.New("leader not available")}
	m := NewMulti(
		Sink{Name: "kafka", Notifier: NewKafkaPublisher(broken)},
		Sink{Name: "bus", Notifier: bus},
	)

	err := m.NotifyOrderUpdated(context.Background(), domain.OrderUpdated{ID: "o1", Status: domain.StatusPaid})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")

	e := receive(t, events)
	assert.Equal(t, domain.EventOrderUpdated, e.Type)
}

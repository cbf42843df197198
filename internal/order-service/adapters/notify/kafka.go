package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

var _ ports.Notifier = (*KafkaPublisher)(nil)

const headerEventType = "event-type"

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

const (
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaIOTimeout    = 2 * time.Second
)

// NewKafkaWriter flushes each event almost immediately instead of holding it
// for the default one second batch window.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           kafkaBatchTimeout,
		WriteTimeout:           kafkaIOTimeout,
		ReadTimeout:            kafkaIOTimeout,
	}
}

// KafkaPublisher writes events keyed by aggregate id, so all events for one
// product or order land on the same partition in order.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) NotifyProductChanged(ctx context.Context, event domain.ProductChanged) error {
	return p.publish(ctx, domain.EventProductChanged, event.Product.ID, event)
}

func (p *KafkaPublisher) NotifyOrderUpdated(ctx context.Context, event domain.OrderUpdated) error {
	return p.publish(ctx, domain.EventOrderUpdated, event.ID, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType, key string, payload any) error {
	e, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", eventType, err)
	}
	return nil
}

package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/orderflow-backend/pkg/config"
	"github.com/orderflow/orderflow-backend/pkg/logger"
)

// Publisher emits order lifecycle events to the message broker.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
	Close() error
}

// messageWriter is the slice of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	logg   *logger.Logger
}

// NewPublisher builds a Kafka-backed publisher, or a no-op one when no
// brokers are configured so single-node deployments run without Kafka.
func NewPublisher(cfg config.KafkaConfig, logg *logger.Logger) Publisher {
	if !cfg.Enabled() {
		return noopPublisher{}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrderTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return &kafkaPublisher{writer: writer, logg: logg}
}

func newPublisherWithWriter(writer messageWriter, logg *logger.Logger) Publisher {
	return &kafkaPublisher{writer: writer, logg: logg}
}

// PublishOrderEvent writes one event keyed by order number.
func (p *kafkaPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: payload,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order event: %w", err)
	}
	if p.logg != nil {
		ctx = p.logg.WithFields(ctx, map[string]any{
			"event_type":   event.EventType,
			"order_number": event.OrderNumber,
		})
		p.logg.Debug(ctx, "order event published")
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

func (noopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
func (noopPublisher) Close() error                                        { return nil }

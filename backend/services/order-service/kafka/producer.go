package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes order lifecycle events for downstream consumers
// (reporting, loyalty).
type EventPublisher interface {
	PublishOrderCommitted(ctx context.Context, evt models.OrderCommittedEvent) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

// NewProducer builds an async writer: PublishOrderCommitted never waits on the
// broker, and delivery failures are logged from the completion callback.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	p := &Producer{topic: topic, logger: logger}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   p.onCompletion,
	}
	logger.Info("kafka producer initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return p
}

func (p *Producer) onCompletion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.Error("kafka delivery failed",
			zap.String("topic", p.topic),
			zap.String("order_id", string(m.Key)),
			zap.Error(err),
		)
	}
}

func (p *Producer) PublishOrderCommitted(ctx context.Context, evt models.OrderCommittedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: data,
	})
}

func (p *Producer) Close() error {
	p.logger.Info("closing kafka writer", zap.String("topic", p.topic))
	return p.writer.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-preorder/internal/config"
	"ms-preorder/internal/logger"
	"ms-preorder/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

// NewProducer builds a producer whose messages name their own topic.
func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// PublishOrderCreated streams the order creation event to Kafka
func (p *Producer) PublishOrderCreated(ctx context.Context, event models.OrderEvent) error {
	return p.publish(ctx, p.Topics.OrderCreated, event)
}

// PublishOrderStatusChanged streams a status transition to Kafka
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, event models.OrderEvent) error {
	return p.publish(ctx, p.Topics.OrderStatusChanged, event)
}

func (p *Producer) publish(ctx context.Context, topic string, event models.OrderEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// keyed by order so one order's events stay in one partition
	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.OrderID),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s order=%s no=%d status=%s", event.Type, event.OrderID, event.OrderNo, event.Status))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

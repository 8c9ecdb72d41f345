package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/aq2208/gorder-bridge/internal/usecase"
)

// Sink republishes messages to one Kafka topic, keyed by routing key so
// messages of the same kind stay on one partition.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSink(producer sarama.SyncProducer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

func (s *Sink) Forward(ctx context.Context, env usecase.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(env.RoutingKey),
		Value: sarama.StringEncoder(env.Body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("message_id"), Value: []byte(env.ID)},
			{Key: []byte("routing_key"), Value: []byte(env.RoutingKey)},
			{Key: []byte("content_type"), Value: []byte(env.ContentType)},
		},
		Timestamp: env.ReceivedAt,
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka send topic=%s: %w", s.topic, err)
	}
	return nil
}

func (s *Sink) Close() error { return s.producer.Close() }

var _ usecase.Sink = (*Sink)(nil)

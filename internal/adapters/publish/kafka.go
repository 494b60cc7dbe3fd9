package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/compliance-radar/pkg/logger"
)

// kafkaWriter is the subset of *kafka.Writer the sender uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaSender struct {
	writer kafkaWriter
	topic  string
	log    logger.Logger
}

func newKafkaSender(cfg *KafkaConfig, log logger.Logger) (sender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka configuration is missing")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	return &kafkaSender{writer: w, topic: cfg.Topic, log: log}, nil
}

func (s *kafkaSender) Send(ctx context.Context, msg Message) error {
	err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RunID),
		Value: msg.Body,
		Headers: []kafka.Header{
			{Key: attrRunID, Value: []byte(msg.RunID)},
			{Key: "generated_at", Value: []byte(msg.GeneratedAt)},
		},
	})
	if err != nil {
		return fmt.Errorf("write message to kafka: %w", err)
	}
	s.log.Debug(ctx, "kafka delivered payload", logger.String("topic", s.topic))
	return nil
}

func (s *kafkaSender) Close() error { return s.writer.Close() }

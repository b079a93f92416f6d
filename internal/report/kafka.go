// internal/report/kafka.go
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tamzrod/bmu-poller/internal/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes one message per event, keyed by unit id so a unit's
// events stay ordered within a partition.
type KafkaSink struct {
	w     messageWriter
	topic string
	log   *zap.Logger
}

func NewKafkaSink(cfg config.KafkaConfig, log *zap.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
	}

	log.Info("kafka report sink initialized", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return &KafkaSink{w: w, topic: cfg.Topic, log: log}
}

func (s *KafkaSink) Publish(ctx context.Context, events []Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("kafka: marshal: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(e.UnitID), Value: body, Time: e.At})
	}

	if err := s.w.WriteMessages(ctx, msgs...); err != nil {
		s.log.Error("kafka write failed", zap.String("topic", s.topic), zap.Error(err))
		return err
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.w.Close() }

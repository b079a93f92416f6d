// internal/report/amqp.go
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/tamzrod/bmu-poller/internal/config"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes events to a topic exchange with routing key
// <prefix>.<unit>.<field>. A lost connection is re-dialed on the next
// publish.
type AMQPSink struct {
	cfg config.AMQPConfig
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   amqpChannel

	// dial opens a channel with the exchange declared.
	dial func() (*amqp.Connection, amqpChannel, error)
}

func NewAMQPSink(cfg config.AMQPConfig, log *zap.Logger) (*AMQPSink, error) {
	s := &AMQPSink{cfg: cfg, log: log}
	s.dial = s.connect

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensure(); err != nil {
		return nil, err
	}
	log.Info("amqp report sink connected", zap.String("exchange", cfg.Exchange))
	return s, nil
}

func (s *AMQPSink) connect() (*amqp.Connection, amqpChannel, error) {
	conn, err := amqp.Dial(s.cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp: channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		s.cfg.Exchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("amqp: declare exchange %s: %w", s.cfg.Exchange, err)
	}
	return conn, ch, nil
}

// ensure must be called with mu held.
func (s *AMQPSink) ensure() error {
	if s.ch != nil {
		return nil
	}
	conn, ch, err := s.dial()
	if err != nil {
		return err
	}
	s.conn, s.ch = conn, ch
	return nil
}

// reset must be called with mu held.
func (s *AMQPSink) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn, s.ch = nil, nil
}

// RoutingKey returns the routing key of e. Dots inside names are
// replaced so they do not add topic levels.
func (s *AMQPSink) RoutingKey(e Event) string {
	clean := strings.NewReplacer(".", "_")
	return s.cfg.RoutingKey + "." + clean.Replace(e.UnitID) + "." + clean.Replace(e.Key())
}

func (s *AMQPSink) Publish(ctx context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(); err != nil {
		return err
	}

	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("amqp: marshal: %w", err)
		}
		err = s.ch.PublishWithContext(ctx,
			s.cfg.Exchange,
			s.RoutingKey(e),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType: "application/json",
				Body:        body,
				Timestamp:   e.At,
			})
		if err != nil {
			s.log.Warn("amqp publish failed, reconnecting on next cycle", zap.Error(err))
			s.reset()
			return fmt.Errorf("amqp: publish: %w", err)
		}
	}
	return nil
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

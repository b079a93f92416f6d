// internal/report/mqtt.go
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/tamzrod/bmu-poller/internal/config"
)

// MQTTSink publishes every event as JSON on <prefix>/<unit>/<field>.
type MQTTSink struct {
	client   paho.Client
	prefix   string
	qos      byte
	retained bool
	timeout  time.Duration
	log      *zap.Logger
}

// NewMQTTSink connects to the broker. The client reconnects on its own.
func NewMQTTSink(cfg config.MQTTConfig, log *zap.Logger) (*MQTTSink, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true)

	s := newMQTTSink(paho.NewClient(opts), cfg, log)

	token := s.client.Connect()
	if !token.WaitTimeout(s.timeout) {
		return nil, fmt.Errorf("mqtt: connect %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", cfg.Broker, err)
	}

	log.Info("mqtt report sink connected", zap.String("broker", cfg.Broker), zap.String("prefix", cfg.TopicPrefix))
	return s, nil
}

func newMQTTSink(c paho.Client, cfg config.MQTTConfig, log *zap.Logger) *MQTTSink {
	return &MQTTSink{
		client:   c,
		prefix:   cfg.TopicPrefix,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		timeout:  time.Duration(cfg.TimeoutMs) * time.Millisecond,
		log:      log,
	}
}

// Topic returns the topic an event is published on.
func (s *MQTTSink) Topic(e Event) string {
	return s.prefix + "/" + e.UnitID + "/" + e.Key()
}

func (s *MQTTSink) Publish(ctx context.Context, events []Event) error {
	var errs []error
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("mqtt: marshal: %w", err)
		}

		token := s.client.Publish(s.Topic(e), s.qos, s.retained, body)
		if !token.WaitTimeout(s.timeout) {
			errs = append(errs, fmt.Errorf("mqtt: publish %s: timed out", s.Topic(e)))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: publish %s: %w", s.Topic(e), err))
		}
	}
	return errors.Join(errs...)
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

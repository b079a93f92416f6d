// internal/report/build.go
package report

import (
	"go.uber.org/zap"

	"github.com/tamzrod/bmu-poller/internal/config"
)

// Build creates the configured sinks. On error, sinks opened so far are
// closed.
func Build(cfg config.ReportConfig, log *zap.Logger) (*Fanout, error) {
	f := &Fanout{}

	if cfg.Log {
		f.Add("log", NewLogSink(log))
	}
	if cfg.MQTT != nil {
		s, err := NewMQTTSink(*cfg.MQTT, log)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		f.Add("mqtt", s)
	}
	if cfg.Kafka != nil {
		f.Add("kafka", NewKafkaSink(*cfg.Kafka, log))
	}
	if cfg.AMQP != nil {
		s, err := NewAMQPSink(*cfg.AMQP, log)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		f.Add("amqp", s)
	}
	return f, nil
}

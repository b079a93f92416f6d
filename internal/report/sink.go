// internal/report/sink.go
package report

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Sink receives the events of one poll cycle.
type Sink interface {
	Publish(ctx context.Context, events []Event) error
	Close() error
}

// Fanout delivers to every sink; one failing sink does not stop the others.
type Fanout struct {
	sinks []Sink
	names []string
}

// Add appends a named sink.
func (f *Fanout) Add(name string, s Sink) {
	f.sinks = append(f.sinks, s)
	f.names = append(f.names, name)
}

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Publish(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for i, s := range f.sinks {
		if err := s.Publish(ctx, events); err != nil {
			errs = append(errs, fmt.Errorf("report %s: %w", f.names[i], err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for i, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("report %s: %w", f.names[i], err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("report")}
}

func (s *LogSink) Publish(_ context.Context, events []Event) error {
	for _, e := range events {
		if e.Failed() {
			s.log.Warn("transaction failed",
				zap.String("unit", e.UnitID),
				zap.String("register", e.Register),
				zap.Uint16("code", e.Code),
				zap.String("error", e.Error),
			)
			continue
		}
		s.log.Info("telemetry",
			zap.String("unit", e.UnitID),
			zap.String("field", e.Field),
			zap.String("value", e.Text),
			zap.String("unit_of_measure", e.Unit),
		)
	}
	return nil
}

func (s *LogSink) Close() error { return nil }

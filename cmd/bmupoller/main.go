// cmd/bmupoller/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/bmu-poller/internal/config"
	"github.com/tamzrod/bmu-poller/internal/logging"
	"github.com/tamzrod/bmu-poller/internal/metrics"
	"github.com/tamzrod/bmu-poller/internal/poller"
	"github.com/tamzrod/bmu-poller/internal/poller/bmu"
	"github.com/tamzrod/bmu-poller/internal/report"
	"github.com/tamzrod/bmu-poller/internal/status"
	"github.com/tamzrod/bmu-poller/internal/writer"
)

const metricsInterval = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: bmupoller <config.yaml>")
		os.Exit(2)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Shared outputs
	// --------------------

	var m *metrics.Metrics
	var metricsDone chan struct{}
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()

	if path := cfg.Metrics.Textfile; path != "" {
		reg := metrics.NewRegistry()
		m = metrics.New(reg)
		metricsDone = make(chan struct{})
		go func() {
			defer close(metricsDone)
			metrics.RunTextfile(metricsCtx, path, metricsInterval, reg, log)
		}()
	}

	sinks, err := report.Build(cfg.Report, log)
	if err != nil {
		return fmt.Errorf("report sinks: %w", err)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Warn("report sink close failed", zap.Error(err))
		}
	}()

	// --------------------
	// Build per-unit pipelines
	// --------------------

	var wg sync.WaitGroup

	for _, unit := range cfg.Poller.Units {
		ulog := log.With(zap.String("unit", unit.ID))

		// ---- poller ----
		p, _, closePort, err := bmu.Build(unit, ulog)
		if err != nil {
			return fmt.Errorf("poller build failed (unit=%s): %w", unit.ID, err)
		}
		defer closePort()

		// ---- writer plan + clients (DATA + STATUS) ----
		plan, err := writer.BuildPlan(unit, cfg.Poller.StatusMemory)
		if err != nil {
			return fmt.Errorf("writer plan failed (unit=%s): %w", unit.ID, err)
		}
		clients, closeWriters, err := writer.BuildEndpointClients(unit, cfg.Poller.StatusMemory)
		if err != nil {
			return fmt.Errorf("writer clients failed (unit=%s): %w", unit.ID, err)
		}
		defer closeWriters()

		runner := &unitRunner{
			id:      unit.ID,
			log:     ulog,
			tracker: status.NewTracker(),
			metrics: m,
		}
		if len(plan.Targets) > 0 {
			runner.data = writer.New(plan, clients)
		}
		if sw, enabled := writer.NewDeviceStatusWriter(plan, clients); enabled {
			runner.status = sw
		}
		if sinks.Len() > 0 {
			runner.sink = sinks
		}

		// ---- channel between poller and orchestrator ----
		out := make(chan poller.PollResult)

		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.run(ctx, out)
		}()

		// poller producer
		go func() {
			defer close(out)
			p.Run(ctx, out)
		}()

		ulog.Info("unit started",
			zap.String("device", unit.Source.Device),
			zap.Int("registers", len(unit.Reads)),
			zap.Int("interval_ms", unit.Poll.IntervalMs),
			zap.Bool("once", unit.Poll.Once),
		)
	}

	// Returns on signal, or when every unit ran in once mode.
	wg.Wait()
	log.Info("shutting down")

	stopMetrics()
	if metricsDone != nil {
		<-metricsDone
	}
	return nil
}

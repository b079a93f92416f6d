// cmd/bmupoller/unit.go
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/bmu-poller/internal/metrics"
	"github.com/tamzrod/bmu-poller/internal/poller"
	"github.com/tamzrod/bmu-poller/internal/report"
	"github.com/tamzrod/bmu-poller/internal/status"
	"github.com/tamzrod/bmu-poller/internal/writer"
)

// unitRunner consumes one unit's poll results. It is the single owner of
// the unit's status tracker.
type unitRunner struct {
	id      string
	log     *zap.Logger
	tracker *status.Tracker

	data    writer.Writer       // nil: no mirror targets
	status  writer.StatusWriter // nil: status block disabled
	sink    report.Sink         // nil: no report sinks
	metrics *metrics.Metrics    // nil: metrics disabled
}

// run blocks until ctx ends or in is closed.
func (u *unitRunner) run(ctx context.Context, in <-chan poller.PollResult) {
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert) if enabled.
	u.writeStatus("start")

	for {
		select {
		case <-ctx.Done():
			return

		case res, ok := <-in:
			if !ok {
				return
			}
			u.handle(ctx, res)

		case <-secTicker.C:
			if u.tracker.Tick() {
				u.writeStatus("seconds tick")
			}
		}
	}
}

func (u *unitRunner) handle(ctx context.Context, res poller.PollResult) {
	log := u.log.With(zap.String("cycle", res.CycleID))

	if res.Err != nil {
		log.Warn("poll cycle incomplete",
			zap.Int("failed", res.Failed()),
			zap.Int("registers", len(res.Results)),
			zap.Error(res.Err),
		)
	} else {
		log.Debug("poll cycle complete", zap.Int("registers", len(res.Results)))
	}

	if u.metrics != nil {
		u.metrics.ObservePoll(res)
	}

	// --- report delivery ---
	if u.sink != nil {
		if err := u.sink.Publish(ctx, report.Events(res)); err != nil {
			log.Warn("report delivery failed", zap.Error(err))
		}
	}

	// --- mirror delivery ---
	if u.data != nil {
		if err := u.data.Write(res); err != nil {
			log.Warn("writer error", zap.Error(err))
		}
	}

	// --- status update (device-level truth) ---
	if u.tracker.Apply(res) {
		u.writeStatus("poll")
	}
}

func (u *unitRunner) writeStatus(reason string) {
	snap := u.tracker.Snapshot()
	if u.metrics != nil {
		u.metrics.ObserveStatus(u.id, snap)
	}
	if u.status == nil {
		return
	}
	if err := u.status.WriteStatus(snap); err != nil {
		u.log.Warn("status write failed", zap.String("reason", reason), zap.Error(err))
	}
}

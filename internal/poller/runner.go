// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run starts the ticker loop and emits PollResult on the provided channel.
// One goroutine per unit. No overlap: a cycle always completes before the
// next tick is consumed.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) {
	if p.cfg.Once || p.cfg.RunOnStart {
		if !p.emit(ctx, out) || p.cfg.Once {
			return
		}
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.emit(ctx, out) {
				return
			}
		}
	}
}

func (p *Poller) emit(ctx context.Context, out chan<- PollResult) bool {
	res := p.PollOnce(ctx)
	select {
	case <-ctx.Done():
		return false
	case out <- res:
		return true
	}
}

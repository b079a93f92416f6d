// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/bmu-poller/internal/protocol"
)

// Client abstracts one BMU register query.
// The poller depends on the register sequence only.
type Client interface {
	Query(ctx context.Context, reg protocol.Register, payloadLen byte) (protocol.Telemetry, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID     string
	Interval   time.Duration
	Reads      []ReadBlock
	RunOnStart bool // poll immediately instead of waiting one interval
	Once       bool // single cycle, then Run returns
}

// Poller is a dumb, clock-driven sequencer.
type Poller struct {
	cfg    Config
	client Client
	now    func() time.Time
}

// New creates a poller with immutable config.
func New(cfg Config, client Client) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 && !cfg.Once {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Reads) == 0 {
		return nil, errors.New("poller: at least one read block required")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	return &Poller{cfg: cfg, client: client, now: time.Now}, nil
}

// PollOnce performs exactly one poll cycle.
// Reads are issued one at a time, in order. A failed read is recorded and
// the sequence continues with the next register.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		UnitID:  p.cfg.UnitID,
		CycleID: uuid.NewString(),
		At:      p.now(),
		Results: make([]RegisterResult, 0, len(p.cfg.Reads)),
	}

	var errs []error

	for _, rb := range p.cfg.Reads {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		start := p.now()
		tel, err := p.client.Query(ctx, rb.Register, rb.PayloadLen)
		rr := RegisterResult{
			Register: rb.Register,
			Elapsed:  p.now().Sub(start),
		}
		if err != nil {
			rr.Err = err
			errs = append(errs, fmt.Errorf("register %s: %w", rb.Register, err))
		} else {
			rr.Telemetry = tel
		}
		res.Results = append(res.Results, rr)
	}

	res.Err = errors.Join(errs...)
	return res
}

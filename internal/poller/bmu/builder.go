// internal/poller/bmu/builder.go
package bmu

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/bmu-poller/internal/config"
	"github.com/tamzrod/bmu-poller/internal/poller"
	"github.com/tamzrod/bmu-poller/internal/protocol"
	"github.com/tamzrod/bmu-poller/internal/serialport"
	"github.com/tamzrod/bmu-poller/internal/transport"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Build opens the unit's serial device and wires port, session, client
// and poller. The returned closer releases the port.
// Assumes the unit config is validated and normalized.
func Build(u cfg.UnitConfig, log *zap.Logger) (*poller.Poller, *transport.Session, func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("unit", u.ID), zap.String("device", u.Source.Device))

	profile, err := u.Source.Profile.Profile()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unit %s: %w", u.ID, err)
	}

	port, err := serialport.Open(serialport.Config{
		Device:      u.Source.Device,
		BaudRate:    u.Source.BaudRate,
		DataBits:    u.Source.DataBits,
		StopBits:    u.Source.StopBits,
		Parity:      u.Source.Parity,
		ReadTimeout: ms(u.Source.ReadTimeoutMs),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	p, sess, err := build(u, port, profile, log)
	if err != nil {
		_ = port.Close()
		return nil, nil, nil, err
	}
	return p, sess, port.Close, nil
}

// build wires everything above the link.
func build(u cfg.UnitConfig, link transport.Link, profile protocol.Profile, log *zap.Logger) (*poller.Poller, *transport.Session, error) {
	sess, err := transport.New(link, transport.Config{
		Timeout:  ms(u.Source.TimeoutMs),
		MaxTries: u.Source.MaxTries,
		QuietGap: ms(u.Source.QuietGapMs),
	}, log)
	if err != nil {
		return nil, nil, err
	}

	client, err := New(sess, profile, log)
	if err != nil {
		return nil, nil, err
	}

	reads := make([]poller.ReadBlock, 0, len(u.Reads))
	for _, r := range u.Reads {
		reads = append(reads, poller.ReadBlock{
			Register:   protocol.Register(r.Register),
			PayloadLen: r.PayloadLen,
		})
	}

	p, err := poller.New(
		poller.Config{
			UnitID:     u.ID,
			Interval:   ms(u.Poll.IntervalMs),
			Reads:      reads,
			RunOnStart: u.Poll.RunOnStart,
			Once:       u.Poll.Once,
		},
		client,
	)
	if err != nil {
		return nil, nil, err
	}
	return p, sess, nil
}

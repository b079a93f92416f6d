// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"time"

	cfg "github.com/tamzrod/bmu-poller/internal/config"
	"github.com/tamzrod/bmu-poller/internal/writer/ingest"
	wmodbus "github.com/tamzrod/bmu-poller/internal/writer/modbus"
)

// BuildPlan converts one unit config into a Writer Plan.
// Assumes config has already passed validation and normalization.
func BuildPlan(u cfg.UnitConfig, sm cfg.StatusMemoryConfig) (Plan, error) {
	if u.ID == "" {
		return Plan{}, errors.New("writer: unit.id required")
	}

	plan := Plan{UnitID: u.ID}

	for _, t := range u.Targets {
		plan.Targets = append(plan.Targets, TargetEndpoint{
			TargetID: t.ID,
			Kind:     t.Kind,
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
			Offset:   t.Offset,
		})
	}

	if u.Source.StatusSlot != nil {
		plan.Status = &StatusPlan{
			Endpoint:   sm.Endpoint,
			UnitID:     sm.UnitID,
			BaseSlot:   *u.Source.StatusSlot,
			DeviceName: u.Source.DeviceName,
		}
	}

	return plan, nil
}

type closer interface {
	endpointClient
	Close() error
}

// BuildEndpointClients creates one client per unique (kind, endpoint),
// including the status memory endpoint when the unit has a status slot.
func BuildEndpointClients(u cfg.UnitConfig, sm cfg.StatusMemoryConfig) (map[string]endpointClient, func() error, error) {
	type want struct {
		kind     string
		endpoint string
		timeout  time.Duration
	}

	unique := map[string]want{}
	for _, t := range u.Targets {
		unique[clientKey(t.Kind, t.Endpoint)] = want{
			kind:     t.Kind,
			endpoint: t.Endpoint,
			timeout:  time.Duration(t.TimeoutMs) * time.Millisecond,
		}
	}
	if u.Source.StatusSlot != nil {
		unique[clientKey(KindModbus, sm.Endpoint)] = want{
			kind:     KindModbus,
			endpoint: sm.Endpoint,
			timeout:  time.Duration(sm.TimeoutMs) * time.Millisecond,
		}
	}

	clients := make(map[string]endpointClient)
	var closers []func() error

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	for key, w := range unique {
		c, err := newEndpointClient(w.kind, w.endpoint, w.timeout)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("writer: endpoint %s: %w", key, err)
		}
		clients[key] = c
		closers = append(closers, c.Close)
	}

	return clients, closeAll, nil
}

func newEndpointClient(kind, endpoint string, timeout time.Duration) (closer, error) {
	switch kind {
	case KindModbus:
		return wmodbus.NewEndpointClient(wmodbus.Config{Endpoint: endpoint, Timeout: timeout})
	case KindIngest:
		return ingest.NewEndpointClient(ingest.Config{Endpoint: endpoint, Timeout: timeout})
	default:
		return nil, fmt.Errorf("unknown target kind %q", kind)
	}
}

// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/bmu-poller/internal/poller"
	"github.com/tamzrod/bmu-poller/internal/protocol"
	"github.com/tamzrod/bmu-poller/internal/status"
)

// areaHoldingRegisters is the only memory area the mirror writes.
const areaHoldingRegisters byte = 3

// endpointClient is the exact contract the writer uses.
// IMPORTANT: There must be NO other version of this interface anywhere.
type endpointClient interface {
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}

type writerImpl struct {
	plan    Plan
	clients map[string]endpointClient
}

func New(plan Plan, clients map[string]endpointClient) Writer {
	return &writerImpl{
		plan:    plan,
		clients: clients,
	}
}

// Write mirrors every decoded register of res into each target.
// Failed registers are skipped; their previous words stay in place.
func (w *writerImpl) Write(res poller.PollResult) error {
	var errs []string

	for _, tgt := range w.plan.Targets {
		cli := w.clients[clientKey(tgt.Kind, tgt.Endpoint)]
		if cli == nil {
			errs = append(errs, fmt.Sprintf(
				"writer: missing client for endpoint %s",
				tgt.Endpoint,
			))
			continue
		}

		for _, rr := range res.Results {
			if rr.Err != nil {
				continue
			}
			slot, ok := status.TelemetrySlot(rr.Register)
			if !ok {
				continue
			}
			regs := mirrorWords(rr.Telemetry, slot)
			if len(regs) == 0 {
				continue
			}

			dstAddr := tgt.Offset + slot.Addr
			if err := cli.WriteRegisters(areaHoldingRegisters, tgt.UnitID, dstAddr, regs); err != nil {
				errs = append(errs, fmt.Sprintf(
					"writer: ep=%s unit=%d reg=%s addr=%d err=%v",
					tgt.Endpoint, tgt.UnitID, rr.Register, dstAddr, err,
				))
			}
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}

// mirrorWords returns the registers written for one telemetry record.
// The serial number is packed as ASCII over the whole slot; cell lists
// are clipped to the slot.
func mirrorWords(t protocol.Telemetry, slot status.Slot) []uint16 {
	if t.Register == protocol.RegSerialNumber {
		if !t.Decoded() {
			return nil
		}
		return status.PackASCII(t.Text, slot.Words)
	}

	words := t.Words
	if len(words) > slot.Words {
		words = words[:slot.Words]
	}
	return words
}

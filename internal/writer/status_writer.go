// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/bmu-poller/internal/status"
)

// StatusWriter is the delivery-only contract for device status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter is the concrete implementation used by the poller binary.
type deviceStatusWriter struct {
	plan *StatusPlan
	cli  endpointClient

	needFull bool
	last     status.Snapshot
	lastName string
}

// NewDeviceStatusWriter builds a status writer if status is enabled for the unit.
// If plan.Status is nil, status is disabled.
func NewDeviceStatusWriter(plan Plan, clients map[string]endpointClient) (*deviceStatusWriter, bool) {
	if plan.Status == nil {
		return nil, false
	}

	sp := plan.Status
	cli := clients[clientKey(KindModbus, sp.Endpoint)]

	return &deviceStatusWriter{
		plan:     sp,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
	}, true
}

// WriteStatus delivers a device status snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
// A change of device name also forces a full write.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.plan == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID
	name := sw.deviceName(s)

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull || name != sw.lastName {
		regs := sw.fullBlockRegs(s, name)

		if err := sw.cli.WriteRegisters(
			areaHoldingRegisters,
			unitID,
			baseAddr,
			regs,
		); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = s
		sw.lastName = name
		return nil
	}

	var errs []string

	write := func(label string, slot uint16, regs []uint16) bool {
		if err := sw.cli.WriteRegisters(areaHoldingRegisters, unitID, baseAddr+slot, regs); err != nil {
			errs = append(errs, fmt.Sprintf("%s write failed: %v", label, err))
			return false
		}
		return true
	}

	// Slot 0: health_code
	if sw.last.Health != s.Health {
		if write("slot0 health", status.SlotHealthCode, []uint16{s.Health}) {
			sw.last.Health = s.Health
		}
	}

	// Slot 1: last_error_code
	if sw.last.LastErrorCode != s.LastErrorCode {
		if write("slot1 last_error", status.SlotLastErrorCode, []uint16{s.LastErrorCode}) {
			sw.last.LastErrorCode = s.LastErrorCode
		}
	}

	// Slot 2: seconds_in_error
	if sw.last.SecondsInError != s.SecondsInError {
		if write("slot2 seconds", status.SlotSecondsInError, []uint16{s.SecondsInError}) {
			sw.last.SecondsInError = s.SecondsInError
		}
	}

	// Slots 3-4: current, always as a pair
	if sw.last.CurrentMA != s.CurrentMA {
		hi, lo := status.CurrentWords(s.CurrentMA)
		if write("slot3-4 current", status.SlotCurrentHi, []uint16{hi, lo}) {
			sw.last.CurrentMA = s.CurrentMA
		}
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next success.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}

// deviceName prefers the configured name and falls back to the serial
// number read from the BMU.
func (sw *deviceStatusWriter) deviceName(s status.Snapshot) string {
	name := sw.plan.DeviceName
	if name == "" {
		name = s.SerialNumber
	}
	if len(name) > status.DeviceNameMaxChars {
		name = name[:status.DeviceNameMaxChars]
	}
	return name
}

func (sw *deviceStatusWriter) fullBlockRegs(s status.Snapshot, name string) []uint16 {
	regs := status.Encode(s)

	// Device name always lives at the end of the block
	copy(regs[status.SlotDeviceNameStart:], status.PackASCII(name, status.SlotDeviceNameSlots))

	return regs
}

// internal/status/layout.go
package status

import "github.com/tamzrod/bmu-poller/internal/protocol"

// Telemetry Block layout: where each register's raw words land inside a
// mirror target, relative to the target offset.

// TelemetryBlockSize is the number of words one BMU occupies in a target.
const TelemetryBlockSize = 64

// Slot is a word range inside the telemetry block.
type Slot struct {
	Addr  uint16
	Words int
}

var telemetryLayout = map[protocol.Register]Slot{
	protocol.RegFirmwareVersion:   {Addr: 0, Words: 1},
	protocol.RegFactoryCapacity:   {Addr: 1, Words: 1},
	protocol.RegActualCapacity:    {Addr: 2, Words: 1},
	protocol.RegStatusBits:        {Addr: 3, Words: 1},
	protocol.RegRemainingCapacity: {Addr: 4, Words: 1},
	protocol.RegRemainingPercent:  {Addr: 5, Words: 1},
	protocol.RegCurrent:           {Addr: 6, Words: 1},
	protocol.RegPackVoltage:       {Addr: 7, Words: 1},
	protocol.RegHealth:            {Addr: 8, Words: 1},
	// 9-15 reserved
	protocol.RegSerialNumber: {Addr: 16, Words: 8},
	// 24-31 reserved
	protocol.RegCellVoltages: {Addr: 32, Words: 32},
}

// TelemetrySlot returns the mirror slot of reg.
func TelemetrySlot(reg protocol.Register) (Slot, bool) {
	s, ok := telemetryLayout[reg]
	return s, ok
}

// internal/writer/types.go
package writer

import "github.com/tamzrod/bmu-poller/internal/poller"

// Target kinds.
const (
	KindModbus = "modbus"
	KindIngest = "ingest"
)

// TargetEndpoint is one mirror destination: a telemetry block placed at
// Offset inside the holding registers of UnitID on Endpoint.
type TargetEndpoint struct {
	TargetID uint32
	Kind     string
	Endpoint string
	UnitID   uint8
	Offset   uint16
}

// StatusPlan places one device status block in status memory.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string // empty => learned serial number
}

// Plan is the fully-built write plan for one unit.
type Plan struct {
	UnitID  string
	Targets []TargetEndpoint
	Status  *StatusPlan
}

// Writer writes poll snapshots into targets.
type Writer interface {
	Write(res poller.PollResult) error
}

// clientKey identifies one endpoint connection. The same address may be
// reached by different transports.
func clientKey(kind, endpoint string) string {
	return kind + "://" + endpoint
}

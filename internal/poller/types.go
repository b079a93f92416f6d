// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/bmu-poller/internal/protocol"
)

// ReadBlock is one register query in the poll sequence.
type ReadBlock struct {
	Register   protocol.Register
	PayloadLen byte
}

// RegisterResult is the outcome of a single transaction.
// Exactly one of Telemetry (decoded) or Err is meaningful.
type RegisterResult struct {
	Register  protocol.Register
	Telemetry protocol.Telemetry
	Err       error
	Elapsed   time.Duration
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID  string
	CycleID string
	At      time.Time

	// One entry per ReadBlock, in poll order.
	Results []RegisterResult

	Err error // joined per-register errors; nil when every read succeeded
}

// Failed returns the number of registers that did not decode.
func (r PollResult) Failed() int {
	n := 0
	for _, rr := range r.Results {
		if rr.Err != nil {
			n++
		}
	}
	return n
}

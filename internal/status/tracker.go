// internal/status/tracker.go
package status

import (
	"errors"

	"github.com/tamzrod/bmu-poller/internal/poller"
)

// Tracker is the single owner of a unit's Snapshot. It is fed poll
// results and a 1 Hz tick by the unit's orchestration goroutine and is
// not safe for concurrent use.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in the unknown (boot) state.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Apply folds one poll cycle into the snapshot and reports whether
// anything changed.
func (t *Tracker) Apply(res poller.PollResult) bool {
	prev := t.snap

	var firstErr error
	failed := 0
	for _, rr := range res.Results {
		if rr.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = rr.Err
			}
			continue
		}
		if ma, ok := rr.Telemetry.Current(); ok {
			t.snap.CurrentMA = int32(ma)
			t.snap.HasCurrent = true
		}
		if sn, ok := rr.Telemetry.SerialNumber(); ok {
			t.snap.SerialNumber = sn
		}
	}
	if firstErr == nil {
		firstErr = res.Err
	}

	switch {
	case firstErr == nil:
		// Recovery / OK
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = 0
		t.snap.SecondsInError = 0
	case failed > 0 && failed < len(res.Results):
		t.snap.Health = HealthDegraded
		t.snap.LastErrorCode = ErrorCode(firstErr)
	default:
		t.snap.Health = HealthError
		t.snap.LastErrorCode = ErrorCode(firstErr)
	}

	// NOTE: seconds_in_error increments on the 1Hz tick only.
	return t.snap != prev
}

// Tick advances seconds_in_error while the unit is not OK.
// It saturates at 65535 and reports whether the value changed.
func (t *Tracker) Tick() bool {
	if t.snap.Health == HealthOK {
		return false
	}
	if t.snap.SecondsInError == 65535 {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns 1 (generic error).
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 1
}

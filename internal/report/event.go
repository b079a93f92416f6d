// internal/report/event.go
package report

import (
	"time"

	"github.com/tamzrod/bmu-poller/internal/poller"
	"github.com/tamzrod/bmu-poller/internal/status"
)

// Event is one decoded field, or one failed transaction when Error is set.
type Event struct {
	UnitID   string    `json:"unit_id"`
	CycleID  string    `json:"cycle_id"`
	At       time.Time `json:"at"`
	Register string    `json:"register"`

	Field string `json:"field,omitempty"`
	Unit  string `json:"unit,omitempty"`
	Value int64  `json:"value"`
	Text  string `json:"text,omitempty"` // display form

	Error string `json:"error,omitempty"`
	Code  uint16 `json:"code,omitempty"`
}

// Failed reports whether e is an error event.
func (e Event) Failed() bool { return e.Error != "" }

// Key names the event inside a unit: the field, or the register for
// error events.
func (e Event) Key() string {
	if e.Field != "" {
		return e.Field
	}
	return e.Register
}

// Events flattens one poll cycle: one event per decoded field, one error
// event per failed transaction. Registers without a decoder yield nothing.
func Events(res poller.PollResult) []Event {
	var out []Event
	for _, rr := range res.Results {
		base := Event{
			UnitID:   res.UnitID,
			CycleID:  res.CycleID,
			At:       res.At,
			Register: rr.Register.String(),
		}

		if rr.Err != nil {
			base.Error = rr.Err.Error()
			base.Code = status.ErrorCode(rr.Err)
			out = append(out, base)
			continue
		}

		for _, f := range rr.Telemetry.Fields {
			ev := base
			ev.Field = f.Name
			ev.Unit = f.Unit
			ev.Value = f.Value
			ev.Text = f.Display()
			out = append(out, ev)
		}
	}
	return out
}

// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/bmu-poller/internal/protocol"
	"github.com/tamzrod/bmu-poller/internal/status"
)

// maxResponseLen is the transport receive buffer size.
const maxResponseLen = 256

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if len(cfg.Poller.Units) == 0 {
		return fmt.Errorf("poller: at least one unit required")
	}

	ids := make(map[string]struct{})
	devices := make(map[string]string)

	for _, u := range cfg.Poller.Units {
		if u.ID == "" {
			return fmt.Errorf("unit: id required")
		}
		if _, dup := ids[u.ID]; dup {
			return fmt.Errorf("unit %q: duplicate id", u.ID)
		}
		ids[u.ID] = struct{}{}

		// one poller per serial device: the link allows a single caller
		if u.Source.Device == "" {
			return fmt.Errorf("unit %q: source.device required", u.ID)
		}
		if prev, taken := devices[u.Source.Device]; taken {
			return fmt.Errorf("unit %q: device %s already used by unit %q", u.ID, u.Source.Device, prev)
		}
		devices[u.Source.Device] = u.ID

		if err := validateSource(u); err != nil {
			return err
		}
		if err := validateReads(u); err != nil {
			return err
		}
		if u.Poll.IntervalMs < 0 {
			return fmt.Errorf("unit %q: poll.interval_ms must be >= 0", u.ID)
		}
	}

	if err := validateStatus(cfg); err != nil {
		return err
	}
	if err := validateTargets(cfg); err != nil {
		return err
	}
	return validateReport(cfg.Report)
}

func validateSource(u UnitConfig) error {
	s := u.Source

	switch strings.ToUpper(s.Parity) {
	case "", "N", "E", "O":
	default:
		return fmt.Errorf("unit %q: parity must be N, E or O", u.ID)
	}
	if s.DataBits != 0 && (s.DataBits < 5 || s.DataBits > 8) {
		return fmt.Errorf("unit %q: data_bits must be 5..8", u.ID)
	}
	if s.StopBits != 0 && s.StopBits != 1 && s.StopBits != 2 {
		return fmt.Errorf("unit %q: stop_bits must be 1 or 2", u.ID)
	}
	if s.BaudRate < 0 || s.TimeoutMs < 0 || s.MaxTries < 0 || s.QuietGapMs < 0 || s.ReadTimeoutMs < 0 {
		return fmt.Errorf("unit %q: baud_rate, timeouts and max_tries must be >= 0", u.ID)
	}

	if _, err := protocol.ParseChecksumOrder(s.Profile.Checksum); err != nil {
		return fmt.Errorf("unit %q: %w", u.ID, err)
	}
	if _, err := protocol.ParseStatusBitMode(s.Profile.StatusBits); err != nil {
		return fmt.Errorf("unit %q: %w", u.ID, err)
	}
	if s.Profile.CellOffset != 0 &&
		s.Profile.CellOffset != protocol.PayloadOffset &&
		s.Profile.CellOffset != protocol.PayloadOffset+1 {
		return fmt.Errorf("unit %q: profile.cell_offset must be %d or %d",
			u.ID, protocol.PayloadOffset, protocol.PayloadOffset+1)
	}
	return nil
}

func validateReads(u UnitConfig) error {
	seen := make(map[uint8]struct{})
	for _, r := range u.Reads {
		if _, dup := seen[r.Register]; dup {
			return fmt.Errorf("unit %q: register 0x%02X listed twice", u.ID, r.Register)
		}
		seen[r.Register] = struct{}{}

		plen := r.PayloadLen
		if plen == 0 {
			info, ok := protocol.Lookup(protocol.Register(r.Register))
			if !ok {
				return fmt.Errorf("unit %q: register 0x%02X needs payload_len", u.ID, r.Register)
			}
			plen = info.PayloadLen
		}
		if protocol.ExpectedResponseLen(plen) > maxResponseLen {
			return fmt.Errorf("unit %q: register 0x%02X payload_len %d exceeds the receive buffer",
				u.ID, r.Register, plen)
		}
	}
	return nil
}

func validateStatus(cfg *Config) error {
	// ------------------------------------------------------------
	// DEVICE STATUS BLOCK VALIDATION (OPT-IN)
	// ------------------------------------------------------------

	slotOwner := make(map[uint16]string)

	for _, u := range cfg.Poller.Units {
		// device_name sanity (ASCII only)
		for i := 0; i < len(u.Source.DeviceName); i++ {
			if u.Source.DeviceName[i] > 0x7F {
				return fmt.Errorf(
					"unit %q: device_name must contain ASCII characters only",
					u.ID,
				)
			}
		}

		// status is opt-in
		if u.Source.StatusSlot == nil {
			continue
		}

		if cfg.Poller.StatusMemory.Endpoint == "" {
			return fmt.Errorf(
				"unit %q: status_slot is set but poller.status_memory.endpoint is empty",
				u.ID,
			)
		}

		slot := *u.Source.StatusSlot
		if uint32(slot)*status.SlotsPerDevice+status.SlotsPerDevice > 0x10000 {
			return fmt.Errorf("unit %q: status_slot %d out of address range", u.ID, slot)
		}

		if prev, exists := slotOwner[slot]; exists {
			return fmt.Errorf(
				"status_slot collision: endpoint=%s unit_id=%d slot=%d used by units %q and %q",
				cfg.Poller.StatusMemory.Endpoint,
				cfg.Poller.StatusMemory.UnitID,
				slot,
				prev,
				u.ID,
			)
		}
		slotOwner[slot] = u.ID
	}
	return nil
}

func validateTargets(cfg *Config) error {
	type span struct {
		start uint32
		end   uint32
		unit  string
	}

	// ------------------------------------------------------------
	// DESTINATION MEMORY GEOMETRY VALIDATION
	// ------------------------------------------------------------

	// key = endpoint | unit_id
	spans := make(map[string][]span)

	for _, u := range cfg.Poller.Units {
		for _, t := range u.Targets {
			switch t.Kind {
			case "", "modbus", "ingest":
			default:
				return fmt.Errorf("unit %q: target %d: unknown kind %q", u.ID, t.ID, t.Kind)
			}
			if t.Endpoint == "" {
				return fmt.Errorf("unit %q: target %d: endpoint required", u.ID, t.ID)
			}

			start := uint32(t.Offset)
			end := start + status.TelemetryBlockSize - 1
			if end > 0xFFFF {
				return fmt.Errorf("unit %q: target %d: offset %d leaves no room for the telemetry block",
					u.ID, t.ID, t.Offset)
			}

			key := fmt.Sprintf("%s|%d", t.Endpoint, t.UnitID)

			for _, s := range spans[key] {
				// overlap check (inclusive)
				if !(end < s.start || start > s.end) {
					return fmt.Errorf(
						"memory overlap: endpoint=%s unit_id=%d range=%d-%d overlaps with unit=%s range=%d-%d",
						t.Endpoint,
						t.UnitID,
						start,
						end,
						s.unit,
						s.start,
						s.end,
					)
				}
			}

			spans[key] = append(spans[key], span{
				start: start,
				end:   end,
				unit:  u.ID,
			})
		}
	}
	return nil
}

func validateReport(r ReportConfig) error {
	if r.MQTT != nil {
		if r.MQTT.Broker == "" {
			return fmt.Errorf("report.mqtt: broker required")
		}
		if r.MQTT.QoS > 2 {
			return fmt.Errorf("report.mqtt: qos must be 0, 1 or 2")
		}
	}
	if r.Kafka != nil && (len(r.Kafka.Brokers) == 0 || r.Kafka.Topic == "") {
		return fmt.Errorf("report.kafka: brokers and topic required")
	}
	if r.AMQP != nil && (r.AMQP.URL == "" || r.AMQP.Exchange == "") {
		return fmt.Errorf("report.amqp: url and exchange required")
	}
	return nil
}

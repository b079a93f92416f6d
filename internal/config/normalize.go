// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/bmu-poller/internal/protocol"
	"github.com/tamzrod/bmu-poller/internal/status"
)

// Defaults applied by Normalize.
const (
	DefaultBaudRate      = 115200
	DefaultDataBits      = 8
	DefaultStopBits      = 1
	DefaultParity        = "N"
	DefaultReadTimeoutMs = 10
	DefaultTimeoutMs     = 200
	DefaultMaxTries      = 25
	DefaultIntervalMs    = 10000
	DefaultTargetTimeout = 1000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for ui := range cfg.Poller.Units {
		u := &cfg.Poller.Units[ui]

		normalizeSource(&u.Source)
		u.Reads = normalizeReads(u.Reads)

		if u.Poll.IntervalMs == 0 && !u.Poll.Once {
			u.Poll.IntervalMs = DefaultIntervalMs
		}

		for ti := range u.Targets {
			t := &u.Targets[ti]
			if t.Kind == "" {
				t.Kind = "modbus"
			}
			if t.TimeoutMs == 0 {
				t.TimeoutMs = DefaultTargetTimeout
			}
		}
	}

	if cfg.Poller.StatusMemory.TimeoutMs == 0 {
		cfg.Poller.StatusMemory.TimeoutMs = DefaultTargetTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if m := cfg.Report.MQTT; m != nil {
		if m.TopicPrefix == "" {
			m.TopicPrefix = "bmu"
		}
		if m.TimeoutMs == 0 {
			m.TimeoutMs = 5000
		}
	}
	if a := cfg.Report.AMQP; a != nil && a.RoutingKey == "" {
		a.RoutingKey = "bmu"
	}
}

func normalizeSource(s *SourceConfig) {
	if s.BaudRate == 0 {
		s.BaudRate = DefaultBaudRate
	}
	if s.DataBits == 0 {
		s.DataBits = DefaultDataBits
	}
	if s.StopBits == 0 {
		s.StopBits = DefaultStopBits
	}
	if s.Parity == "" {
		s.Parity = DefaultParity
	}
	s.Parity = strings.ToUpper(s.Parity)
	if s.ReadTimeoutMs == 0 {
		s.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	if s.TimeoutMs == 0 {
		s.TimeoutMs = DefaultTimeoutMs
	}
	if s.MaxTries == 0 {
		s.MaxTries = DefaultMaxTries
	}

	if s.Profile.Checksum == "" {
		s.Profile.Checksum = protocol.DefaultProfile.Checksum.String()
	}
	if s.Profile.CellOffset == 0 {
		s.Profile.CellOffset = protocol.DefaultProfile.CellOffset
	}
	if s.Profile.StatusBits == "" {
		s.Profile.StatusBits = protocol.DefaultProfile.StatusBits.String()
	}

	// Device name: ASCII already validated, truncate to the status block.
	if len(s.DeviceName) > status.DeviceNameMaxChars {
		s.DeviceName = s.DeviceName[:status.DeviceNameMaxChars]
	}
}

// normalizeReads expands an empty sequence to the full catalog and fills
// catalog payload lengths.
func normalizeReads(reads []ReadConfig) []ReadConfig {
	if len(reads) == 0 {
		cat := protocol.Catalog()
		out := make([]ReadConfig, 0, len(cat))
		for _, ri := range cat {
			out = append(out, ReadConfig{Register: uint8(ri.Register), PayloadLen: ri.PayloadLen})
		}
		return out
	}

	for i := range reads {
		if reads[i].PayloadLen != 0 {
			continue
		}
		if info, ok := protocol.Lookup(protocol.Register(reads[i].Register)); ok {
			reads[i].PayloadLen = info.PayloadLen
		}
	}
	return reads
}

// Profile converts the normalized profile section.
func (p ProfileConfig) Profile() (protocol.Profile, error) {
	order, err := protocol.ParseChecksumOrder(p.Checksum)
	if err != nil {
		return protocol.Profile{}, err
	}
	bits, err := protocol.ParseStatusBitMode(p.StatusBits)
	if err != nil {
		return protocol.Profile{}, err
	}
	offset := p.CellOffset
	if offset == 0 {
		offset = protocol.DefaultProfile.CellOffset
	}

	prof := protocol.Profile{Checksum: order, CellOffset: offset, StatusBits: bits}
	return prof, prof.Validate()
}

// internal/writer/writer_test.go
package writer

import (
	"errors"
	"testing"

	"github.com/tamzrod/bmu-poller/internal/poller"
	"github.com/tamzrod/bmu-poller/internal/protocol"
	"github.com/tamzrod/bmu-poller/internal/status"
)

// ---- fake endpoint client ----

type writeCall struct {
	area   byte
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeEndpointClient struct {
	writes []writeCall
	err    error
}

func (f *fakeEndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, writeCall{
		area:   area,
		unitID: unitID,
		addr:   addr,
		regs:   append([]uint16(nil), regs...),
	})
	return nil
}

func (f *fakeEndpointClient) last() writeCall {
	return f.writes[len(f.writes)-1]
}

// ---- helpers ----

func decoded(reg protocol.Register, words []uint16, text string) poller.RegisterResult {
	return poller.RegisterResult{
		Register: reg,
		Telemetry: protocol.Telemetry{
			Register: reg,
			Fields:   []protocol.Field{{Name: "x"}},
			Words:    words,
			Text:     text,
		},
	}
}

func onePlan(offset uint16) Plan {
	return Plan{
		UnitID: "bmu-1",
		Targets: []TargetEndpoint{
			{TargetID: 1, Kind: KindModbus, Endpoint: "ep1", UnitID: 7, Offset: offset},
		},
	}
}

// ---- tests ----

func TestWriter_LayoutAddressesWithOffset(t *testing.T) {
	fake := &fakeEndpointClient{}
	w := New(onePlan(100), map[string]endpointClient{clientKey(KindModbus, "ep1"): fake})

	res := poller.PollResult{
		UnitID: "bmu-1",
		Results: []poller.RegisterResult{
			decoded(protocol.RegCurrent, []uint16{0xFF9C}, ""),
			decoded(protocol.RegCellVoltages, []uint16{3300, 3301, 3302}, ""),
		},
	}

	if err := w.Write(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(fake.writes))
	}

	cur, _ := status.TelemetrySlot(protocol.RegCurrent)
	if got := fake.writes[0]; got.addr != 100+cur.Addr || got.unitID != 7 || got.area != 3 {
		t.Fatalf("current write: %+v", got)
	}
	if fake.writes[0].regs[0] != 0xFF9C {
		t.Fatalf("current must be mirrored raw, got 0x%04X", fake.writes[0].regs[0])
	}

	cells, _ := status.TelemetrySlot(protocol.RegCellVoltages)
	if got := fake.writes[1]; got.addr != 100+cells.Addr || len(got.regs) != 3 {
		t.Fatalf("cells write: %+v", got)
	}
}

func TestWriter_SkipsFailedAndUnmappedRegisters(t *testing.T) {
	fake := &fakeEndpointClient{}
	w := New(onePlan(0), map[string]endpointClient{clientKey(KindModbus, "ep1"): fake})

	res := poller.PollResult{
		Results: []poller.RegisterResult{
			{Register: protocol.RegHealth, Err: errors.New("timeout")},
			{Register: protocol.Reg35, Telemetry: protocol.Telemetry{Register: protocol.Reg35}},
			decoded(protocol.RegPackVoltage, []uint16{5000}, ""),
		},
	}

	if err := w.Write(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(fake.writes))
	}
	pv, _ := status.TelemetrySlot(protocol.RegPackVoltage)
	if fake.writes[0].addr != pv.Addr {
		t.Fatalf("expected addr %d, got %d", pv.Addr, fake.writes[0].addr)
	}
}

func TestWriter_SerialNumberPackedAsASCII(t *testing.T) {
	fake := &fakeEndpointClient{}
	w := New(onePlan(0), map[string]endpointClient{clientKey(KindModbus, "ep1"): fake})

	res := poller.PollResult{Results: []poller.RegisterResult{
		decoded(protocol.RegSerialNumber, nil, "BT01"),
	}}
	if err := w.Write(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sn, _ := status.TelemetrySlot(protocol.RegSerialNumber)
	got := fake.last()
	if len(got.regs) != sn.Words {
		t.Fatalf("expected %d regs, got %d", sn.Words, len(got.regs))
	}
	if got.regs[0] != 0x4254 || got.regs[1] != 0x3031 || got.regs[2] != 0 {
		t.Fatalf("unexpected packing: %v", got.regs[:3])
	}
}

func TestWriter_CellsClippedToSlot(t *testing.T) {
	fake := &fakeEndpointClient{}
	w := New(onePlan(0), map[string]endpointClient{clientKey(KindModbus, "ep1"): fake})

	words := make([]uint16, 40)
	res := poller.PollResult{Results: []poller.RegisterResult{
		decoded(protocol.RegCellVoltages, words, ""),
	}}
	if err := w.Write(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cells, _ := status.TelemetrySlot(protocol.RegCellVoltages)
	if len(fake.last().regs) != cells.Words {
		t.Fatalf("expected clip to %d, got %d", cells.Words, len(fake.last().regs))
	}
}

func TestWriter_MissingClientAndWriteErrors(t *testing.T) {
	bad := &fakeEndpointClient{err: errors.New("refused")}
	plan := onePlan(0)
	plan.Targets = append(plan.Targets, TargetEndpoint{TargetID: 2, Kind: KindIngest, Endpoint: "nowhere"})

	w := New(plan, map[string]endpointClient{clientKey(KindModbus, "ep1"): bad})

	res := poller.PollResult{Results: []poller.RegisterResult{
		decoded(protocol.RegHealth, []uint16{100}, ""),
	}}
	if err := w.Write(res); err == nil {
		t.Fatalf("expected error")
	}
}

// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/bmu-poller/internal/protocol"
)

type fakeClient struct {
	fail  map[protocol.Register]error
	calls []protocol.Register
}

func (f *fakeClient) Query(_ context.Context, reg protocol.Register, _ byte) (protocol.Telemetry, error) {
	f.calls = append(f.calls, reg)
	if err := f.fail[reg]; err != nil {
		return protocol.Telemetry{}, err
	}
	return protocol.Telemetry{
		Register: reg,
		Fields:   []protocol.Field{{Name: reg.String(), Value: 1}},
	}, nil
}

func reads() []ReadBlock {
	return []ReadBlock{
		{Register: protocol.RegCellVoltages, PayloadLen: 0x14},
		{Register: protocol.RegCurrent, PayloadLen: 0x02},
		{Register: protocol.RegHealth, PayloadLen: 0x02},
	}
}

func TestPollOnce_Success(t *testing.T) {
	cfg := Config{
		UnitID:   "u1",
		Interval: 1 * time.Second,
		Reads:    reads(),
	}

	p, err := New(cfg, &fakeClient{})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := p.PollOnce(context.Background())
	if res.Err != nil {
		t.Fatalf("PollOnce err=%v", res.Err)
	}
	if len(res.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res.Results))
	}
	if res.CycleID == "" {
		t.Fatalf("expected cycle id")
	}
}

func TestPollOnce_FailureDoesNotAbortSequence(t *testing.T) {
	cfg := Config{
		UnitID:   "u1",
		Interval: 1 * time.Second,
		Reads:    reads(),
	}

	fc := &fakeClient{fail: map[protocol.Register]error{
		protocol.RegCurrent: protocol.ErrChecksumMismatch,
	}}

	p, err := New(cfg, fc)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := p.PollOnce(context.Background())
	if res.Err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(res.Err, protocol.ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch in joined error, got %v", res.Err)
	}
	if len(fc.calls) != 3 {
		t.Fatalf("expected all 3 registers queried, got %d", len(fc.calls))
	}
	if res.Failed() != 1 {
		t.Fatalf("expected 1 failed register, got %d", res.Failed())
	}
	if !res.Results[2].Telemetry.Decoded() {
		t.Fatalf("register after failure should still decode")
	}
}

func TestPollOnce_OrderPreserved(t *testing.T) {
	fc := &fakeClient{}
	p, err := New(Config{UnitID: "u1", Interval: time.Second, Reads: reads()}, fc)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	p.PollOnce(context.Background())

	want := []protocol.Register{protocol.RegCellVoltages, protocol.RegCurrent, protocol.RegHealth}
	for i, reg := range want {
		if fc.calls[i] != reg {
			t.Fatalf("call %d: got %s want %s", i, fc.calls[i], reg)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Interval: time.Second, Reads: reads()}, &fakeClient{}); err == nil {
		t.Fatalf("expected unit id error")
	}
	if _, err := New(Config{UnitID: "u1", Reads: reads()}, &fakeClient{}); err == nil {
		t.Fatalf("expected interval error")
	}
	if _, err := New(Config{UnitID: "u1", Once: true, Reads: reads()}, &fakeClient{}); err != nil {
		t.Fatalf("once mode needs no interval: %v", err)
	}
	if _, err := New(Config{UnitID: "u1", Interval: time.Second}, &fakeClient{}); err == nil {
		t.Fatalf("expected reads error")
	}
}

func TestRun_OnceEmitsSingleCycle(t *testing.T) {
	p, err := New(Config{UnitID: "u1", Once: true, Reads: reads()}, &fakeClient{})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	out := make(chan PollResult, 2)
	p.Run(context.Background(), out)

	if len(out) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(out))
	}
}

func TestRun_TicksUntilCanceled(t *testing.T) {
	p, err := New(Config{UnitID: "u1", Interval: 5 * time.Millisecond, RunOnStart: true, Reads: reads()}, &fakeClient{})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, out)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case res := <-out:
			if res.UnitID != "u1" {
				t.Fatalf("unexpected unit %q", res.UnitID)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for cycle %d", i)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

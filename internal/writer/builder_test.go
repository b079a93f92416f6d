// internal/writer/builder_test.go
package writer

import (
	"testing"

	cfg "github.com/tamzrod/bmu-poller/internal/config"
)

func TestBuildPlan_TargetsAndStatus(t *testing.T) {
	slot := uint16(3)
	u := cfg.UnitConfig{
		ID: "bmu-1",
		Source: cfg.SourceConfig{
			Device:     "/dev/ttyUSB0",
			StatusSlot: &slot,
			DeviceName: "PACK-A",
		},
		Targets: []cfg.TargetConfig{
			{ID: 1, Kind: KindModbus, Endpoint: "10.0.0.5:502", UnitID: 2, Offset: 128},
			{ID: 2, Kind: KindIngest, Endpoint: "10.0.0.6:9000"},
		},
	}
	sm := cfg.StatusMemoryConfig{Endpoint: "10.0.0.9:502", UnitID: 4}

	plan, err := BuildPlan(u, sm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(plan.Targets))
	}
	if plan.Targets[0].Offset != 128 || plan.Targets[0].UnitID != 2 || plan.Targets[1].Kind != KindIngest {
		t.Fatalf("unexpected targets: %+v", plan.Targets)
	}
	if plan.Status == nil {
		t.Fatalf("status plan expected")
	}
	if plan.Status.Endpoint != sm.Endpoint || plan.Status.UnitID != 4 || plan.Status.BaseSlot != 3 || plan.Status.DeviceName != "PACK-A" {
		t.Fatalf("unexpected status plan: %+v", *plan.Status)
	}
}

func TestBuildPlan_StatusOptIn(t *testing.T) {
	plan, err := BuildPlan(cfg.UnitConfig{ID: "bmu-1"}, cfg.StatusMemoryConfig{Endpoint: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Status != nil {
		t.Fatalf("status must be disabled without status_slot")
	}
}

func TestBuildPlan_RequiresID(t *testing.T) {
	if _, err := BuildPlan(cfg.UnitConfig{}, cfg.StatusMemoryConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildEndpointClients_Ingest(t *testing.T) {
	u := cfg.UnitConfig{
		ID: "bmu-1",
		Targets: []cfg.TargetConfig{
			{ID: 1, Kind: KindIngest, Endpoint: "10.0.0.6:9000", TimeoutMs: 500},
			{ID: 2, Kind: KindIngest, Endpoint: "10.0.0.6:9000", TimeoutMs: 500, Offset: 64},
		},
	}

	clients, closeAll, err := BuildEndpointClients(u, cfg.StatusMemoryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeAll()

	if len(clients) != 1 {
		t.Fatalf("expected 1 shared client, got %d", len(clients))
	}
	if _, ok := clients[clientKey(KindIngest, "10.0.0.6:9000")]; !ok {
		t.Fatalf("ingest client missing")
	}
}

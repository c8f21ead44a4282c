package membership

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		HeartbeatIntervalMs: 10,
		SuspectTimeoutMs:    30,
		DeadTimeoutMs:       100,
		DeadRetentionMs:     1000,
	}
}

func ms(n int) int64 {
	return int64(n) * int64(time.Millisecond)
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Expected default config to be valid: %v", err)
	}

	invalid := []Config{
		{HeartbeatIntervalMs: 0, SuspectTimeoutMs: 30, DeadTimeoutMs: 100},
		{HeartbeatIntervalMs: 50, SuspectTimeoutMs: 30, DeadTimeoutMs: 100},
		{HeartbeatIntervalMs: 10, SuspectTimeoutMs: 30, DeadTimeoutMs: 30},
		{HeartbeatIntervalMs: 10, SuspectTimeoutMs: 30, DeadTimeoutMs: 100, DeadRetentionMs: -1},
	}
	for i, cfg := range invalid {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected config %d to be invalid", i)
		}
	}
}

func TestRegistryObserve(t *testing.T) {
	r := NewRegistry()

	if isNew := r.Observe("peer-1", "addr-1", ms(1)); !isNew {
		t.Errorf("Expected first contact to be new")
	}
	if isNew := r.Observe("peer-1", "addr-1", ms(2)); isNew {
		t.Errorf("Expected second contact to not be new")
	}

	record, ok := r.Get("peer-1")
	if !ok {
		t.Fatalf("Expected peer to be known")
	}
	if record.Status != StatusAlive || record.LastSeen != ms(2) || record.Addr != "addr-1" {
		t.Errorf("Unexpected record: %+v", record)
	}

	// an observation without an address keeps the known one
	r.Observe("peer-1", "", ms(3))
	if record, _ := r.Get("peer-1"); record.Addr != "addr-1" {
		t.Errorf("Expected address to be kept, got %q", record.Addr)
	}

	if r.Len() != 1 {
		t.Errorf("Expected 1 peer, got %d", r.Len())
	}
}

func TestMonitorStatusTransitions(t *testing.T) {
	r := NewRegistry()
	var events []Event
	m := NewMonitor(r, testConfig(), nil, func(e Event) {
		events = append(events, e)
	})

	r.Observe("peer-1", "addr-1", ms(0))

	// within the suspect timeout the peer stays alive
	m.Sweep(ms(20))
	if record, _ := r.Get("peer-1"); record.Status != StatusAlive {
		t.Errorf("Expected Alive at 20ms, got %s", record.Status)
	}

	// silent past the suspect timeout
	m.Sweep(ms(40))
	if record, _ := r.Get("peer-1"); record.Status != StatusSuspect {
		t.Errorf("Expected Suspect at 40ms, got %s", record.Status)
	}

	// silent past the dead timeout
	m.Sweep(ms(150))
	if record, _ := r.Get("peer-1"); record.Status != StatusDead {
		t.Errorf("Expected Dead at 150ms, got %s", record.Status)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].New != StatusSuspect || events[1].New != StatusDead {
		t.Errorf("Unexpected event sequence: %+v", events)
	}
}

func TestMonitorRevival(t *testing.T) {
	r := NewRegistry()
	m := NewMonitor(r, testConfig(), nil, nil)

	r.Observe("peer-1", "addr-1", ms(0))
	m.Sweep(ms(150))
	if record, _ := r.Get("peer-1"); record.Status != StatusDead {
		t.Fatalf("Expected Dead, got %s", record.Status)
	}

	// any message revives the peer
	r.Observe("peer-1", "addr-1", ms(200))
	if record, _ := r.Get("peer-1"); record.Status != StatusAlive {
		t.Errorf("Expected Alive after revival, got %s", record.Status)
	}

	// the stale reap entry must not forget the revived peer
	m.Sweep(ms(1200))
	if _, ok := r.Get("peer-1"); !ok {
		t.Errorf("Expected revived peer to survive the retention deadline")
	}
}

func TestMonitorReapsDeadPeers(t *testing.T) {
	r := NewRegistry()
	m := NewMonitor(r, testConfig(), nil, nil)

	r.Observe("peer-1", "addr-1", ms(0))
	r.Observe("peer-2", "addr-2", ms(0))

	m.Sweep(ms(150)) // both die, retention runs until 1150ms

	r.Observe("peer-2", "addr-2", ms(500)) // peer-2 comes back

	m.Sweep(ms(1200))

	if _, ok := r.Get("peer-1"); ok {
		t.Errorf("Expected dead peer to be forgotten after retention")
	}
	if _, ok := r.Get("peer-2"); !ok {
		t.Errorf("Expected revived peer to be kept")
	}
}

func TestAlivePeers(t *testing.T) {
	r := NewRegistry()
	m := NewMonitor(r, testConfig(), nil, nil)

	r.Observe("peer-1", "addr-1", ms(0))
	r.Observe("peer-2", "addr-2", ms(90))
	r.Observe("peer-3", "addr-3", ms(100))

	m.Sweep(ms(110))

	alive := r.AlivePeers()
	if len(alive) != 2 {
		t.Fatalf("Expected 2 alive peers, got %d", len(alive))
	}
	for _, record := range alive {
		if record.ID == "peer-1" {
			t.Errorf("Expected peer-1 to not be in the fan-out set")
		}
	}
}

func TestMonitorStartStop(t *testing.T) {
	r := NewRegistry()
	m := NewMonitor(r, testConfig(), nil, nil)

	r.Observe("peer-1", "addr-1", time.Now().UnixNano())

	m.Start()
	m.Start() // idempotent

	// with a 10ms interval and 100ms dead timeout the peer dies quickly
	deadline := time.Now().Add(5 * time.Second)
	for {
		if record, _ := r.Get("peer-1"); record.Status == StatusDead {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Peer never died")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Stop()
	m.Stop() // idempotent
}

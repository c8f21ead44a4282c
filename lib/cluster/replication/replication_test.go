package replication

import (
	"bytes"
	"testing"
	"time"

	"github.com/hivecache/hivecache/lib/cache"
	"github.com/hivecache/hivecache/lib/cache/engine/s3fifo"
	"github.com/hivecache/hivecache/lib/cluster/membership"
	"github.com/hivecache/hivecache/wire"
	"github.com/hivecache/hivecache/wire/serializer"
	"github.com/hivecache/hivecache/wire/transport"
	"github.com/hivecache/hivecache/wire/transport/inmem"
)

// --------------------------------------------------------------------------
// Test Harness
// --------------------------------------------------------------------------

// testPeer wires an engine, registry, broadcaster and receiver to an
// in-process network, like a node but without heartbeats and configuration.
type testPeer struct {
	id          string
	addr        string
	engine      cache.Engine
	registry    *membership.Registry
	broadcaster *Broadcaster
	receiver    *Receiver
	listener    transport.IListener
}

func newTestPeer(t *testing.T, network *inmem.Network, id string) *testPeer {
	t.Helper()

	addr := id + "-addr"
	tr := network.Transport(addr)
	s := serializer.NewBinarySerializer()
	engine := s3fifo.New(nil)
	registry := membership.NewRegistry()

	broadcaster := NewBroadcaster(id, addr, tr, s, registry)
	receiver := NewReceiver(id, addr, engine, registry, broadcaster, s, nil)

	listener, err := tr.Listen(addr, receiver.Handle)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	p := &testPeer{
		id:          id,
		addr:        addr,
		engine:      engine,
		registry:    registry,
		broadcaster: broadcaster,
		receiver:    receiver,
		listener:    listener,
	}
	t.Cleanup(func() {
		p.broadcaster.Close()
		_ = p.listener.Close()
		_ = p.engine.Close()
	})
	return p
}

// waitFor polls until the condition holds or the test times out
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func now() int64 {
	return time.Now().UnixNano()
}

// --------------------------------------------------------------------------
// Test Functions
// --------------------------------------------------------------------------

func TestBroadcastUpdate(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestPeer(t, network, "node-a")
	b := newTestPeer(t, network, "node-b")

	a.registry.Observe(b.id, b.addr, now())

	a.engine.Set("key", []byte("value"), 42, a.id, 0)
	a.broadcaster.Broadcast(wire.NewUpdateMessage("key", []byte("value"), 42, a.id, 0, a.id))

	waitFor(t, "update to replicate", func() bool {
		value, ok := b.engine.Get("key")
		return ok && bytes.Equal(value, []byte("value"))
	})

	// the update also proved node-a alive at node-b
	record, ok := b.registry.Get(a.id)
	if !ok || record.Status != membership.StatusAlive {
		t.Errorf("Expected sender to be registered alive, got %+v", record)
	}
}

func TestBroadcastDelete(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestPeer(t, network, "node-a")
	b := newTestPeer(t, network, "node-b")

	a.registry.Observe(b.id, b.addr, now())
	b.engine.Set("key", []byte("value"), 10, b.id, 0)

	a.broadcaster.Broadcast(wire.NewDeleteMessage("key", 20, a.id, a.id))

	waitFor(t, "delete to replicate", func() bool {
		_, ok := b.engine.Get("key")
		return !ok
	})
}

func TestStaleUpdateRejected(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestPeer(t, network, "node-a")
	b := newTestPeer(t, network, "node-b")

	a.registry.Observe(b.id, b.addr, now())
	b.engine.Set("key", []byte("newer"), 100, b.id, 0)

	a.broadcaster.Broadcast(wire.NewUpdateMessage("key", []byte("older"), 50, a.id, 0, a.id))

	waitFor(t, "stale update to be counted", func() bool {
		_, rejected, _ := b.receiver.Stats()
		return rejected == 1
	})

	if value, _ := b.engine.Get("key"); !bytes.Equal(value, []byte("newer")) {
		t.Errorf("Expected stale update to lose, got %q", value)
	}
}

func TestDeadPeerExcludedFromFanOut(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestPeer(t, network, "node-a")
	b := newTestPeer(t, network, "node-b")

	a.registry.Observe(b.id, b.addr, now())

	// declare node-b dead before broadcasting
	monitor := membership.NewMonitor(a.registry, membership.DefaultConfig(), nil, nil)
	monitor.Sweep(now() + int64(time.Hour))

	a.broadcaster.Broadcast(wire.NewUpdateMessage("key", []byte("value"), 42, a.id, 0, a.id))

	if sent, _ := a.broadcaster.Stats(); sent != 0 {
		t.Errorf("Expected no messages to a dead peer, got %d", sent)
	}
}

func TestJoinReciprocal(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestPeer(t, network, "node-a")
	b := newTestPeer(t, network, "node-b")

	a.broadcaster.SendTo(b.addr, wire.NewJoinMessage(a.id, a.addr, false))

	// both sides must end up knowing each other
	waitFor(t, "b to learn of a", func() bool {
		_, ok := b.registry.Get(a.id)
		return ok
	})
	waitFor(t, "a to learn of b", func() bool {
		_, ok := a.registry.Get(b.id)
		return ok
	})

	record, _ := a.registry.Get(b.id)
	if record.Addr != b.addr {
		t.Errorf("Expected reciprocal join to carry the address, got %q", record.Addr)
	}
}

func TestBootstrapSnapshot(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestPeer(t, network, "node-a")
	c := newTestPeer(t, network, "node-c")

	a.engine.Set("k1", []byte("v1"), 10, a.id, 0)
	a.engine.Set("k2", []byte("v2"), 20, a.id, 0)
	a.engine.Set("k3", []byte("v3"), 30, "node-b", 0) // relayed entry keeps its origin

	c.broadcaster.SendTo(a.addr, wire.NewJoinMessage(c.id, c.addr, true))

	waitFor(t, "snapshot to arrive", func() bool {
		return c.engine.Len() == 3
	})

	if value, _ := c.engine.Get("k2"); !bytes.Equal(value, []byte("v2")) {
		t.Errorf("Expected snapshot entry k2=v2, got %q", value)
	}

	// the snapshot must not clobber newer local state
	c.engine.Set("k1", []byte("local"), 100, c.id, 0)
	c.broadcaster.SendTo(a.addr, wire.NewJoinMessage(c.id, c.addr, true))

	waitFor(t, "second snapshot to be processed", func() bool {
		applied, rejected, _ := c.receiver.Stats()
		return applied+rejected >= 6
	})
	if value, _ := c.engine.Get("k1"); !bytes.Equal(value, []byte("local")) {
		t.Errorf("Expected newer local write to survive the snapshot, got %q", value)
	}
}

func TestMalformedMessageDropped(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestPeer(t, network, "node-a")

	a.receiver.Handle([]byte{})
	a.receiver.Handle([]byte{0x01})
	a.receiver.Handle([]byte{0xff, 0xff, 0x00, 0x01})

	_, _, malformed := a.receiver.Stats()
	if malformed == 0 {
		t.Errorf("Expected malformed messages to be counted")
	}
	if a.engine.Len() != 0 {
		t.Errorf("Expected no entries from malformed input")
	}
}

func TestEchoedMessageIgnored(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestPeer(t, network, "node-a")

	s := serializer.NewBinarySerializer()
	data, _ := s.Serialize(*wire.NewUpdateMessage("key", []byte("value"), 42, a.id, 0, a.id))
	a.receiver.Handle(data)

	if a.engine.Len() != 0 {
		t.Errorf("Expected own messages to be ignored")
	}
	if a.registry.Len() != 0 {
		t.Errorf("Expected no self-registration")
	}
}

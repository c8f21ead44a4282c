package node

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hivecache/hivecache/lib/cluster/membership"
	"github.com/hivecache/hivecache/wire/transport/inmem"
)

// --------------------------------------------------------------------------
// Test Harness
// --------------------------------------------------------------------------

// newTestNode creates and starts a node on the in-process network with
// timing fast enough for tests.
func newTestNode(t *testing.T, network *inmem.Network, id string, seeds []string, bootstrap bool) *Node {
	t.Helper()

	cfg := DefaultConfig()
	cfg.ID = id
	cfg.BindAddr = id + "-addr"
	cfg.Seeds = seeds
	cfg.Bootstrap = bootstrap
	cfg.Membership = membership.Config{
		HeartbeatIntervalMs: 10,
		SuspectTimeoutMs:    50,
		DeadTimeoutMs:       150,
		DeadRetentionMs:     60000,
	}

	n, err := New(cfg, network.Transport(cfg.BindAddr))
	if err != nil {
		t.Fatalf("Failed to create node %s: %v", id, err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Failed to start node %s: %v", id, err)
	}
	t.Cleanup(func() { _ = n.Close() })
	return n
}

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

// peerStatus returns the status of peer id as seen by n
func peerStatus(n *Node, id string) (membership.PeerStatus, bool) {
	for _, record := range n.Peers() {
		if record.ID == id {
			return record.Status, true
		}
	}
	return 0, false
}

// --------------------------------------------------------------------------
// Test Functions
// --------------------------------------------------------------------------

func TestTwoNodeConvergence(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestNode(t, network, "node-a", nil, false)
	b := newTestNode(t, network, "node-b", []string{"node-a-addr"}, false)

	// the join handshake makes the nodes mutually known
	waitFor(t, "mutual discovery", func() bool {
		_, aKnowsB := peerStatus(a, "node-b")
		_, bKnowsA := peerStatus(b, "node-a")
		return aKnowsB && bKnowsA
	})

	// writes flow in both directions
	a.Put("from-a", []byte("1"))
	b.Put("from-b", []byte("2"))

	waitFor(t, "a's write to reach b", func() bool {
		value, ok := b.Get("from-a")
		return ok && bytes.Equal(value, []byte("1"))
	})
	waitFor(t, "b's write to reach a", func() bool {
		value, ok := a.Get("from-b")
		return ok && bytes.Equal(value, []byte("2"))
	})

	// deletes flow too
	a.Delete("from-b")
	waitFor(t, "delete to reach b", func() bool {
		_, ok := b.Get("from-b")
		return !ok
	})
}

func TestConcurrentWritesConverge(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestNode(t, network, "node-a", nil, false)
	b := newTestNode(t, network, "node-b", []string{"node-a-addr"}, false)

	waitFor(t, "mutual discovery", func() bool {
		_, aKnowsB := peerStatus(a, "node-b")
		_, bKnowsA := peerStatus(b, "node-a")
		return aKnowsB && bKnowsA
	})

	// both nodes hammer the same keys; no matter who wins each key, both
	// nodes must end up with the same winner
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i%10)
		a.Put(key, []byte("from-a"))
		b.Put(key, []byte("from-b"))
	}

	waitFor(t, "all keys to converge", func() bool {
		for i := 0; i < 10; i++ {
			key := fmt.Sprintf("key-%d", i)
			va, okA := a.Get(key)
			vb, okB := b.Get(key)
			if !okA || !okB || !bytes.Equal(va, vb) {
				return false
			}
		}
		return true
	})
}

func TestPartitionDegradation(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestNode(t, network, "node-a", nil, false)
	b := newTestNode(t, network, "node-b", []string{"node-a-addr"}, false)

	waitFor(t, "mutual discovery", func() bool {
		_, aKnowsB := peerStatus(a, "node-b")
		_, bKnowsA := peerStatus(b, "node-a")
		return aKnowsB && bKnowsA
	})

	network.Partition("node-b-addr")

	// the partitioned peer falls to dead on both sides
	waitFor(t, "a to declare b dead", func() bool {
		status, ok := peerStatus(a, "node-b")
		return ok && status == membership.StatusDead
	})

	// writes keep succeeding locally while the peer is gone
	a.Put("during-partition", []byte("v"))
	if _, ok := a.Get("during-partition"); !ok {
		t.Fatalf("Expected local write to succeed during the partition")
	}

	network.Heal("node-b-addr")

	// heartbeats revive the peer, then new writes flow again
	waitFor(t, "a to see b alive again", func() bool {
		status, ok := peerStatus(a, "node-b")
		return ok && status == membership.StatusAlive
	})

	a.Put("after-heal", []byte("v2"))
	waitFor(t, "post-heal write to reach b", func() bool {
		_, ok := b.Get("after-heal")
		return ok
	})
}

func TestBootstrap(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestNode(t, network, "node-a", nil, false)

	for i := 0; i < 20; i++ {
		a.Put(fmt.Sprintf("key-%d", i), []byte("warm"))
	}

	// a new node with the bootstrap flag starts warm
	c := newTestNode(t, network, "node-c", []string{"node-a-addr"}, true)

	waitFor(t, "snapshot to arrive", func() bool {
		return c.Info().Entries == 20
	})

	if value, ok := c.Get("key-7"); !ok || !bytes.Equal(value, []byte("warm")) {
		t.Errorf("Expected bootstrapped entry, got %q (ok=%v)", value, ok)
	}
}

func TestMetrics(t *testing.T) {
	network := inmem.NewNetwork()
	a := newTestNode(t, network, "node-a", nil, false)

	a.Put("key", []byte("value"))
	a.Get("key")
	a.Get("missing")

	var buf bytes.Buffer
	a.WritePrometheus(&buf)
	output := buf.String()

	for _, metric := range []string{
		`hivecache_entries{node="node-a"} 1`,
		`hivecache_puts_total{node="node-a"} 1`,
		`hivecache_get_hits_total{node="node-a"} 1`,
		`hivecache_get_misses_total{node="node-a"} 1`,
	} {
		if !strings.Contains(output, metric) {
			t.Errorf("Expected metrics output to contain %q", metric)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected missing bind address to be rejected")
	}

	cfg = DefaultConfig()
	cfg.BindAddr = "127.0.0.1:7000"
	cfg.Bootstrap = true
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected bootstrap without seeds to be rejected")
	}

	cfg = DefaultConfig()
	cfg.BindAddr = "127.0.0.1:7000"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected config to be valid: %v", err)
	}
	if cfg.AdvertiseAddr != cfg.BindAddr {
		t.Errorf("Expected advertise address to default to the bind address")
	}
}

func TestNodeLifecycle(t *testing.T) {
	network := inmem.NewNetwork()
	n := newTestNode(t, network, "node-a", nil, false)

	if err := n.Start(); err != nil {
		t.Errorf("Expected second Start to be a no-op: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Failed to close: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op: %v", err)
	}
	if err := n.Start(); err == nil {
		t.Errorf("Expected Start after Close to fail")
	}
}

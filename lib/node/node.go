package node

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hivecache/hivecache/lib/cache"
	"github.com/hivecache/hivecache/lib/cache/engine/s3fifo"
	"github.com/hivecache/hivecache/lib/cluster/membership"
	"github.com/hivecache/hivecache/lib/cluster/replication"
	"github.com/hivecache/hivecache/lib/logger"
	"github.com/hivecache/hivecache/wire"
	"github.com/hivecache/hivecache/wire/serializer"
	"github.com/hivecache/hivecache/wire/transport"
	"github.com/hivecache/hivecache/wire/transport/tcp"
)

var log = logger.GetLogger("node")

// Node is one member of the cache cluster: a local S3-FIFO engine plus the
// machinery that replicates writes to peers and tracks their liveness. All
// public methods are safe for concurrent use.
//
// Reads are always local. Writes apply locally first and are then broadcast
// fire-and-forget; Put and Delete return as soon as the local engine is
// updated.
type Node struct {
	config Config

	engine      cache.Engine
	clock       *Clock
	registry    *membership.Registry
	monitor     *membership.Monitor
	broadcaster *replication.Broadcaster
	receiver    *replication.Receiver
	transport   transport.ITransport
	listener    transport.IListener
	metrics     *nodeMetrics

	mu        sync.Mutex
	stopCh    chan struct{}
	stoppedCh chan struct{}
	started   bool
	closed    bool
}

// New creates a node from the given config. tr may be nil, in which case the
// TCP transport is used; tests inject an in-memory transport instead. The
// node does not touch the network until Start.
func New(config Config, tr transport.ITransport) (*Node, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if lvl, err := logger.ParseLevel(config.LogLevel); err == nil {
		logger.SetAllLevels(lvl)
	} else {
		return nil, err
	}

	if tr == nil {
		tr = tcp.New(config.Transport)
	}

	engine := s3fifo.New(&s3fifo.Options{
		CapacityBytes:    config.CapacityBytes,
		SmallFraction:    config.SmallFraction,
		GhostEntries:     config.GhostEntries,
		TombstoneEntries: config.TombstoneEntries,
		NumShards:        config.NumShards,
	})

	s := serializer.NewBinarySerializer()
	registry := membership.NewRegistry()
	broadcaster := replication.NewBroadcaster(config.ID, config.AdvertiseAddr, tr, s, registry)
	receiver := replication.NewReceiver(config.ID, config.AdvertiseAddr, engine, registry, broadcaster, s, nil)

	// dead or forgotten peers lose their sender; a later message recreates it
	monitor := membership.NewMonitor(registry, config.Membership, nil, func(e membership.Event) {
		if e.New == membership.StatusDead {
			broadcaster.Prune(e.Peer.Addr)
		}
	})

	n := &Node{
		config:      config,
		engine:      engine,
		clock:       NewClock(),
		registry:    registry,
		monitor:     monitor,
		broadcaster: broadcaster,
		receiver:    receiver,
		transport:   tr,
	}
	n.metrics = newNodeMetrics(n)
	return n, nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Start opens the replication listener, starts the failure detector and the
// heartbeat loop, and announces the node to its seeds.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return fmt.Errorf("node %s is closed", n.config.ID)
	}
	if n.started {
		return nil
	}

	listener, err := n.transport.Listen(n.config.BindAddr, n.receiver.Handle)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	n.listener = listener

	n.monitor.Start()

	n.stopCh = make(chan struct{})
	n.stoppedCh = make(chan struct{})
	go n.heartbeatLoop(n.stopCh, n.stoppedCh)

	// announce ourselves; with Bootstrap set the seeds push their entries back
	join := wire.NewJoinMessage(n.config.ID, n.config.AdvertiseAddr, n.config.Bootstrap)
	for _, seed := range n.config.Seeds {
		n.broadcaster.SendTo(seed, join)
	}

	n.started = true
	log.Infof("started:\n%s", n.config)
	return nil
}

// Close stops all background work and releases the engine. The node cannot
// be restarted.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if n.started {
		close(n.stopCh)
		<-n.stoppedCh
		n.monitor.Stop()
	}
	n.broadcaster.Close()

	var err error
	if n.listener != nil {
		err = n.listener.Close()
	}
	if cerr := n.engine.Close(); err == nil {
		err = cerr
	}

	log.Infof("node %s closed", n.config.ID)
	return err
}

// heartbeatLoop periodically announces the node to every known peer. Unlike
// replication fan-out, heartbeats also go to Suspect and Dead peers: after a
// partition heals, they are what revives the remote record.
func (n *Node) heartbeatLoop(stopCh, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	interval := time.Duration(n.config.Membership.HeartbeatIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			beat := wire.NewHeartbeatMessage(n.config.ID, n.config.AdvertiseAddr)
			for _, peer := range n.registry.Peers() {
				n.broadcaster.SendTo(peer.Addr, beat)
			}
		}
	}
}

// --------------------------------------------------------------------------
// Cache API
// --------------------------------------------------------------------------

// Get returns the local copy of a key. It never touches the network.
func (n *Node) Get(key string) ([]byte, bool) {
	value, ok := n.engine.Get(key)
	if ok {
		n.metrics.getHits.Inc()
	} else {
		n.metrics.getMisses.Inc()
	}
	return value, ok
}

// Put writes a key locally and broadcasts the update to all alive peers
func (n *Node) Put(key string, value []byte) {
	n.put(key, value, 0)
}

// PutTTL writes a key that expires after the given duration
func (n *Node) PutTTL(key string, value []byte, ttl time.Duration) {
	expireAt := uint64(time.Now().Add(ttl).UnixNano())
	n.put(key, value, expireAt)
}

func (n *Node) put(key string, value []byte, expireAt uint64) {
	ts := n.clock.Next()
	evicted := n.engine.Set(key, value, ts, n.config.ID, expireAt)

	n.metrics.puts.Inc()
	if len(evicted) > 0 {
		n.metrics.evictions.Add(len(evicted))
	}

	n.broadcaster.Broadcast(wire.NewUpdateMessage(key, value, ts, n.config.ID, expireAt, n.config.ID))
}

// Delete removes a key locally and broadcasts the delete. Returns whether a
// local entry existed.
func (n *Node) Delete(key string) bool {
	ts := n.clock.Next()
	deleted := n.engine.Delete(key, ts, n.config.ID)
	n.metrics.deletes.Inc()

	n.broadcaster.Broadcast(wire.NewDeleteMessage(key, ts, n.config.ID, n.config.ID))
	return deleted
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

// ID returns the node identifier
func (n *Node) ID() string {
	return n.config.ID
}

// Addr returns the address the replication listener is bound to
func (n *Node) Addr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return n.config.BindAddr
	}
	return n.listener.Addr()
}

// Peers returns a snapshot of all known peers
func (n *Node) Peers() []membership.PeerRecord {
	return n.registry.Peers()
}

// Info returns statistics about the local engine
func (n *Node) Info() cache.EngineInfo {
	return n.engine.GetInfo()
}

// WritePrometheus writes the node's metrics in Prometheus text format
func (n *Node) WritePrometheus(w io.Writer) {
	n.metrics.WritePrometheus(w)
}

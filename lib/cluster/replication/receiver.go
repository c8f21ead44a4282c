package replication

import (
	"sync/atomic"
	"time"

	"github.com/hivecache/hivecache/lib/cache"
	"github.com/hivecache/hivecache/lib/cluster/membership"
	"github.com/hivecache/hivecache/wire"
	"github.com/hivecache/hivecache/wire/serializer"
)

// --------------------------------------------------------------------------
// Receiver
// --------------------------------------------------------------------------

// Receiver handles all inbound replication traffic. Handle is wired to the
// transport listener; every message refreshes the sender's membership record
// before being dispatched by kind.
//
// Thread-safety: Handle is safe for concurrent use.
type Receiver struct {
	localID     string
	localAddr   string
	engine      cache.Engine
	registry    *membership.Registry
	broadcaster *Broadcaster
	serializer  serializer.ISerializer
	now         func() int64

	applied   atomic.Uint64 // entry messages that won against the local copy
	rejected  atomic.Uint64 // entry messages that lost
	malformed atomic.Uint64 // messages that failed to deserialize
}

// NewReceiver creates a receiver for the given local identity. now may be
// nil, in which case the wall clock is used.
func NewReceiver(localID, localAddr string, engine cache.Engine, registry *membership.Registry, broadcaster *Broadcaster, s serializer.ISerializer, now func() int64) *Receiver {
	if now == nil {
		now = func() int64 { return time.Now().UnixNano() }
	}
	return &Receiver{
		localID:     localID,
		localAddr:   localAddr,
		engine:      engine,
		registry:    registry,
		broadcaster: broadcaster,
		serializer:  s,
		now:         now,
	}
}

// Handle processes one raw message from the transport (see
// transport.HandleFunc). Malformed messages are counted and dropped; a
// misbehaving peer must not take the receiver down.
func (r *Receiver) Handle(data []byte) {
	var msg wire.Message
	if err := r.serializer.Deserialize(data, &msg); err != nil {
		r.malformed.Add(1)
		log.Warnf("dropped malformed message: %v", err)
		return
	}

	if msg.Sender == "" || msg.Sender == r.localID {
		return // anonymous or echoed message
	}

	// every message proves its sender alive
	isNew := r.registry.Observe(msg.Sender, msg.Addr, r.now())

	switch msg.Kind {
	case wire.MsgKUpdate, wire.MsgKSnapshot:
		applied, _ := r.engine.Merge(msg.Key, msg.Value, msg.Timestamp, msg.Origin, msg.ExpireAt)
		r.count(applied)

	case wire.MsgKDelete:
		applied := r.engine.MergeDelete(msg.Key, msg.Timestamp, msg.Origin)
		r.count(applied)

	case wire.MsgKHeartbeat:
		// the Observe above is all a heartbeat does

	case wire.MsgKJoin:
		r.handleJoin(&msg, isNew)

	default:
		r.malformed.Add(1)
		log.Warnf("dropped message of unknown kind %d from %s", msg.Kind, msg.Sender)
	}
}

// Stats returns the number of applied, rejected and malformed messages
func (r *Receiver) Stats() (applied, rejected, malformed uint64) {
	return r.applied.Load(), r.rejected.Load(), r.malformed.Load()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (r *Receiver) count(applied bool) {
	if applied {
		r.applied.Add(1)
	} else {
		r.rejected.Add(1)
	}
}

// handleJoin answers a first contact with a reciprocal Join (so both sides
// learn of each other without a broadcast storm) and serves a bootstrap
// request with a one-way snapshot push of all resident entries.
func (r *Receiver) handleJoin(msg *wire.Message, isNew bool) {
	if msg.Addr == "" {
		log.Warnf("ignored join from %s without an address", msg.Sender)
		return
	}

	log.Infof("peer %s joined from %s (bootstrap=%v)", msg.Sender, msg.Addr, msg.Bootstrap)

	if isNew {
		r.broadcaster.SendTo(msg.Addr, wire.NewJoinMessage(r.localID, r.localAddr, false))
	}

	if msg.Bootstrap {
		r.pushSnapshot(msg.Addr)
	}
}

// pushSnapshot enqueues every resident entry as a Snapshot message. The
// origin of each entry is preserved so the joiner's resolver orders it
// correctly against writes from other peers.
func (r *Receiver) pushSnapshot(addr string) {
	count := 0
	r.engine.Export(func(e cache.ExportedEntry) bool {
		r.broadcaster.SendTo(addr, wire.NewSnapshotMessage(e.Key, e.Value, e.Timestamp, e.Origin, e.ExpireAt, r.localID))
		count++
		return true
	})
	log.Infof("pushed snapshot of %d entries to %s", count, addr)
}

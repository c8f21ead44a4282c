package membership

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Peer Types
// --------------------------------------------------------------------------

// PeerStatus describes how alive a peer currently looks
type PeerStatus uint8

const (
	StatusAlive PeerStatus = iota
	StatusSuspect
	StatusDead
)

func (s PeerStatus) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusSuspect:
		return "suspect"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// PeerRecord is everything a node knows about one peer
type PeerRecord struct {
	ID       string     `json:"id"`
	Addr     string     `json:"addr"`
	Status   PeerStatus `json:"status"`
	LastSeen int64      `json:"lastSeen"` // unix nanoseconds of the last message
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry is the thread-safe set of known peers. It only stores and
// transitions records; the timing logic lives in the Monitor.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	peers *xsync.MapOf[string, PeerRecord]
}

// NewRegistry creates an empty peer registry
func NewRegistry() *Registry {
	return &Registry{
		peers: xsync.NewMapOf[string, PeerRecord](),
	}
}

// Observe records that a message from the given peer arrived at time now.
// The peer is created or revived to Alive and its address refreshed. Returns
// true if the peer was not known before (first contact).
func (r *Registry) Observe(id, addr string, now int64) (isNew bool) {
	r.peers.Compute(id, func(old PeerRecord, loaded bool) (PeerRecord, bool) {
		isNew = !loaded
		record := PeerRecord{
			ID:       id,
			Addr:     addr,
			Status:   StatusAlive,
			LastSeen: now,
		}
		if addr == "" && loaded {
			record.Addr = old.Addr
		}
		return record, false
	})
	return isNew
}

// Get returns the record of one peer
func (r *Registry) Get(id string) (PeerRecord, bool) {
	return r.peers.Load(id)
}

// Remove forgets a peer entirely
func (r *Registry) Remove(id string) {
	r.peers.Delete(id)
}

// Len returns the number of known peers
func (r *Registry) Len() int {
	return r.peers.Size()
}

// Peers returns a snapshot of all known peers
func (r *Registry) Peers() []PeerRecord {
	result := make([]PeerRecord, 0, r.peers.Size())
	r.peers.Range(func(_ string, record PeerRecord) bool {
		result = append(result, record)
		return true
	})
	return result
}

// AlivePeers returns a snapshot of all peers currently considered Alive.
// This is the replication fan-out set.
func (r *Registry) AlivePeers() []PeerRecord {
	result := make([]PeerRecord, 0, r.peers.Size())
	r.peers.Range(func(_ string, record PeerRecord) bool {
		if record.Status == StatusAlive {
			result = append(result, record)
		}
		return true
	})
	return result
}

// transition moves a peer to the given status if it is still known and its
// LastSeen has not advanced past the given value (a concurrent Observe wins).
// Returns the updated record and whether the transition happened.
func (r *Registry) transition(id string, lastSeen int64, status PeerStatus) (PeerRecord, bool) {
	var changed bool
	record, ok := r.peers.Compute(id, func(old PeerRecord, loaded bool) (PeerRecord, bool) {
		if !loaded {
			return old, true // keep absent
		}
		if old.LastSeen != lastSeen || old.Status == status {
			return old, false
		}
		changed = true
		old.Status = status
		return old, false
	})
	return record, ok && changed
}

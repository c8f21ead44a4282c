package internal

import (
	"sync"

	"github.com/hivecache/hivecache/lib/cache"
	"github.com/hivecache/hivecache/lib/cache/util"
)

// Constants for entry accounting and the access frequency cap
const (
	// EntryOverhead approximates the fixed per-entry bookkeeping cost in bytes
	EntryOverhead = 64
	// maxFreq caps the access frequency counter
	maxFreq = 3
)

// --------------------------------------------------------------------------
// Entry Node
// --------------------------------------------------------------------------

// Node is a cache entry together with its queue links. It is owned by exactly
// one shard and referenced by at most one queue at a time. Ghost nodes keep
// the key but carry no value and no size.
type Node struct {
	Key       string
	Hash      util.UintKey
	Value     []byte
	Timestamp uint64 // logical wall-clock timestamp of the last write
	Origin    string // node id that produced the last write
	ExpireAt  uint64 // absolute unix-nano deadline, 0 = no expiry
	Size      int64
	Freq      uint8
	Queue     cache.Queue

	prev, next *Node
}

// Expired reports whether the node's TTL has elapsed at the given time.
func (n *Node) Expired(now int64) bool {
	return n.ExpireAt != 0 && uint64(now) >= n.ExpireAt
}

// entrySize returns the accounted size of an entry.
func entrySize(key string, value []byte) int64 {
	return int64(len(key)) + int64(len(value)) + EntryOverhead
}

// --------------------------------------------------------------------------
// Tombstones
// --------------------------------------------------------------------------

// Tombstone remembers the timestamp of a delete so replicated updates that
// were overtaken by the delete cannot resurrect the key. Tombstones are
// bounded per shard; the oldest marker is dropped when the bound is reached.
type Tombstone struct {
	Timestamp uint64
	Origin    string
}

// --------------------------------------------------------------------------
// Shard Type (partition of the entry store)
// --------------------------------------------------------------------------

// Shard is one partition of the entry store. Each shard owns its key map, its
// Small/Main/Ghost queues and its tombstone record, all guarded by a single
// mutex so queue movement is always atomic with map mutation. Eviction runs
// synchronously inside the mutating call.
type Shard struct {
	mu    sync.Mutex
	items map[util.UintKey]*Node

	small FIFO
	main  FIFO
	ghost FIFO

	tombs    map[util.UintKey]Tombstone
	tombRing []util.UintKey // FIFO of tombstone hashes, bounds the tombs map
	tombHead int
	tombLen  int

	smallCap int64
	mainCap  int64
	ghostCap int
}

// NewShard creates a shard with the given byte capacities for the Small and
// Main queues and entry-count bounds for the ghost queue and tombstone record.
func NewShard(smallCap, mainCap int64, ghostCap, tombCap int) *Shard {
	return &Shard{
		items:    make(map[util.UintKey]*Node),
		small:    FIFO{ID: cache.QueueSmall},
		main:     FIFO{ID: cache.QueueMain},
		ghost:    FIFO{ID: cache.QueueGhost},
		tombs:    make(map[util.UintKey]Tombstone, tombCap),
		tombRing: make([]util.UintKey, tombCap),
		smallCap: smallCap,
		mainCap:  mainCap,
		ghostCap: ghostCap,
	}
}

// GetShard returns the shard responsible for a hashed key.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func GetShard(key util.UintKey, shards []*Shard) *Shard {
	// Shift right by 7 bits to use higher-quality bits for distribution
	shiftedKey := uint64(key) >> 7
	return shards[shiftedKey%uint64(len(shards))]
}

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

// Get returns a copy of the value for a key and bumps its frequency counter.
// Ghost nodes and expired entries count as misses; expired entries are
// removed on the spot (lazy TTL).
func (s *Shard) Get(h util.UintKey, now int64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[h]
	if !ok || n.Queue == cache.QueueGhost {
		return nil, false
	}

	if n.Expired(now) {
		s.queueOf(n).Remove(n)
		delete(s.items, h)
		return nil, false
	}

	if n.Freq < maxFreq {
		n.Freq++
	}

	value := make([]byte, len(n.Value))
	copy(value, n.Value)
	return value, true
}

// QueueOf reports the queue membership of a key.
func (s *Shard) QueueOf(h util.UintKey) cache.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.items[h]; ok {
		return n.Queue
	}
	return cache.QueueNone
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// Upsert inserts or updates an entry. With force=true (local writes) the
// write always applies; otherwise it is gated by the conflict resolver
// against the stored entry or its deletion marker. It returns whether the
// write applied and which keys were evicted to stay within capacity.
func (s *Shard) Upsert(key string, h util.UintKey, value []byte, ts uint64, origin string, expireAt uint64, force bool, now int64) (bool, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force {
		if tomb, ok := s.tombs[h]; ok {
			if cache.Resolve(tomb.Timestamp, tomb.Origin, ts, origin) == cache.Keep {
				return false, nil
			}
		}
	}

	n, exists := s.items[h]
	if exists && n.Queue != cache.QueueGhost {
		if !force && cache.Resolve(n.Timestamp, n.Origin, ts, origin) == cache.Keep {
			return false, nil
		}
	}

	// the write wins, any remembered deletion is obsolete
	delete(s.tombs, h)

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	size := entrySize(key, value)

	switch {
	case exists && n.Queue == cache.QueueGhost:
		// readmission within the ghost window skips probation
		s.ghost.Remove(n)
		n.Value = valueCopy
		n.Size = size
		n.Timestamp = ts
		n.Origin = origin
		n.ExpireAt = expireAt
		n.Freq = 0
		s.main.PushTail(n)

	case exists:
		s.queueOf(n).AdjustBytes(size - n.Size)
		n.Value = valueCopy
		n.Size = size
		n.Timestamp = ts
		n.Origin = origin
		n.ExpireAt = expireAt
		if n.Freq < maxFreq {
			n.Freq++
		}

	default:
		n = &Node{
			Key:       key,
			Hash:      h,
			Value:     valueCopy,
			Timestamp: ts,
			Origin:    origin,
			ExpireAt:  expireAt,
			Size:      size,
		}
		s.items[h] = n
		s.small.PushTail(n)
	}

	return true, s.rebalance(now)
}

// Delete removes an entry and remembers the deletion timestamp. With
// force=true the delete always applies; otherwise it is gated by the
// resolver. It returns whether the delete won and whether a resident entry
// was actually removed.
func (s *Shard) Delete(h util.UintKey, ts uint64, origin string, force bool) (won, removed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.items[h]

	if !force {
		localTS, localOrigin := uint64(0), ""
		if exists && n.Queue != cache.QueueGhost {
			localTS, localOrigin = n.Timestamp, n.Origin
		} else if tomb, ok := s.tombs[h]; ok {
			localTS, localOrigin = tomb.Timestamp, tomb.Origin
		}
		if localTS != 0 && cache.Resolve(localTS, localOrigin, ts, origin) == cache.Keep {
			return false, false
		}
	}

	s.rememberTomb(h, ts, origin)

	if exists {
		removed = n.Queue != cache.QueueGhost
		s.queueOf(n).Remove(n)
		delete(s.items, h)
	}
	return true, removed
}

// rememberTomb records a deletion marker, dropping the oldest marker when the
// bound is reached. Re-deleting a key adds a second ring slot for the same
// hash; overflow may then drop a marker early, an accepted tradeoff for a
// hard memory bound.
func (s *Shard) rememberTomb(h util.UintKey, ts uint64, origin string) {
	if len(s.tombRing) == 0 {
		return
	}

	if s.tombLen == len(s.tombRing) {
		oldest := s.tombRing[s.tombHead]
		delete(s.tombs, oldest)
		s.tombHead = (s.tombHead + 1) % len(s.tombRing)
		s.tombLen--
	}

	s.tombRing[(s.tombHead+s.tombLen)%len(s.tombRing)] = h
	s.tombLen++
	s.tombs[h] = Tombstone{Timestamp: ts, Origin: origin}
}

// Tomb returns the deletion marker for a key, if one is remembered.
func (s *Shard) Tomb(h util.UintKey) (Tombstone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tombs[h]
	return t, ok
}

// --------------------------------------------------------------------------
// Eviction
// --------------------------------------------------------------------------

// rebalance enforces the capacity invariants after a mutation. The capacity
// pass inspects the head of Small first and falls back to Main once Small is
// drained; a second pass keeps Small within its probation fraction and the
// ghost queue within its entry bound. Returns the keys whose values were
// dropped. Caller must hold s.mu.
func (s *Shard) rebalance(now int64) []string {
	var evicted []string

	for s.small.Bytes()+s.main.Bytes() > s.smallCap+s.mainCap {
		if s.small.Len() > 0 {
			evicted = s.processSmallHead(now, evicted)
		} else if s.main.Len() > 0 {
			evicted = s.processMainHead(now, evicted)
		} else {
			break
		}
	}

	for s.small.Bytes() > s.smallCap && s.small.Len() > 0 {
		evicted = s.processSmallHead(now, evicted)
	}

	for s.ghost.Len() > s.ghostCap {
		g := s.ghost.PopHead()
		delete(s.items, g.Hash)
	}

	return evicted
}

// processSmallHead gives the oldest probationary entry a second life in Main
// if it has been accessed, otherwise demotes it to the ghost queue.
func (s *Shard) processSmallHead(now int64, evicted []string) []string {
	n := s.small.PopHead()

	if n.Expired(now) {
		delete(s.items, n.Hash)
		return append(evicted, n.Key)
	}

	if n.Freq > 0 {
		n.Freq = 0
		s.main.PushTail(n)
		return evicted
	}

	// demote: drop the value, keep the key in the ghost window
	n.Value = nil
	n.Size = 0
	s.ghost.PushTail(n)
	return append(evicted, n.Key)
}

// processMainHead re-queues an accessed entry with decremented frequency,
// otherwise evicts it outright (no further tier below Main).
func (s *Shard) processMainHead(now int64, evicted []string) []string {
	n := s.main.PopHead()

	if n.Expired(now) {
		delete(s.items, n.Hash)
		return append(evicted, n.Key)
	}

	if n.Freq > 0 {
		n.Freq--
		s.main.PushTail(n)
		return evicted
	}

	delete(s.items, n.Hash)
	return append(evicted, n.Key)
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

// ShardStats is a snapshot of one shard's accounting.
type ShardStats struct {
	Entries      int
	SmallBytes   int64
	MainBytes    int64
	GhostEntries int
}

// Stats returns the shard's current accounting.
func (s *Shard) Stats() ShardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ShardStats{
		Entries:      s.small.Len() + s.main.Len(),
		SmallBytes:   s.small.Bytes(),
		MainBytes:    s.main.Bytes(),
		GhostEntries: s.ghost.Len(),
	}
}

// Export collects copies of all resident, non-expired entries.
func (s *Shard) Export(now int64) []cache.ExportedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]cache.ExportedEntry, 0, s.small.Len()+s.main.Len())
	for _, n := range s.items {
		if n.Queue == cache.QueueGhost || n.Expired(now) {
			continue
		}
		value := make([]byte, len(n.Value))
		copy(value, n.Value)
		out = append(out, cache.ExportedEntry{
			Key:       n.Key,
			Value:     value,
			Timestamp: n.Timestamp,
			Origin:    n.Origin,
			ExpireAt:  n.ExpireAt,
		})
	}
	return out
}

// Sample feeds up to max resident entry sizes into the histogram.
func (s *Shard) Sample(h *util.SizeHistogram, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.items {
		if n.Queue == cache.QueueGhost {
			continue
		}
		h.AddSample(len(n.Value))
		count++
		if count >= max {
			return
		}
	}
}

func (s *Shard) queueOf(n *Node) *FIFO {
	switch n.Queue {
	case cache.QueueSmall:
		return &s.small
	case cache.QueueMain:
		return &s.main
	default:
		return &s.ghost
	}
}

package internal

import (
	"fmt"
	"testing"

	"github.com/hivecache/hivecache/lib/cache/util"
)

// newTestShard returns a shard with room for ~10 probationary and ~10 main
// entries of 100 accounted bytes each.
func newTestShard(tombCap int) *Shard {
	return NewShard(1000, 1000, 8, tombCap)
}

func hashOf(key string) util.UintKey {
	// fixed seed keeps the tests deterministic
	return util.HashString(key, 42)
}

func TestTombstoneRingBound(t *testing.T) {
	s := newTestShard(3)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		s.Upsert(key, hashOf(key), []byte("v"), uint64(i+1), "node-a", 0, true, 0)
		s.Delete(hashOf(key), uint64(i+100), "node-a", true)
	}

	// only the 3 youngest deletion markers survive
	for i := 0; i < 2; i++ {
		if _, ok := s.Tomb(hashOf(fmt.Sprintf("key-%d", i))); ok {
			t.Errorf("Expected marker for key-%d to be dropped", i)
		}
	}
	for i := 2; i < 5; i++ {
		tomb, ok := s.Tomb(hashOf(fmt.Sprintf("key-%d", i)))
		if !ok {
			t.Errorf("Expected marker for key-%d to be kept", i)
			continue
		}
		if tomb.Timestamp != uint64(i+100) {
			t.Errorf("Expected marker timestamp %d, got %d", i+100, tomb.Timestamp)
		}
	}
}

func TestTombstoneClearedByWinningWrite(t *testing.T) {
	s := newTestShard(16)
	h := hashOf("key")

	s.Delete(h, 10, "node-a", true)
	if _, ok := s.Tomb(h); !ok {
		t.Fatalf("Expected a deletion marker")
	}

	if applied, _ := s.Upsert("key", h, []byte("v"), 20, "node-b", 0, false, 0); !applied {
		t.Fatalf("Expected newer write to beat the marker")
	}
	if _, ok := s.Tomb(h); ok {
		t.Errorf("Expected marker to be cleared by the winning write")
	}
}

// TestFrequencyCap verifies that the access counter saturates: an entry read
// many times survives at most maxFreq re-queues in Main before eviction.
func TestFrequencyCap(t *testing.T) {
	s := newTestShard(16)
	h := hashOf("hot")

	s.Upsert("hot", h, []byte("v"), 1, "node-a", 0, true, 0)
	for i := 0; i < 100; i++ {
		s.Get(h, 0)
	}

	n := s.items[h]
	if n.Freq != maxFreq {
		t.Errorf("Expected frequency to saturate at %d, got %d", maxFreq, n.Freq)
	}
}

func TestGhostCarriesNoBytes(t *testing.T) {
	s := newTestShard(16)

	// 11 inserts of 100 accounted bytes overflow the probationary queue once
	for i := 0; i < 11; i++ {
		key := fmt.Sprintf("k%02d", i)
		value := make([]byte, 33)
		s.Upsert(key, hashOf(key), value, uint64(i+1), "node-a", 0, true, 0)
	}

	st := s.Stats()
	if st.GhostEntries != 1 {
		t.Fatalf("Expected 1 ghost entry, got %d", st.GhostEntries)
	}
	if got := st.SmallBytes + st.MainBytes; got != 1000 {
		t.Errorf("Expected 1000 resident bytes, got %d", got)
	}
	if s.ghost.Bytes() != 0 {
		t.Errorf("Expected ghost queue to carry no bytes, got %d", s.ghost.Bytes())
	}
}

package testing

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hivecache/hivecache/lib/cache"
)

// Config controls the engine instance built for a single test. Zero values
// mean "use the implementation's default". Tests that reason about queue
// movement pin NumShards to 1 so every key lands in the same shard.
type Config struct {
	CapacityBytes    int64
	SmallFraction    float64
	GhostEntries     int
	TombstoneEntries int
	NumShards        int
	Now              func() int64
}

// EngineFactory is a function that creates a new engine instance for a test
type EngineFactory func(cfg Config) cache.Engine

// RunEngineTests runs the conformance test suite for an engine implementation.
func RunEngineTests(t *testing.T, name string, factory EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory)
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory)
		})

		t.Run("Expiry", func(t *testing.T) {
			testExpiry(t, factory)
		})

		t.Run("Promotion", func(t *testing.T) {
			testPromotion(t, factory)
		})

		t.Run("GhostReadmission", func(t *testing.T) {
			testGhostReadmission(t, factory)
		})

		t.Run("GhostWindowBound", func(t *testing.T) {
			testGhostWindowBound(t, factory)
		})

		t.Run("CapacityBound", func(t *testing.T) {
			testCapacityBound(t, factory)
		})

		t.Run("MergeOrdering", func(t *testing.T) {
			testMergeOrdering(t, factory)
		})

		t.Run("DeleteOrdering", func(t *testing.T) {
			testDeleteOrdering(t, factory)
		})

		t.Run("Export", func(t *testing.T) {
			testExport(t, factory)
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory)
		})

		t.Run("Features", func(t *testing.T) {
			testFeatures(t, factory)
		})

		t.Run("ConcurrentUsage", func(t *testing.T) {
			testConcurrentUsage(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// fakeClock is a manually advanced clock so expiry tests never sleep.
type fakeClock struct {
	now atomic.Int64
}

func (c *fakeClock) Now() int64       { return c.now.Load() }
func (c *fakeClock) Advance(ns int64) { c.now.Add(ns) }

// queueConfig returns a single-shard config where every entry is accounted
// with exactly 100 bytes (3-byte key + 33-byte value + fixed overhead), the
// probationary queue holds 10 entries and Main holds another 10.
func queueConfig(clk *fakeClock) Config {
	return Config{
		CapacityBytes:    2000,
		SmallFraction:    0.5,
		GhostEntries:     8,
		TombstoneEntries: 16,
		NumShards:        1,
		Now:              clk.Now,
	}
}

func qKey(i int) string {
	return fmt.Sprintf("k%02d", i)
}

var qValue = bytes.Repeat([]byte("v"), 33)

func requireFeature(t testing.TB, engine cache.Engine, feature cache.Feature) {
	if !engine.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, factory EngineFactory) {
	engine := factory(Config{})
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet|cache.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	engine.Set(testKey, testValue1, 1, "node-a", 0)

	result, exists := engine.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	engine.Set(testKey, testValue2, 2, "node-a", 0)

	result, exists = engine.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after update", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = engine.Get("nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return loaded=false")
	}

	// mutating the returned slice must not affect the stored value
	retrievedValue, _ := engine.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := engine.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	if engine.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", engine.Len())
	}
}

func testDelete(t *testing.T, factory EngineFactory) {
	engine := factory(Config{})
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet|cache.FeatureDelete)

	engine.Set("doomed", []byte("value"), 1, "node-a", 0)

	if deleted := engine.Delete("doomed", 2, "node-a"); !deleted {
		t.Errorf("Expected Delete to report a removed entry")
	}
	if _, exists := engine.Get("doomed"); exists {
		t.Errorf("Expected key to be gone after Delete")
	}
	if deleted := engine.Delete("doomed", 3, "node-a"); deleted {
		t.Errorf("Expected second Delete to report no removed entry")
	}
	if deleted := engine.Delete("never-existed", 4, "node-a"); deleted {
		t.Errorf("Expected Delete of unknown key to report no removed entry")
	}
}

func testExpiry(t *testing.T, factory EngineFactory) {
	clk := &fakeClock{}
	engine := factory(Config{NumShards: 1, Now: clk.Now})
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet|cache.FeatureGet|cache.FeatureTTL)

	engine.Set("eternal", []byte("value"), 1, "node-a", 0)
	engine.Set("transient", []byte("value"), 2, "node-a", 500)

	if _, exists := engine.Get("transient"); !exists {
		t.Errorf("Expected entry to be readable before its deadline")
	}

	clk.Advance(500)

	if _, exists := engine.Get("transient"); exists {
		t.Errorf("Expected entry to be expired at its deadline")
	}
	if _, exists := engine.Get("eternal"); !exists {
		t.Errorf("Expected entry without deadline to survive")
	}

	// expired entries are removed on access, not by a background task
	if engine.Len() != 1 {
		t.Errorf("Expected 1 entry after lazy removal, got %d", engine.Len())
	}
}

// testPromotion verifies that an accessed probationary entry moves to Main
// when the probationary queue overflows, while untouched entries fall into
// the ghost window.
func testPromotion(t *testing.T, factory EngineFactory) {
	clk := &fakeClock{}
	engine := factory(queueConfig(clk))
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet|cache.FeatureGet)

	ts := uint64(0)
	for i := 1; i <= 10; i++ {
		ts++
		engine.Set(qKey(i), qValue, ts, "node-a", 0)
	}
	if q := engine.QueueOf(qKey(1)); q != cache.QueueSmall {
		t.Errorf("Expected new entry in Small, got %s", q)
	}

	// mark k01 as accessed, then overflow the probationary queue
	engine.Get(qKey(1))

	ts++
	engine.Set(qKey(11), qValue, ts, "node-a", 0)
	if q := engine.QueueOf(qKey(1)); q != cache.QueueMain {
		t.Errorf("Expected accessed entry to be promoted to Main, got %s", q)
	}

	// k02 was never accessed: the next overflow demotes it to the ghost window
	ts++
	evicted := engine.Set(qKey(12), qValue, ts, "node-a", 0)
	if q := engine.QueueOf(qKey(2)); q != cache.QueueGhost {
		t.Errorf("Expected untouched entry in Ghost, got %s", q)
	}
	if len(evicted) != 1 || evicted[0] != qKey(2) {
		t.Errorf("Expected evicted=[%s], got %v", qKey(2), evicted)
	}
	if _, exists := engine.Get(qKey(2)); exists {
		t.Errorf("Expected ghost entry to read as a miss")
	}
}

// testGhostReadmission verifies that re-inserting a key still present in the
// ghost window skips probation and lands in Main directly.
func testGhostReadmission(t *testing.T, factory EngineFactory) {
	clk := &fakeClock{}
	engine := factory(queueConfig(clk))
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet|cache.FeatureGet)

	ts := uint64(0)
	for i := 1; i <= 11; i++ {
		ts++
		engine.Set(qKey(i), qValue, ts, "node-a", 0)
	}
	// k01 had no access: the overflow above pushed it into the ghost window
	if q := engine.QueueOf(qKey(1)); q != cache.QueueGhost {
		t.Fatalf("Expected %s in Ghost, got %s", qKey(1), q)
	}

	ts++
	engine.Set(qKey(1), qValue, ts, "node-a", 0)
	if q := engine.QueueOf(qKey(1)); q != cache.QueueMain {
		t.Errorf("Expected readmitted entry in Main, got %s", q)
	}
	if _, exists := engine.Get(qKey(1)); !exists {
		t.Errorf("Expected readmitted entry to be readable")
	}
}

// testGhostWindowBound verifies that the ghost window forgets its oldest keys
// once the configured bound is reached.
func testGhostWindowBound(t *testing.T, factory EngineFactory) {
	clk := &fakeClock{}
	cfg := queueConfig(clk)
	cfg.GhostEntries = 2
	engine := factory(cfg)
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet)

	ts := uint64(0)
	for i := 1; i <= 15; i++ {
		ts++
		engine.Set(qKey(i), qValue, ts, "node-a", 0)
	}

	// k01..k05 were demoted in order; only the 2 youngest ghosts survive
	if q := engine.QueueOf(qKey(1)); q != cache.QueueNone {
		t.Errorf("Expected oldest ghost to be forgotten, got %s", q)
	}
	if q := engine.QueueOf(qKey(4)); q != cache.QueueGhost {
		t.Errorf("Expected %s in Ghost, got %s", qKey(4), q)
	}
	if q := engine.QueueOf(qKey(5)); q != cache.QueueGhost {
		t.Errorf("Expected %s in Ghost, got %s", qKey(5), q)
	}
	if got := engine.GetInfo().GhostEntries; got != 2 {
		t.Errorf("Expected 2 ghost entries, got %d", got)
	}
}

func testCapacityBound(t *testing.T, factory EngineFactory) {
	clk := &fakeClock{}
	cfg := queueConfig(clk)
	engine := factory(cfg)
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet|cache.FeatureGet)

	ts := uint64(0)
	for i := 1; i <= 50; i++ {
		ts++
		engine.Set(qKey(i), qValue, ts, "node-a", 0)
		// promote every third entry so Main fills up too
		if i%3 == 0 {
			engine.Get(qKey(i))
		}

		if size := engine.SizeBytes(); size > cfg.CapacityBytes {
			t.Fatalf("Resident size %d exceeds capacity %d after %d inserts", size, cfg.CapacityBytes, i)
		}
	}

	if engine.Len() > 20 {
		t.Errorf("Expected at most 20 resident entries, got %d", engine.Len())
	}
}

func testMergeOrdering(t *testing.T, factory EngineFactory) {
	engine := factory(Config{})
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureMerge)

	v1 := []byte("from-a")
	v2 := []byte("from-b")

	if applied, _ := engine.Merge("k", v1, 10, "node-a", 0); !applied {
		t.Errorf("Expected merge into empty engine to apply")
	}

	// older write loses
	if applied, _ := engine.Merge("k", v2, 5, "node-b", 0); applied {
		t.Errorf("Expected older merge to be rejected")
	}
	if result, _ := engine.Get("k"); !bytes.Equal(result, v1) {
		t.Errorf("Expected value %s, got %s", v1, result)
	}

	// equal timestamp: the higher origin id wins
	if applied, _ := engine.Merge("k", v2, 10, "node-b", 0); !applied {
		t.Errorf("Expected tie to be won by the higher origin id")
	}
	if applied, _ := engine.Merge("k", v1, 10, "node-a", 0); applied {
		t.Errorf("Expected tie to be lost by the lower origin id")
	}
	if result, _ := engine.Get("k"); !bytes.Equal(result, v2) {
		t.Errorf("Expected value %s, got %s", v2, result)
	}

	// local writes are authoritative and bypass the resolver
	v3 := []byte("local")
	engine.Set("k", v3, 1, "node-a", 0)
	if result, _ := engine.Get("k"); !bytes.Equal(result, v3) {
		t.Errorf("Expected local write to apply unconditionally")
	}
}

func testDeleteOrdering(t *testing.T, factory EngineFactory) {
	engine := factory(Config{})
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureMerge|cache.FeatureDelete)

	engine.Set("k", []byte("v1"), 10, "node-a", 0)

	if applied := engine.MergeDelete("k", 5, "node-b"); applied {
		t.Errorf("Expected older delete to be rejected")
	}
	if _, exists := engine.Get("k"); !exists {
		t.Errorf("Expected entry to survive a rejected delete")
	}

	if applied := engine.MergeDelete("k", 20, "node-b"); !applied {
		t.Errorf("Expected newer delete to apply")
	}
	if _, exists := engine.Get("k"); exists {
		t.Errorf("Expected entry to be gone after delete")
	}

	// an update older than the remembered delete must not resurrect the key
	if applied, _ := engine.Merge("k", []byte("v2"), 15, "node-a", 0); applied {
		t.Errorf("Expected update older than the delete to be rejected")
	}
	if _, exists := engine.Get("k"); exists {
		t.Errorf("Expected key to stay deleted")
	}

	// an update newer than the delete wins again
	if applied, _ := engine.Merge("k", []byte("v3"), 25, "node-a", 0); !applied {
		t.Errorf("Expected update newer than the delete to apply")
	}
	if result, _ := engine.Get("k"); !bytes.Equal(result, []byte("v3")) {
		t.Errorf("Expected value v3, got %s", result)
	}
}

func testExport(t *testing.T, factory EngineFactory) {
	clk := &fakeClock{}
	engine := factory(Config{NumShards: 1, Now: clk.Now})
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet|cache.FeatureExport)

	engine.Set("a", []byte("va"), 1, "node-a", 0)
	engine.Set("b", []byte("vb"), 2, "node-a", 100)
	engine.Set("c", []byte("vc"), 3, "node-b", 0)

	clk.Advance(100)

	seen := map[string]cache.ExportedEntry{}
	engine.Export(func(e cache.ExportedEntry) bool {
		seen[e.Key] = e
		return true
	})

	if len(seen) != 2 {
		t.Fatalf("Expected 2 exported entries, got %d", len(seen))
	}
	if _, ok := seen["b"]; ok {
		t.Errorf("Expected expired entry to be skipped")
	}

	entry := seen["c"]
	if !bytes.Equal(entry.Value, []byte("vc")) || entry.Timestamp != 3 || entry.Origin != "node-b" {
		t.Errorf("Unexpected exported entry: %+v", entry)
	}

	// the callback can stop the export early
	visited := 0
	engine.Export(func(e cache.ExportedEntry) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("Expected export to stop after 1 entry, got %d", visited)
	}
}

func testInfo(t *testing.T, factory EngineFactory) {
	engine := factory(Config{})
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet)

	for i := 0; i < 100; i++ {
		engine.Set(fmt.Sprintf("key-%d", i), []byte("value"), uint64(i+1), "node-a", 0)
	}

	info := engine.GetInfo()
	if info.Entries != engine.Len() {
		t.Errorf("Expected info.Entries %d to match Len %d", info.Entries, engine.Len())
	}
	if info.SizeBytes != engine.SizeBytes() {
		t.Errorf("Expected info.SizeBytes %d to match SizeBytes %d", info.SizeBytes, engine.SizeBytes())
	}
	if info.ShardCount < 1 {
		t.Errorf("Expected at least 1 shard, got %d", info.ShardCount)
	}
	if info.EngineType == "" {
		t.Errorf("Expected a non-empty engine type")
	}
}

func testFeatures(t *testing.T, factory EngineFactory) {
	engine := factory(Config{})
	defer engine.Close()

	required := []cache.Feature{
		cache.FeatureGet,
		cache.FeatureSet,
		cache.FeatureDelete,
		cache.FeatureTTL,
		cache.FeatureMerge,
		cache.FeatureExport,
	}
	for _, feature := range required {
		if !engine.SupportsFeature(feature) {
			t.Errorf("Expected feature %s to be supported", feature)
		}
	}
	if !engine.SupportsFeature(cache.FeatureGet | cache.FeatureSet) {
		t.Errorf("Expected combined feature check to be supported")
	}
}

func testConcurrentUsage(t *testing.T, factory EngineFactory) {
	engine := factory(Config{})
	defer engine.Close()

	requireFeature(t, engine, cache.FeatureSet|cache.FeatureGet|cache.FeatureDelete|cache.FeatureMerge)

	const (
		workers = 8
		ops     = 1000
		keys    = 100
	)

	var ts atomic.Uint64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			origin := fmt.Sprintf("node-%d", worker)
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("key-%d", i%keys)
				switch i % 4 {
				case 0:
					engine.Set(key, []byte(origin), ts.Add(1), origin, 0)
				case 1:
					engine.Get(key)
				case 2:
					engine.Merge(key, []byte(origin), ts.Add(1), origin, 0)
				default:
					engine.Delete(key, ts.Add(1), origin)
				}
			}
		}(w)
	}
	wg.Wait()

	info := engine.GetInfo()
	if info.Entries < 0 || info.Entries > keys {
		t.Errorf("Expected between 0 and %d entries, got %d", keys, info.Entries)
	}
}

package s3fifo

import (
	"runtime"
	"time"

	"github.com/hivecache/hivecache/lib/cache"
	"github.com/hivecache/hivecache/lib/cache/engine/s3fifo/internal"
	"github.com/hivecache/hivecache/lib/cache/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Defaults for engine behavior and structure
const (
	defaultCapacityBytes = 64 << 20 // 64 MB
	defaultSmallFraction = 0.1      // probation share of total capacity
	defaultGhostEntries  = 4096
	defaultTombstones    = 4096
)

// --------------------------------------------------------------------------
// Core engine structure
// --------------------------------------------------------------------------

// engineImpl implements cache.Engine with hash-sharded S3-FIFO shards
type engineImpl struct {
	numShards int
	seed      uint64
	shards    []*internal.Shard
	now       func() int64
	capacity  int64
}

// Options configures the engine behavior during initialization
type Options struct {
	CapacityBytes    int64           // Total resident capacity in bytes (0 = default 64 MB)
	SmallFraction    float64         // Fraction of capacity for the probationary queue (0 = default 0.1)
	GhostEntries     int             // Total ghost window length in entries (0 = default)
	TombstoneEntries int             // Total deletion markers kept (0 = default)
	NumShards        int             // Number of shards (0 = number of CPUs)
	Now              func() int64    // Clock for TTL evaluation (nil = wall clock)
}

// DefaultOptions returns the default engine options
func DefaultOptions() *Options {
	return &Options{
		CapacityBytes:    defaultCapacityBytes,
		SmallFraction:    defaultSmallFraction,
		GhostEntries:     defaultGhostEntries,
		TombstoneEntries: defaultTombstones,
		NumShards:        runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// New creates a new S3-FIFO engine with the specified options (optional).
// Capacity, ghost window and tombstone bounds are split evenly across shards.
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization.
func New(opts *Options) cache.Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.CapacityBytes <= 0 {
		opts.CapacityBytes = defaultCapacityBytes
	}
	if opts.SmallFraction <= 0 || opts.SmallFraction >= 1 {
		opts.SmallFraction = defaultSmallFraction
	}
	if opts.GhostEntries <= 0 {
		opts.GhostEntries = defaultGhostEntries
	}
	if opts.TombstoneEntries <= 0 {
		opts.TombstoneEntries = defaultTombstones
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixNano() }
	}

	shardCap := opts.CapacityBytes / int64(opts.NumShards)
	smallCap := int64(float64(shardCap) * opts.SmallFraction)
	mainCap := shardCap - smallCap
	ghostCap := max(1, opts.GhostEntries/opts.NumShards)
	tombCap := max(1, opts.TombstoneEntries/opts.NumShards)

	shards := make([]*internal.Shard, opts.NumShards)
	for i := range shards {
		shards[i] = internal.NewShard(smallCap, mainCap, ghostCap, tombCap)
	}

	return &engineImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
		shards:    shards,
		now:       now,
		capacity:  opts.CapacityBytes,
	}
}

// hash converts a string key to its seeded internal representation.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *engineImpl) hash(key string) util.UintKey {
	return util.HashString(key, e.seed)
}

// --------------------------------------------------------------------------
// Core Engine Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a value for a key and bumps its access frequency.
// The returned value is a copy of the stored data and safe to modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *engineImpl) Get(key string) ([]byte, bool) {
	h := e.hash(key)
	return internal.GetShard(h, e.shards).Get(h, e.now())
}

// QueueOf reports which queue the key currently belongs to.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *engineImpl) QueueOf(key string) cache.Queue {
	h := e.hash(key)
	return internal.GetShard(h, e.shards).QueueOf(h)
}

// --------------------------------------------------------------------------
// Core Engine Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry unconditionally (the local node is
// authoritative for its own writes) and returns any evicted keys.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *engineImpl) Set(key string, value []byte, ts uint64, origin string, expireAt uint64) []string {
	h := e.hash(key)
	_, evicted := internal.GetShard(h, e.shards).Upsert(key, h, value, ts, origin, expireAt, true, e.now())
	return evicted
}

// Merge applies a replicated update if it wins against the stored version.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *engineImpl) Merge(key string, value []byte, ts uint64, origin string, expireAt uint64) (bool, []string) {
	h := e.hash(key)
	return internal.GetShard(h, e.shards).Upsert(key, h, value, ts, origin, expireAt, false, e.now())
}

// Delete removes an entry unconditionally and records a deletion marker.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *engineImpl) Delete(key string, ts uint64, origin string) bool {
	h := e.hash(key)
	_, removed := internal.GetShard(h, e.shards).Delete(h, ts, origin, true)
	return removed
}

// MergeDelete applies a replicated delete if it wins against the stored
// version of the key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *engineImpl) MergeDelete(key string, ts uint64, origin string) bool {
	h := e.hash(key)
	won, _ := internal.GetShard(h, e.shards).Delete(h, ts, origin, false)
	return won
}

// --------------------------------------------------------------------------
// Snapshot / Introspection
// --------------------------------------------------------------------------

// Export calls fn for every resident entry until fn returns false.
// Entries are copied shard by shard; writes concurrent with an export may or
// may not be included.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *engineImpl) Export(fn func(entry cache.ExportedEntry) bool) {
	now := e.now()
	for _, shard := range e.shards {
		for _, entry := range shard.Export(now) {
			if !fn(entry) {
				return
			}
		}
	}
}

// Len returns the number of resident entries.
func (e *engineImpl) Len() int {
	total := 0
	for _, shard := range e.shards {
		total += shard.Stats().Entries
	}
	return total
}

// SizeBytes returns the resident bytes of the Small and Main queues.
func (e *engineImpl) SizeBytes() int64 {
	var total int64
	for _, shard := range e.shards {
		st := shard.Stats()
		total += st.SmallBytes + st.MainBytes
	}
	return total
}

// GetInfo returns statistics about the engine
func (e *engineImpl) GetInfo() cache.EngineInfo {
	const samplesPerShard = 100

	histogram := util.NewSizeHistogram()
	shardSizes := make([]float64, len(e.shards))

	info := cache.EngineInfo{
		CapacityBytes: e.capacity,
		ShardCount:    e.numShards,
		EngineType:    cache.ImplS3FIFO,
	}

	for i, shard := range e.shards {
		st := shard.Stats()
		info.Entries += st.Entries
		info.SmallBytes += st.SmallBytes
		info.MainBytes += st.MainBytes
		info.GhostEntries += st.GhostEntries
		shardSizes[i] = float64(st.Entries)

		shard.Sample(histogram, samplesPerShard)
	}

	info.SizeBytes = info.SmallBytes + info.MainBytes
	info.ShardDistribution = util.NewDistributionStats(shardSizes)
	info.AvgEntrySize = histogram.AverageSize() + internal.EntryOverhead
	info.MedianEntrySize = histogram.MedianEstimate() + internal.EntryOverhead

	return info
}

// SupportsFeature checks if this implementation supports a specific feature
func (e *engineImpl) SupportsFeature(feature cache.Feature) bool {
	supported := cache.FeatureGet |
		cache.FeatureSet |
		cache.FeatureDelete |
		cache.FeatureTTL |
		cache.FeatureMerge |
		cache.FeatureExport
	return supported&feature == feature
}

// Close releases engine resources. The engine has no background tasks, so
// this is currently a no-op kept for interface symmetry.
func (e *engineImpl) Close() error {
	return nil
}

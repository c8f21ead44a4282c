package cache

import "github.com/hivecache/hivecache/lib/cache/util"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplS3FIFO Implementation = "s3fifo"
)

// Queue identifies which logical queue an entry currently belongs to.
// Every resident entry is in exactly one queue; QueueNone means the key is
// not known to the engine at all.
type Queue uint8

const (
	QueueNone Queue = iota
	QueueSmall
	QueueMain
	QueueGhost
)

func (q Queue) String() string {
	switch q {
	case QueueSmall:
		return "Small"
	case QueueMain:
		return "Main"
	case QueueGhost:
		return "Ghost"
	default:
		return "None"
	}
}

// Feature represents engine capabilities as bit flags
type Feature uint64

const (
	FeatureGet    Feature = 1 << iota // Support for Get operations
	FeatureSet                        // Support for Set operations
	FeatureDelete                     // Support for Delete operations
	FeatureTTL                        // Support for per-entry expiry
	FeatureMerge                      // Support for resolver-gated remote writes
	FeatureExport                     // Support for snapshot export
)

func (f Feature) String() string {
	switch f {
	case FeatureGet:
		return "Get"
	case FeatureSet:
		return "Set"
	case FeatureDelete:
		return "Delete"
	case FeatureTTL:
		return "TTL"
	case FeatureMerge:
		return "Merge"
	case FeatureExport:
		return "Export"
	default:
		return "Unknown"
	}
}

// ExportedEntry is one entry of a snapshot export. The value slice is a copy
// and safe to retain.
type ExportedEntry struct {
	Key       string
	Value     []byte
	Timestamp uint64
	Origin    string
	ExpireAt  uint64
}

// EngineInfo describes the current state of an engine. All values are
// estimates taken without stopping concurrent operations.
type EngineInfo struct {
	Entries           int                    `json:"entries"`
	SizeBytes         int64                  `json:"size_bytes"`
	CapacityBytes     int64                  `json:"capacity_bytes"`
	SmallBytes        int64                  `json:"small_bytes"`
	MainBytes         int64                  `json:"main_bytes"`
	GhostEntries      int                    `json:"ghost_entries"`
	ShardCount        int                    `json:"shard_count"`
	ShardDistribution util.DistributionStats `json:"shard_distribution"`
	AvgEntrySize      int                    `json:"avg_entry_size"`
	MedianEntrySize   int                    `json:"median_entry_size"`
	EngineType        Implementation         `json:"engine_type"`
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Engine is the interface of the local entry store with its eviction policy.
// All methods are safe for concurrent use. Timestamps are logical wall-clock
// values (unix nanoseconds issued by the node's clock); origin identifies the
// node that produced a write and is only used for conflict tie-breaking.
type Engine interface {

	// --------------------------------------------------------------------------
	// Read Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for a key and bumps its access frequency.
	// Expired entries are treated as absent and removed lazily.
	// The returned value is a copy and safe to modify.
	Get(key string) (value []byte, loaded bool)

	// QueueOf reports which queue the key currently belongs to.
	QueueOf(key string) Queue

	// --------------------------------------------------------------------------
	// Local Write Operations (the local node is authoritative, always applied)
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry. expireAt is an absolute unix-nano
	// deadline, 0 means no expiry. It returns the keys evicted to keep the
	// engine within capacity.
	Set(key string, value []byte, ts uint64, origin string, expireAt uint64) (evicted []string)

	// Delete removes an entry. It returns whether a resident entry was
	// removed. The deletion timestamp is remembered so stale replicated
	// updates cannot resurrect the key.
	Delete(key string, ts uint64, origin string) (deleted bool)

	// --------------------------------------------------------------------------
	// Replicated Write Operations (gated by the conflict resolver)
	// --------------------------------------------------------------------------

	// Merge applies a replicated update if the resolver decides it wins
	// against the stored version (or stored deletion) of the key.
	Merge(key string, value []byte, ts uint64, origin string, expireAt uint64) (applied bool, evicted []string)

	// MergeDelete applies a replicated delete if it wins against the stored
	// version of the key.
	MergeDelete(key string, ts uint64, origin string) (applied bool)

	// --------------------------------------------------------------------------
	// Snapshot / Introspection
	// --------------------------------------------------------------------------

	// Export calls fn for every resident (non-ghost, non-expired) entry until
	// fn returns false. Used to serve bootstrap snapshots.
	Export(fn func(e ExportedEntry) bool)

	// Len returns the number of resident entries.
	Len() int

	// SizeBytes returns the resident bytes of the Small and Main queues.
	SizeBytes() int64

	// GetInfo returns information about the engine.
	GetInfo() (info EngineInfo)

	// SupportsFeature checks whether the engine supports the given feature(s).
	// Multiple features can be checked at once using bitwise OR.
	SupportsFeature(feature Feature) (ok bool)

	// Close releases engine resources.
	Close() (err error)
}

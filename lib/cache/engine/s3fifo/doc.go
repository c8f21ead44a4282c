// Package s3fifo implements the cache.Engine interface with an S3-FIFO
// eviction policy. The design favors scan resistance and one-hit-wonder
// filtering over recency ordering: instead of a single LRU list, every entry
// moves through up to three FIFO queues.
//
// Queues:
//
//   - Small: the probationary queue. New keys always enter here. When Small
//     overflows its fraction of the capacity, the oldest entry is inspected:
//     if it was accessed at least once it is promoted to Main, otherwise its
//     value is dropped and only the key is remembered in Ghost. A single scan
//     over many keys therefore churns Small without touching Main.
//
//   - Main: the protected queue holding entries that proved their worth. On
//     overflow the oldest entry is reinspected: accessed entries get their
//     frequency decremented and move to the tail, unaccessed entries are
//     evicted for good.
//
//   - Ghost: a bounded window of recently evicted keys without values. A
//     re-insert of a ghost key is interpreted as "evicted too early" and goes
//     straight to Main, skipping probation.
//
// Access frequency is a small saturating counter (capped at 3), bumped on
// reads and updates, so one burst of hits cannot pin an entry forever.
//
// The key space is partitioned across independent shards, each with its own
// mutex, queues, tombstone ring and share of the capacity. Entry expiry is
// lazy: an expired entry is treated as absent and removed when a read or an
// eviction scan encounters it, there is no background sweeper.
//
// Replicated writes are merged through the conflict resolver of the cache
// package; deletes leave a bounded trail of tombstones so a stale update
// cannot resurrect a deleted key.
package s3fifo

// Package util provides the internal building blocks shared by the cache
// engine and the cluster layer: seeded key hashing, a lock-free MPSC queue
// (used as the per-peer replication outbox), a deadline heap (used to reap
// dead peer records) and a size histogram for engine statistics.
package util

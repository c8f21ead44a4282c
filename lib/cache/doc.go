// Package cache defines the engine interface of hivecache together with the
// shared entry semantics: queue membership, feature flags, typed errors and
// the last-write-wins conflict resolver used by both the engine and the
// replication receiver.
//
// The engine itself lives in subpackages (see engine/s3fifo); any
// implementation of the Engine interface must keep entries in exactly one of
// the Small, Main or Ghost queues and must never let resident bytes exceed the
// configured capacity after an operation returns.
package cache

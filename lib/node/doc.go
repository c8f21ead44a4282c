// Package node assembles the cache engine, the replication machinery and
// the membership tracking into one runnable cluster member.
//
// A node's public surface is deliberately small: Get, Put, PutTTL and
// Delete, plus introspection. Everything else (timestamp issuance, conflict
// resolution, fan-out, heartbeats, failure detection, bootstrap) happens
// behind it.
//
// Consistency model: eventual, last-write-wins. A write returns once the
// local engine applied it; replication to peers is fire-and-forget. Two
// nodes may briefly disagree about a key, but once the same set of messages
// reached both, they hold the same winner. During a partition every node
// keeps serving its local copy (availability over consistency); after the
// partition heals, heartbeats revive the peer records and new writes flow
// again. Writes made during the partition are not replayed; a joiner can
// close the gap with a bootstrap snapshot.
package node

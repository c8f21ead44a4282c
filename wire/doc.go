// Package wire defines the replication protocol spoken between cache nodes.
//
// All communication is one-way: a node sends a message to a peer and never
// waits for a response. There are no request/response pairs, no
// acknowledgements and no retransmissions; a lost message is repaired by a
// later write or by the next anti-entropy bootstrap, not by the transport.
//
// The package focuses on:
//   - A single Message structure shared by all message kinds
//   - Factory functions for each kind so callers cannot forget a field
//   - Pluggable serialization (see the serializer subpackage)
//   - Pluggable delivery (see the transport subpackage)
//
// Message kinds:
//
//   - Update: a key was written; carries value, timestamp, origin and the
//     absolute expiry deadline
//   - Delete: a key was deleted; carries timestamp and origin
//   - Heartbeat: periodic liveness signal with the sender's listen address
//   - Join: a node announces itself to the cluster; the Bootstrap flag asks
//     the receiver to push its current entries back
//   - Snapshot: one entry of a bootstrap push, applied like an Update
package wire

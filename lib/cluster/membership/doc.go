// Package membership tracks which peers a node knows and how alive they are.
//
// Every peer is a PeerRecord with a status derived purely from message
// arrival times:
//
//   - Alive: a message arrived within the suspect timeout
//   - Suspect: silent for longer than the suspect timeout; the peer still
//     receives replication traffic, the status is advisory
//   - Dead: silent for longer than the dead timeout; replication to the peer
//     stops until it speaks again
//
// Any message from a peer (heartbeat or otherwise) revives it to Alive.
// There is no gossip and no voting: each node judges its peers alone, so two
// nodes may disagree about a third during asymmetric partitions. That is
// acceptable because membership only gates best-effort replication fan-out.
//
// Peers that stay Dead beyond a retention window are forgotten entirely so a
// long-running cluster does not accumulate records of decommissioned nodes.
//
// The Registry holds the records; the Monitor owns the periodic sweep that
// ages them.
package membership

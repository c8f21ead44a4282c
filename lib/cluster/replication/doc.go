// Package replication moves writes between cache nodes, best effort.
//
// The Broadcaster fans a message out to every peer the membership registry
// currently considers Alive. Each peer has its own outbox queue and sender
// goroutine, so one slow or dead peer never blocks a write or the fan-out to
// the other peers. Messages to peers that cannot be reached are dropped;
// there are no acknowledgements and no retries. The cache converges anyway
// because every entry carries its own timestamp and origin: whichever copy
// of a key a node ends up with, the conflict resolver picks the same winner
// everywhere.
//
// The Receiver is the inbound half: it deserializes messages from the
// transport, feeds entry messages through the engine's merge operations,
// refreshes the membership registry (any message proves its sender alive)
// and answers first-contact Joins with a reciprocal Join so both sides learn
// of each other. A Join with the bootstrap flag additionally triggers a
// one-way snapshot push of all resident entries to the joining node.
package replication

// Package transport defines the delivery layer of the replication protocol.
//
// A transport moves opaque byte slices from one node to another, one way.
// Serialization is handled a layer above (see wire/serializer); cluster logic
// two layers above (see lib/cluster). This keeps the contract minimal: a
// sender has Send and Close, a listener has a handler callback.
//
// Because replication is fire-and-forget, transports do not guarantee
// delivery. A send that fails locally returns an error so the caller can
// count it, but no transport retransmits or acknowledges.
//
// Implementations:
//
//   - tcp: persistent length-framed TCP connections, the production
//     transport
//   - inmem: an in-process network for tests, with controllable partitions
package transport

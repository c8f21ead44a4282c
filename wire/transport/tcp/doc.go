// Package tcp implements the transport interface over persistent TCP
// connections. Each message is framed with a 4 byte big endian length prefix.
//
// A sender holds one connection to its peer and dials lazily: the first Send
// (and the first Send after a connection failure) establishes the connection.
// This lets a node start sending to peers that are not up yet without a
// retry loop; failed sends are simply dropped, which is exactly the
// fire-and-forget contract of the protocol.
//
// The listener accepts any number of inbound connections and reads frames
// until the peer disconnects. Frames above the configured maximum size are
// treated as a protocol violation and terminate the connection.
package tcp

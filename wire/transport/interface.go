package transport

// --------------------------------------------------------------------------
// Listener Side
// --------------------------------------------------------------------------

// HandleFunc is a function type that handles incoming messages.
// It is called by a listener transport for every received datagram. The data
// slice is only valid for the duration of the call; implementations that need
// to retain it must copy. There is no return value because the protocol never
// answers a message on the same connection.
type HandleFunc func(data []byte)

// IListener is the receiving side of a transport
type IListener interface {
	// Addr returns the address the listener is bound to. Useful when the
	// configured address contains port 0.
	Addr() string
	// Close stops accepting messages and releases all resources
	Close() error
}

// --------------------------------------------------------------------------
// Sender Side
// --------------------------------------------------------------------------

// ISender is a one-way connection to a single peer. Send never waits for an
// acknowledgement; delivery is best effort and an error only indicates a
// local or connection level failure.
type ISender interface {
	// Send transmits one datagram to the peer
	Send(data []byte) error
	// Close closes the connection to the peer
	Close() error
}

// --------------------------------------------------------------------------
// Transport Factory
// --------------------------------------------------------------------------

// ITransport creates listeners and senders for one transport medium
// (tcp, in-memory, ...)
type ITransport interface {
	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string
	// Listen binds to addr and calls handler for every received message
	Listen(addr string, handler HandleFunc) (IListener, error)
	// Dial creates a sender connected to the peer at addr
	Dial(addr string) (ISender, error)
}

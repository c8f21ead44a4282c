package inmem

import (
	"fmt"
	"sync"

	"github.com/hivecache/hivecache/wire/transport"
)

// --------------------------------------------------------------------------
// Network
// --------------------------------------------------------------------------

// Network is an in-process message fabric for tests. Every node gets its own
// transport bound to a local address via Transport; messages between
// transports are delivered synchronously in the caller's goroutine.
//
// Partition cuts a node off in both directions, modelling a network
// partition: messages from and to a partitioned address are dropped
// silently, exactly like a fire-and-forget send into a dead link.
//
// Thread-safety: all methods are safe for concurrent use.
type Network struct {
	mu          sync.RWMutex
	listeners   map[string]transport.HandleFunc
	partitioned map[string]bool
}

// NewNetwork creates a new empty in-process network
func NewNetwork() *Network {
	return &Network{
		listeners:   make(map[string]transport.HandleFunc),
		partitioned: make(map[string]bool),
	}
}

// Transport returns a transport bound to the given local address. The local
// address determines which partitions affect outbound messages.
func (n *Network) Transport(localAddr string) transport.ITransport {
	return &inmemTransport{net: n, local: localAddr}
}

// Partition cuts the given address off from the network
func (n *Network) Partition(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partitioned[addr] = true
}

// Heal reconnects the given address
func (n *Network) Heal(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.partitioned, addr)
}

// deliver hands a message to the listener at to, applying partitions
func (n *Network) deliver(from, to string, data []byte) {
	n.mu.RLock()
	handler, ok := n.listeners[to]
	dropped := n.partitioned[from] || n.partitioned[to]
	n.mu.RUnlock()

	if !ok || dropped {
		return // lost on the wire
	}
	handler(data)
}

// --------------------------------------------------------------------------
// Transport Implementation
// --------------------------------------------------------------------------

type inmemTransport struct {
	net   *Network
	local string
}

func (t *inmemTransport) GetName() string {
	return "inmem"
}

func (t *inmemTransport) Listen(addr string, handler transport.HandleFunc) (transport.IListener, error) {
	t.net.mu.Lock()
	defer t.net.mu.Unlock()

	if _, exists := t.net.listeners[addr]; exists {
		return nil, fmt.Errorf("address %s already in use", addr)
	}
	t.net.listeners[addr] = handler

	return &inmemListener{net: t.net, addr: addr}, nil
}

func (t *inmemTransport) Dial(addr string) (transport.ISender, error) {
	return &inmemSender{net: t.net, from: t.local, to: addr}, nil
}

// --------------------------------------------------------------------------
// Listener / Sender Implementations
// --------------------------------------------------------------------------

type inmemListener struct {
	net  *Network
	addr string
}

func (l *inmemListener) Addr() string {
	return l.addr
}

func (l *inmemListener) Close() error {
	l.net.mu.Lock()
	defer l.net.mu.Unlock()
	delete(l.net.listeners, l.addr)
	return nil
}

type inmemSender struct {
	net  *Network
	from string
	to   string
}

func (s *inmemSender) Send(data []byte) error {
	// copy so the receiver never sees later mutations of the caller's buffer
	msg := make([]byte, len(data))
	copy(msg, data)
	s.net.deliver(s.from, s.to, msg)
	return nil
}

func (s *inmemSender) Close() error {
	return nil
}

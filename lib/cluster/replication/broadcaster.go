package replication

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hivecache/hivecache/lib/cache/util"
	"github.com/hivecache/hivecache/lib/cluster/membership"
	"github.com/hivecache/hivecache/lib/logger"
	"github.com/hivecache/hivecache/wire"
	"github.com/hivecache/hivecache/wire/serializer"
	"github.com/hivecache/hivecache/wire/transport"
)

var log = logger.GetLogger("cluster/replication")

// --------------------------------------------------------------------------
// Broadcaster
// --------------------------------------------------------------------------

// Broadcaster fans replication messages out to the peers currently
// considered Alive. Every peer address has a dedicated outbox and sender
// goroutine; enqueueing never blocks, so a stalled peer cannot slow down
// local writes or the other peers. Delivery is fire-and-forget.
//
// Thread-safety: all methods are safe for concurrent use.
type Broadcaster struct {
	localID    string
	localAddr  string
	transport  transport.ITransport
	serializer serializer.ISerializer
	registry   *membership.Registry

	senders *xsync.MapOf[string, *peerSender]
	closed  atomic.Bool

	sent    atomic.Uint64 // messages handed to a sender goroutine
	dropped atomic.Uint64 // messages lost on a failed send
}

// NewBroadcaster creates a broadcaster for the given local identity
func NewBroadcaster(localID, localAddr string, tr transport.ITransport, s serializer.ISerializer, registry *membership.Registry) *Broadcaster {
	return &Broadcaster{
		localID:    localID,
		localAddr:  localAddr,
		transport:  tr,
		serializer: s,
		registry:   registry,
		senders:    xsync.NewMapOf[string, *peerSender](),
	}
}

// Broadcast serializes the message once and enqueues it to every Alive peer
func (b *Broadcaster) Broadcast(msg *wire.Message) {
	if b.closed.Load() {
		return
	}

	data, err := b.serializer.Serialize(*msg)
	if err != nil {
		log.Errorf("failed to serialize %s message: %v", msg.Kind, err)
		return
	}

	for _, peer := range b.registry.AlivePeers() {
		if peer.ID == b.localID || peer.Addr == "" {
			continue
		}
		b.enqueue(peer.Addr, data)
	}
}

// SendTo serializes the message and enqueues it to a single peer address.
// Used for reciprocal joins and bootstrap snapshot pushes, where the target
// is fixed and possibly not yet in the registry.
func (b *Broadcaster) SendTo(addr string, msg *wire.Message) {
	if b.closed.Load() || addr == "" || addr == b.localAddr {
		return
	}

	data, err := b.serializer.Serialize(*msg)
	if err != nil {
		log.Errorf("failed to serialize %s message: %v", msg.Kind, err)
		return
	}
	b.enqueue(addr, data)
}

// Prune shuts down the sender for a peer address. Called when a peer is
// declared dead or forgotten; a later Broadcast recreates the sender if the
// peer comes back.
func (b *Broadcaster) Prune(addr string) {
	if sender, ok := b.senders.LoadAndDelete(addr); ok {
		sender.shutdown()
	}
}

// Stats returns the number of messages enqueued and dropped so far
func (b *Broadcaster) Stats() (sent, dropped uint64) {
	return b.sent.Load(), b.dropped.Load()
}

// Close shuts down all sender goroutines and waits for them to drain
func (b *Broadcaster) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.senders.Range(func(addr string, sender *peerSender) bool {
		b.senders.Delete(addr)
		sender.shutdown()
		return true
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (b *Broadcaster) enqueue(addr string, data []byte) {
	sender, _ := b.senders.LoadOrCompute(addr, func() *peerSender {
		return b.newPeerSender(addr)
	})

	if sender.outbox.Push(&data) {
		b.sent.Add(1)
	} else {
		b.dropped.Add(1)
	}
}

// --------------------------------------------------------------------------
// Per-Peer Sender
// --------------------------------------------------------------------------

// peerSender owns the connection to one peer address. Its goroutine drains
// the outbox until the outbox is closed.
type peerSender struct {
	addr   string
	outbox *util.MPSC[[]byte]
	done   chan struct{}
	parent *Broadcaster
}

func (b *Broadcaster) newPeerSender(addr string) *peerSender {
	p := &peerSender{
		addr:   addr,
		outbox: util.NewMPSC[[]byte](),
		done:   make(chan struct{}),
		parent: b,
	}
	go p.run()
	return p
}

func (p *peerSender) run() {
	defer close(p.done)

	conn, err := p.parent.transport.Dial(p.addr)
	if err != nil {
		// drain and drop everything, the peer is unusable
		log.Warnf("failed to dial %s: %v", p.addr, err)
		for range p.outbox.Recv() {
			p.parent.dropped.Add(1)
		}
		return
	}
	defer conn.Close()

	for data := range p.outbox.Recv() {
		if err := conn.Send(*data); err != nil {
			p.parent.dropped.Add(1)
			log.Debugf("dropped message to %s: %v", p.addr, err)
		}
	}
}

func (p *peerSender) shutdown() {
	p.outbox.Close()
	<-p.done
}

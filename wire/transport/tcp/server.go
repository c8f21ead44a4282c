package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hivecache/hivecache/wire/transport"
)

// listenerImpl accepts inbound peer connections and feeds every received
// frame to the registered handler.
type listenerImpl struct {
	ln      net.Listener
	handler transport.HandleFunc
	config  transport.Config

	conns   *xsync.MapOf[net.Conn, struct{}]
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

func newListener(addr string, handler transport.HandleFunc, config transport.Config) (transport.IListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &listenerImpl{
		ln:      ln,
		handler: handler,
		config:  config,
		conns:   xsync.NewMapOf[net.Conn, struct{}](),
	}

	l.wg.Add(1)
	go l.acceptLoop()

	log.Infof("listening on %s", ln.Addr())
	return l, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IListener)
// --------------------------------------------------------------------------

func (l *listenerImpl) Addr() string {
	return l.ln.Addr().String()
}

func (l *listenerImpl) Close() error {
	l.closeMu.Lock()
	if l.closed {
		l.closeMu.Unlock()
		return nil
	}
	l.closed = true
	l.closeMu.Unlock()

	err := l.ln.Close()

	// closing the connections unblocks the reader goroutines
	l.conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})

	l.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (l *listenerImpl) isClosed() bool {
	l.closeMu.Lock()
	defer l.closeMu.Unlock()
	return l.closed
}

func (l *listenerImpl) acceptLoop() {
	defer l.wg.Done()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warnf("accept failed: %v", err)
			continue
		}

		upgradeConnection(conn, l.config)
		l.conns.Store(conn, struct{}{})

		l.wg.Add(1)
		go l.readLoop(conn)
	}
}

// readLoop reads frames from one peer connection until it fails or the
// listener is closed. The read buffer is reused across frames; the handler
// must not retain the slice.
func (l *listenerImpl) readLoop(conn net.Conn) {
	defer l.wg.Done()
	defer l.conns.Delete(conn)
	defer conn.Close()

	buf := make([]byte, 4096)
	for {
		data, nextBuf, err := readFrame(conn, buf, l.config.MaxMessageSize)
		if err != nil {
			if !l.isClosed() {
				log.Debugf("connection from %s closed: %v", conn.RemoteAddr(), err)
			}
			return
		}
		buf = nextBuf

		l.handler(data)
	}
}

package tcp

import (
	"net"
	"time"

	"github.com/hivecache/hivecache/lib/logger"
	"github.com/hivecache/hivecache/wire/transport"
)

var log = logger.GetLogger("transport/tcp")

// tcpTransport implements transport.ITransport for TCP sockets
type tcpTransport struct {
	config transport.Config
}

// New creates a new TCP transport with the given socket settings
func New(config transport.Config) transport.ITransport {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = transport.DefaultConfig().MaxMessageSize
	}
	return &tcpTransport{config: config}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ITransport)
// --------------------------------------------------------------------------

func (t *tcpTransport) GetName() string {
	return "tcp"
}

func (t *tcpTransport) Listen(addr string, handler transport.HandleFunc) (transport.IListener, error) {
	return newListener(addr, handler, t.config)
}

func (t *tcpTransport) Dial(addr string) (transport.ISender, error) {
	return newSender(addr, t.config), nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// upgradeConnection applies the configured socket options to a TCP connection
func upgradeConnection(conn net.Conn, config transport.Config) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return // Not a TCP connection, nothing to upgrade
	}

	if err := tcpConn.SetNoDelay(config.TCPNoDelay); err != nil {
		log.Warnf("failed to set TCP_NODELAY: %v", err)
	}

	if config.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(config.ReadBufferSize); err != nil {
			log.Warnf("failed to set read buffer size: %v", err)
		}
	}

	if config.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(config.WriteBufferSize); err != nil {
			log.Warnf("failed to set write buffer size: %v", err)
		}
	}

	if config.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			log.Warnf("failed to enable keep-alive: %v", err)
		} else if err := tcpConn.SetKeepAlivePeriod(time.Duration(config.TCPKeepAliveSec) * time.Second); err != nil {
			log.Warnf("failed to set keep-alive period: %v", err)
		}
	}
}

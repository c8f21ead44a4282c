package tcp

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hivecache/hivecache/wire/transport"
)

// senderImpl is a one-way connection to a single peer. The connection is
// established lazily on the first Send and re-established after a failure.
type senderImpl struct {
	addr   string
	config transport.Config

	mu     sync.Mutex // Protects conn and closed
	conn   net.Conn
	closed bool
}

func newSender(addr string, config transport.Config) transport.ISender {
	return &senderImpl{
		addr:   addr,
		config: config,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ISender)
// --------------------------------------------------------------------------

func (s *senderImpl) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sender to %s is closed", s.addr)
	}

	if s.conn == nil {
		conn, err := s.dial()
		if err != nil {
			return err
		}
		s.conn = conn
	}

	if s.config.TimeoutMs > 0 {
		deadline := time.Now().Add(time.Duration(s.config.TimeoutMs) * time.Millisecond)
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}

	if err := writeFrame(s.conn, data); err != nil {
		// drop the connection, the next Send redials
		_ = s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *senderImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *senderImpl) dial() (net.Conn, error) {
	timeout := time.Duration(s.config.TimeoutMs) * time.Millisecond

	var conn net.Conn
	var err error
	if timeout > 0 {
		conn, err = net.DialTimeout("tcp", s.addr, timeout)
	} else {
		conn, err = net.Dial("tcp", s.addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.addr, err)
	}

	upgradeConnection(conn, s.config)
	return conn, nil
}

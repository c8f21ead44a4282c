package tcp

import (
	"bytes"
	"testing"
	"time"

	"github.com/hivecache/hivecache/wire/transport"
)

func TestSendReceive(t *testing.T) {
	received := make(chan []byte, 16)

	tr := New(transport.DefaultConfig())
	listener, err := tr.Listen("127.0.0.1:0", func(data []byte) {
		msg := make([]byte, len(data))
		copy(msg, data)
		received <- msg
	})
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()

	sender, err := tr.Dial(listener.Addr())
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer sender.Close()

	payloads := [][]byte{
		[]byte("first"),
		[]byte("second"),
		{}, // empty frame is legal
		bytes.Repeat([]byte("x"), 100_000),
	}
	for i, payload := range payloads {
		if err := sender.Send(payload); err != nil {
			t.Fatalf("Failed to send payload %d: %v", i, err)
		}
	}

	for i, want := range payloads {
		select {
		case got := <-received:
			if !bytes.Equal(got, want) {
				t.Errorf("Payload %d mismatch: sent %d bytes, received %d bytes", i, len(want), len(got))
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out waiting for payload %d", i)
		}
	}
}

func TestSendToDeadPeerFails(t *testing.T) {
	tr := New(transport.Config{TimeoutMs: 200})

	sender, err := tr.Dial("127.0.0.1:1") // nothing listens here
	if err != nil {
		t.Fatalf("Failed to create sender: %v", err)
	}
	defer sender.Close()

	if err := sender.Send([]byte("hello")); err == nil {
		t.Errorf("Expected send to a dead peer to fail")
	}
}

func TestSenderReconnects(t *testing.T) {
	received := make(chan []byte, 16)

	tr := New(transport.DefaultConfig())
	listener, err := tr.Listen("127.0.0.1:0", func(data []byte) {
		msg := make([]byte, len(data))
		copy(msg, data)
		received <- msg
	})
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	sender, err := tr.Dial(listener.Addr())
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer sender.Close()

	if err := sender.Send([]byte("before")); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	<-received

	// restart the listener on the same address
	addr := listener.Addr()
	if err := listener.Close(); err != nil {
		t.Fatalf("Failed to close listener: %v", err)
	}
	listener, err = tr.Listen(addr, func(data []byte) {
		msg := make([]byte, len(data))
		copy(msg, data)
		received <- msg
	})
	if err != nil {
		t.Fatalf("Failed to re-listen: %v", err)
	}
	defer listener.Close()

	// writes into the stale connection may succeed locally and be lost, so
	// keep sending until a frame arrives through the new listener
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = sender.Send([]byte("after"))

		select {
		case got := <-received:
			if !bytes.Equal(got, []byte("after")) {
				t.Errorf("Unexpected payload after reconnect: %q", got)
			}
			return
		case <-time.After(50 * time.Millisecond):
		}

		if time.Now().After(deadline) {
			t.Fatalf("Sender did not reconnect in time")
		}
	}
}

func TestClose(t *testing.T) {
	tr := New(transport.DefaultConfig())
	listener, err := tr.Listen("127.0.0.1:0", func([]byte) {})
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	sender, _ := tr.Dial(listener.Addr())
	_ = sender.Send([]byte("hello"))

	if err := listener.Close(); err != nil {
		t.Errorf("Failed to close listener: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("Failed to close sender: %v", err)
	}

	if err := sender.Send([]byte("after close")); err == nil {
		t.Errorf("Expected send on closed sender to fail")
	}
}

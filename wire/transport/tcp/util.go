package tcp

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// writeFrame writes a frame to the connection with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, data []byte) error {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer.
// If the buffer is too small, it allocates a new one and returns it so the
// caller can reuse it for the next frame.
func readFrame(conn net.Conn, buf []byte, maxSize int) ([]byte, []byte, error) {
	if len(buf) < 4 {
		buf = make([]byte, 4096)
	}

	// Read header
	if _, err := io.ReadFull(conn, buf[:4]); err != nil {
		return nil, buf, err
	}
	contentLength := binary.BigEndian.Uint32(buf[:4])

	// Guard against corrupt length headers
	if int(contentLength) > maxSize {
		return nil, buf, fmt.Errorf("frame of %d bytes exceeds limit of %d bytes", contentLength, maxSize)
	}

	if contentLength == 0 {
		return []byte{}, buf, nil
	}

	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	// Read data
	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return nil, buf, err
	}

	return buf[:contentLength], buf, nil
}

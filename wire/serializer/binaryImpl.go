package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/hivecache/hivecache/wire"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() ISerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements ISerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey       byte = 1 << 0
	hasValue     byte = 1 << 1
	hasTimestamp byte = 1 << 2
	hasOrigin    byte = 1 << 3
	hasExpireAt  byte = 1 << 4
	hasSender    byte = 1 << 5
	hasAddr      byte = 1 << 6
	hasBootstrap byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg wire.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message kind
	result[0] = byte(msg.Kind)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 2 // Start after Kind and flags

	// Handle Key
	if msg.Key != "" {
		flags |= hasKey
		pos = putString(result, pos, msg.Key)
	}

	// Handle Value
	if msg.Value != nil {
		flags |= hasValue
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Value)))
		pos += 4
		copy(result[pos:pos+len(msg.Value)], msg.Value)
		pos += len(msg.Value)
	}

	// Handle Timestamp
	if msg.Timestamp > 0 {
		flags |= hasTimestamp
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Timestamp)
		pos += 8
	}

	// Handle Origin
	if msg.Origin != "" {
		flags |= hasOrigin
		pos = putString(result, pos, msg.Origin)
	}

	// Handle ExpireAt
	if msg.ExpireAt > 0 {
		flags |= hasExpireAt
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.ExpireAt)
		pos += 8
	}

	// Handle Sender
	if msg.Sender != "" {
		flags |= hasSender
		pos = putString(result, pos, msg.Sender)
	}

	// Handle Addr
	if msg.Addr != "" {
		flags |= hasAddr
		pos = putString(result, pos, msg.Addr)
	}

	// Handle Bootstrap
	if msg.Bootstrap {
		flags |= hasBootstrap
		result[pos] = 1
		pos += 1
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *wire.Message) error {
	// Check minimum size (Kind + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message kind
	msg.Kind = wire.MessageKind(data[0])

	// Read flags
	flags := data[1]

	// Initialize read position
	pos := 2
	var err error

	// Read Key if present
	if flags&hasKey != 0 {
		if msg.Key, pos, err = getString(data, pos, "key"); err != nil {
			return err
		}
	} else {
		msg.Key = ""
	}

	// Read Value if present
	if flags&hasValue != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for value length")
		}
		valueLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(valueLen) > len(data) {
			return fmt.Errorf("data too short for value data")
		}

		// Reuse the caller's buffer if it is large enough
		if msg.Value == nil || cap(msg.Value) < int(valueLen) {
			msg.Value = make([]byte, valueLen)
		} else {
			msg.Value = msg.Value[:valueLen]
		}
		if valueLen > 0 {
			copy(msg.Value, data[pos:pos+int(valueLen)])
		}
		pos += int(valueLen)
	} else {
		msg.Value = nil
	}

	// Read Timestamp if present
	if flags&hasTimestamp != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for timestamp")
		}
		msg.Timestamp = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.Timestamp = 0
	}

	// Read Origin if present
	if flags&hasOrigin != 0 {
		if msg.Origin, pos, err = getString(data, pos, "origin"); err != nil {
			return err
		}
	} else {
		msg.Origin = ""
	}

	// Read ExpireAt if present
	if flags&hasExpireAt != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for expireAt")
		}
		msg.ExpireAt = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.ExpireAt = 0
	}

	// Read Sender if present
	if flags&hasSender != 0 {
		if msg.Sender, pos, err = getString(data, pos, "sender"); err != nil {
			return err
		}
	} else {
		msg.Sender = ""
	}

	// Read Addr if present
	if flags&hasAddr != 0 {
		if msg.Addr, pos, err = getString(data, pos, "addr"); err != nil {
			return err
		}
	} else {
		msg.Addr = ""
	}

	// Read Bootstrap if present
	if flags&hasBootstrap != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for bootstrap flag")
		}
		msg.Bootstrap = data[pos] != 0
		pos += 1
	} else {
		msg.Bootstrap = false
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// putString writes a length-prefixed string and returns the new position
func putString(buf []byte, pos int, s string) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(s)))
	pos += 4
	copy(buf[pos:pos+len(s)], s)
	return pos + len(s)
}

// getString reads a length-prefixed string and returns it with the new position
func getString(data []byte, pos int, field string) (string, int, error) {
	if pos+4 > len(data) {
		return "", pos, fmt.Errorf("data too short for %s length", field)
	}
	strLen := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4

	if pos+int(strLen) > len(data) {
		return "", pos, fmt.Errorf("data too short for %s data", field)
	}
	s := string(data[pos : pos+int(strLen)])
	return s, pos + int(strLen), nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg wire.Message) int {
	// 1 byte for Kind + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Key != "" {
		size += 4 + len(msg.Key) // 4 bytes for length + key string
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value) // 4 bytes for length + value bytes
	}
	if msg.Timestamp > 0 {
		size += 8 // uint64
	}
	if msg.Origin != "" {
		size += 4 + len(msg.Origin)
	}
	if msg.ExpireAt > 0 {
		size += 8 // uint64
	}
	if msg.Sender != "" {
		size += 4 + len(msg.Sender)
	}
	if msg.Addr != "" {
		size += 4 + len(msg.Addr)
	}
	if msg.Bootstrap {
		size += 1 // 1 byte for boolean
	}

	return size
}

package wire

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single one-way replication message. Which fields are
// used depends on the kind of message.
type Message struct {
	// Kind of message
	Kind MessageKind `json:"kind"`

	// Entry fields (Update, Delete, Snapshot)
	Key       string `json:"key,omitempty"`       // Affected key
	Value     []byte `json:"value,omitempty"`     // Used for: Update, Snapshot
	Timestamp uint64 `json:"timestamp,omitempty"` // Logical wall-clock timestamp of the write
	Origin    string `json:"origin,omitempty"`    // Node id that produced the write
	ExpireAt  uint64 `json:"expireAt,omitempty"`  // Absolute unix-nano deadline, 0 = no expiry

	// Membership fields (all kinds carry Sender)
	Sender    string `json:"sender,omitempty"`    // Node id of the sending peer
	Addr      string `json:"addr,omitempty"`      // Listen address of the sending peer
	Bootstrap bool   `json:"bootstrap,omitempty"` // Join only: request a snapshot push
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewUpdateMessage creates a new Update message for a written key
func NewUpdateMessage(key string, value []byte, ts uint64, origin string, expireAt uint64, sender string) *Message {
	return &Message{
		Kind:      MsgKUpdate,
		Key:       key,
		Value:     value,
		Timestamp: ts,
		Origin:    origin,
		ExpireAt:  expireAt,
		Sender:    sender,
	}
}

// NewDeleteMessage creates a new Delete message for a deleted key
func NewDeleteMessage(key string, ts uint64, origin string, sender string) *Message {
	return &Message{
		Kind:      MsgKDelete,
		Key:       key,
		Timestamp: ts,
		Origin:    origin,
		Sender:    sender,
	}
}

// NewHeartbeatMessage creates a new Heartbeat message
func NewHeartbeatMessage(sender, addr string) *Message {
	return &Message{
		Kind:   MsgKHeartbeat,
		Sender: sender,
		Addr:   addr,
	}
}

// NewJoinMessage creates a new Join message. With bootstrap=true the receiver
// is asked to push its current entries back as Snapshot messages.
func NewJoinMessage(sender, addr string, bootstrap bool) *Message {
	return &Message{
		Kind:      MsgKJoin,
		Sender:    sender,
		Addr:      addr,
		Bootstrap: bootstrap,
	}
}

// NewSnapshotMessage creates a new Snapshot message carrying one entry of a
// bootstrap push. The origin is the node that originally wrote the entry, not
// the node pushing the snapshot.
func NewSnapshotMessage(key string, value []byte, ts uint64, origin string, expireAt uint64, sender string) *Message {
	return &Message{
		Kind:      MsgKSnapshot,
		Key:       key,
		Value:     value,
		Timestamp: ts,
		Origin:    origin,
		ExpireAt:  expireAt,
		Sender:    sender,
	}
}

// --------------------------------------------------------------------------
// Message Kind Definition
// --------------------------------------------------------------------------

// MessageKind defines the kind of a replication message.
type MessageKind uint8

// String returns the string representation of a MessageKind.
func (k MessageKind) String() string {
	switch k {
	case MsgKUpdate:
		return "update"
	case MsgKDelete:
		return "delete"
	case MsgKHeartbeat:
		return "heartbeat"
	case MsgKJoin:
		return "join"
	case MsgKSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageKind.
// This allows MessageKind to be serialized as a string in JSON.
func (k MessageKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageKind.
// This allows MessageKind to be deserialized from a string in JSON.
func (k *MessageKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "update":
		*k = MsgKUpdate
	case "delete":
		*k = MsgKDelete
	case "heartbeat":
		*k = MsgKHeartbeat
	case "join":
		*k = MsgKJoin
	case "snapshot":
		*k = MsgKSnapshot
	default:
		return fmt.Errorf("unknown message kind: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Kind Constants
// --------------------------------------------------------------------------

const (
	MsgKUnknown MessageKind = iota

	// Replication

	MsgKUpdate // A key was written
	MsgKDelete // A key was deleted

	// Membership

	MsgKHeartbeat // Periodic liveness signal
	MsgKJoin      // A node announces itself to the cluster

	// Recovery

	MsgKSnapshot // One entry of a bootstrap push
)

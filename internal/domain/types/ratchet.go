package types

import (
	"encoding/binary"
	"fmt"
)

// MessageHeaderSize is the fixed length of an encoded MessageHeader.
const MessageHeaderSize = 32 + 4

// MessageHeader precedes every 1:1 ciphertext.
//
// Wire layout (36 bytes):
//
//	offset 0   32 bytes  sender's current ratchet public key
//	offset 32   4 bytes  message counter, little-endian
type MessageHeader struct {
	RatchetKey X25519Public
	Counter    uint32
}

// Bytes encodes the header in its fixed wire layout.
func (h MessageHeader) Bytes() []byte {
	out := make([]byte, MessageHeaderSize)
	copy(out[:32], h.RatchetKey[:])
	binary.LittleEndian.PutUint32(out[32:], h.Counter)
	return out
}

// ParseMessageHeader splits b into its header and the bytes that follow it.
func ParseMessageHeader(b []byte) (MessageHeader, []byte, error) {
	if len(b) < MessageHeaderSize {
		return MessageHeader{}, nil, fmt.Errorf("message header: want %d bytes, got %d", MessageHeaderSize, len(b))
	}
	var h MessageHeader
	copy(h.RatchetKey[:], b[:32])
	h.Counter = binary.LittleEndian.Uint32(b[32:MessageHeaderSize])
	return h, b[MessageHeaderSize:], nil
}

// ReceivingChain is the chain for one remote ratchet public key.
type ReceivingChain struct {
	RemoteKey X25519Public `json:"remote_key"`
	Chain     ChainKey     `json:"chain"`
}

// SkippedMessageKey is a message key derived out of turn.
type SkippedMessageKey struct {
	RatchetKey Fingerprint `json:"ratchet_key"`
	Counter    uint32      `json:"counter"`
	MessageKey [32]byte    `json:"message_key"`
}

// RatchetState is the persisted form of a Double Ratchet session.
// ReceivingChains and SkippedKeys are stored oldest first.
type RatchetState struct {
	RootKey          [32]byte             `json:"root_key"`
	OurRatchetKey    Option[KeyPair]      `json:"our_ratchet_key"`
	RemoteRatchetKey Option[X25519Public] `json:"remote_ratchet_key"`
	SendingChain     Option[ChainKey]     `json:"sending_chain"`
	ReceivingChains  []ReceivingChain     `json:"receiving_chains"`
	PreviousCounter  uint32               `json:"previous_counter"`
	SkippedKeys      []SkippedMessageKey  `json:"skipped_keys"`
}

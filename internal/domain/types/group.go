package types

import (
	"encoding/binary"
	"fmt"
)

// GroupHeader precedes every group ciphertext.
//
// Wire layout:
//
//	offset 0   4 bytes  message counter, little-endian
//	offset 4   4 bytes  sender id length n, little-endian
//	offset 8   n bytes  sender id
type GroupHeader struct {
	Counter  uint32
	SenderID UserID
}

// Bytes encodes the header in its wire layout.
func (h GroupHeader) Bytes() []byte {
	out := make([]byte, 8+len(h.SenderID))
	binary.LittleEndian.PutUint32(out[0:4], h.Counter)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(h.SenderID)))
	copy(out[8:], h.SenderID)
	return out
}

// ParseGroupHeader splits b into its header and the ciphertext that follows.
func ParseGroupHeader(b []byte) (GroupHeader, []byte, error) {
	if len(b) < 8 {
		return GroupHeader{}, nil, fmt.Errorf("group header: want at least 8 bytes, got %d", len(b))
	}
	n := binary.LittleEndian.Uint32(b[4:8])
	if uint64(n) > uint64(len(b)-8) {
		return GroupHeader{}, nil, fmt.Errorf("group header: sender id length %d exceeds payload", n)
	}
	h := GroupHeader{
		Counter:  binary.LittleEndian.Uint32(b[0:4]),
		SenderID: UserID(b[8 : 8+n]),
	}
	return h, b[8+n:], nil
}

// GroupMessage is one sender-key ciphertext addressed to a whole group.
// EncryptedPayload is GroupHeader||ciphertext; Signature is Ed25519 over it.
type GroupMessage struct {
	GroupID          GroupID `json:"group_id"`
	SenderID         UserID  `json:"sender_id"`
	MessageID        string  `json:"message_id"`
	Timestamp        int64   `json:"timestamp"`
	EncryptedPayload []byte  `json:"encrypted_payload"`
	Signature        []byte  `json:"signature"`
	KeyVersion       uint32  `json:"key_version"`
}

// SenderKeyBundle lets group members decrypt a sender's future traffic.
type SenderKeyBundle struct {
	GroupID          GroupID       `json:"group_id"`
	UserID           UserID        `json:"user_id"`
	SigningPublicKey Ed25519Public `json:"signing_public_key"`
	ChainKey         [32]byte      `json:"chain_key"`
	Counter          uint32        `json:"counter"`
}

// ChainKeyHistoryEntry records a consumed chain position. Only a fingerprint
// of the consumed chain key is kept.
type ChainKeyHistoryEntry struct {
	Counter    uint32        `json:"counter"`
	ChainKey   Fingerprint   `json:"chain_key"`
	SigningKey Ed25519Public `json:"signing_key"`
}

// SenderKeyState is one member's sending chain as seen by this device.
type SenderKeyState struct {
	UserID  UserID                 `json:"user_id"`
	Chain   ChainKey               `json:"chain"`
	Signing SigningKeyPair         `json:"signing"`
	History []ChainKeyHistoryEntry `json:"history"`
}

// GroupSessionState is the persisted record for one group.
type GroupSessionState struct {
	GroupID    GroupID                   `json:"group_id"`
	MyUserID   UserID                    `json:"my_user_id"`
	Members    []UserID                  `json:"members"`
	SenderKeys map[UserID]SenderKeyState `json:"sender_keys"`
	CreatedUTC int64                     `json:"created_utc"`
}

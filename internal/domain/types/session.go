package types

// ProtocolVersion is written into every SignalMessage and SessionState.
const ProtocolVersion uint8 = 3

// SessionRole records which side of the handshake created a session.
type SessionRole uint8

const (
	RoleInitiator SessionRole = iota + 1
	RoleResponder
)

// String returns a readable role name.
func (r SessionRole) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// SessionState is the persisted record for one (local device, remote peer) pair.
// BaseKey is the initiator's handshake key; it tells a retransmitted
// PreKeySignalMessage apart from a new handshake. PreviousBaseKeys lists the
// base keys of the sessions this one replaced, oldest first, so a replayed
// old handshake cannot take over again.
type SessionState struct {
	PeerUserID           UserID               `json:"peer_user_id"`
	Version              uint8                `json:"version"`
	Initialized          bool                 `json:"initialized"`
	Role                 SessionRole          `json:"role"`
	LocalIdentityKey     X25519Public         `json:"local_identity_key"`
	RemoteIdentityKey    X25519Public         `json:"remote_identity_key"`
	RemoteRegistrationID RegistrationID       `json:"remote_registration_id"`
	BaseKey              X25519Public         `json:"base_key"`
	PreviousBaseKeys     []X25519Public       `json:"previous_base_keys"`
	PendingPreKey        Option[PreKeyHeader] `json:"pending_pre_key"`
	Ratchet              RatchetState         `json:"ratchet"`
	CreatedUTC           int64                `json:"created_utc"`
}

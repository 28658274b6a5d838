package types

// SignalMessage is one Double Ratchet ciphertext.
//
// Body is the 36-byte MessageHeader followed by the AEAD ciphertext.
// Signature is HMAC-SHA256 under the message's MacKey over Version||Body.
type SignalMessage struct {
	Version   uint8  `json:"version"`
	Body      []byte `json:"body"`
	Signature []byte `json:"signature"`
}

// Header parses the fixed-layout header at the front of Body.
func (m SignalMessage) Header() (MessageHeader, []byte, error) {
	return ParseMessageHeader(m.Body)
}

// PreKeyHeader carries the Triple-DH parameters an initiator attaches to its
// messages until the responder has replied.
type PreKeyHeader struct {
	RegistrationID  RegistrationID          `json:"registration_id"`
	IdentityKey     X25519Public            `json:"identity_key"`
	BaseKey         X25519Public            `json:"base_key"`
	SignedPreKeyID  SignedPreKeyID          `json:"signed_pre_key_id"`
	OneTimePreKeyID Option[OneTimePreKeyID] `json:"one_time_pre_key_id"`
}

// PreKeySignalMessage is the first message of a session.
type PreKeySignalMessage struct {
	PreKeyHeader
	Message SignalMessage `json:"message"`
}

// Envelope is what the manager hands to the transport for a 1:1 message.
// PreKey is present while the session is still unacknowledged.
type Envelope struct {
	From      UserID               `json:"from"`
	To        UserID               `json:"to"`
	PreKey    Option[PreKeyHeader] `json:"pre_key"`
	Message   SignalMessage        `json:"message"`
	Timestamp int64                `json:"timestamp"`
}

// PreKeyMessage returns the envelope as a PreKeySignalMessage when it carries one.
func (e Envelope) PreKeyMessage() (PreKeySignalMessage, bool) {
	h, ok := e.PreKey.Get()
	if !ok {
		return PreKeySignalMessage{}, false
	}
	return PreKeySignalMessage{PreKeyHeader: h, Message: e.Message}, true
}

// DecryptedMessage is returned by the manager after a successful decrypt.
type DecryptedMessage struct {
	From      UserID  `json:"from"`
	GroupID   GroupID `json:"group_id,omitempty"`
	Plaintext []byte  `json:"plaintext"`
	Timestamp int64   `json:"timestamp"`
}

// ParcelKind tags an opaque transport payload.
type ParcelKind string

const (
	ParcelSignal    ParcelKind = "signal"
	ParcelGroup     ParcelKind = "group"
	ParcelSenderKey ParcelKind = "sender_key"
)

// Parcel is the opaque unit carried by the transport.
type Parcel struct {
	From      UserID     `json:"from"`
	To        UserID     `json:"to"`
	Kind      ParcelKind `json:"kind"`
	Payload   []byte     `json:"payload"`
	Timestamp int64      `json:"timestamp"`
}

package types

// UserID identifies a messaging peer (one device per user in this engine).
type UserID string

// String returns the string form of the user id.
func (u UserID) String() string { return string(u) }

// GroupID identifies a group conversation.
type GroupID string

// String returns the string form of the group id.
func (g GroupID) String() string { return string(g) }

// DeviceID identifies one installation of the engine.
type DeviceID uint32

// RegistrationID is a random 14-bit value chosen once per device.
type RegistrationID uint32

// Fingerprint is a short identifier for public keys presented to users and
// used as a lookup key for ratchet chains.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// SignedPreKeyID uniquely identifies a signed pre-key.
type SignedPreKeyID uint32

// OneTimePreKeyID uniquely identifies a one-time pre-key.
type OneTimePreKeyID uint32

// Option holds a value or nothing. It replaces nullable fields for keys and
// chains so callers have to handle both states.
type Option[T any] struct {
	Valid bool `json:"valid"`
	Value T    `json:"value"`
}

// Some wraps v.
func Some[T any](v T) Option[T] { return Option[T]{Valid: true, Value: v} }

// None returns the empty Option.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) { return o.Value, o.Valid }

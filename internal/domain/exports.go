package domain

import (
	interfaces "sigchat/internal/domain/interfaces"
	types "sigchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID                = types.UserID
	GroupID               = types.GroupID
	DeviceID              = types.DeviceID
	RegistrationID        = types.RegistrationID
	Fingerprint           = types.Fingerprint
	SignedPreKeyID        = types.SignedPreKeyID
	OneTimePreKeyID       = types.OneTimePreKeyID
	X25519Public          = types.X25519Public
	X25519Private         = types.X25519Private
	Ed25519Public         = types.Ed25519Public
	Ed25519Private        = types.Ed25519Private
	KeyPair               = types.KeyPair
	SigningKeyPair        = types.SigningKeyPair
	ChainKey              = types.ChainKey
	MessageKeys           = types.MessageKeys
	Identity              = types.Identity
	SignedPreKey          = types.SignedPreKey
	SignedPreKeyPublic    = types.SignedPreKeyPublic
	OneTimePreKeyPair     = types.OneTimePreKeyPair
	OneTimePreKeyPublic   = types.OneTimePreKeyPublic
	DeviceInfo            = types.DeviceInfo
	PreKeyBundle          = types.PreKeyBundle
	MessageHeader         = types.MessageHeader
	ReceivingChain        = types.ReceivingChain
	SkippedMessageKey     = types.SkippedMessageKey
	RatchetState          = types.RatchetState
	SessionRole           = types.SessionRole
	SessionState          = types.SessionState
	SignalMessage         = types.SignalMessage
	PreKeyHeader          = types.PreKeyHeader
	PreKeySignalMessage   = types.PreKeySignalMessage
	Envelope              = types.Envelope
	DecryptedMessage      = types.DecryptedMessage
	ParcelKind            = types.ParcelKind
	Parcel                = types.Parcel
	GroupHeader           = types.GroupHeader
	GroupMessage          = types.GroupMessage
	SenderKeyBundle       = types.SenderKeyBundle
	ChainKeyHistoryEntry  = types.ChainKeyHistoryEntry
	SenderKeyState        = types.SenderKeyState
	GroupSessionState     = types.GroupSessionState
	PreKeyMeta            = types.PreKeyMeta
	InvalidKeyError       = types.InvalidKeyError
	InvalidSignatureError = types.InvalidSignatureError
	DuplicateMessageError = types.DuplicateMessageError
	NoSessionError        = types.NoSessionError
	NoGroupSessionError   = types.NoGroupSessionError
	SignalError           = types.SignalError
	ErrorCode             = types.ErrorCode
)

// Option is the generic optional value used across records.
type Option[T any] = types.Option[T]

// Some wraps v.
func Some[T any](v T) Option[T] { return types.Some(v) }

// None returns the empty Option.
func None[T any]() Option[T] { return types.None[T]() }

// NewSignalError builds a SignalError with a formatted message.
func NewSignalError(code ErrorCode, format string, args ...any) *SignalError {
	return types.NewSignalError(code, format, args...)
}

// ParseGroupHeader splits b into its header and the ciphertext that follows.
func ParseGroupHeader(b []byte) (GroupHeader, []byte, error) { return types.ParseGroupHeader(b) }

// ParseMessageHeader splits b into its header and the bytes that follow it.
func ParseMessageHeader(b []byte) (MessageHeader, []byte, error) {
	return types.ParseMessageHeader(b)
}

// Encode serialises v as deterministic CBOR.
func Encode(v any) ([]byte, error) { return types.Encode(v) }

// Decode parses CBOR produced by Encode.
func Decode[T any](b []byte) (T, error) { return types.Decode[T](b) }

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyValueStore   = interfaces.KeyValueStore
	KeyLister       = interfaces.KeyLister
	IdentityStore   = interfaces.IdentityStore
	PreKeyStore     = interfaces.PreKeyStore
	SessionStore    = interfaces.SessionStore
	GroupStore      = interfaces.GroupStore
	DeviceInfoStore = interfaces.DeviceInfoStore
	Transport       = interfaces.Transport
	IdentityService = interfaces.IdentityService
	PreKeyService   = interfaces.PreKeyService
)

// Protocol constants re-exported for callers that only import domain.
const (
	ProtocolVersion   = types.ProtocolVersion
	MessageHeaderSize = types.MessageHeaderSize
	RoleInitiator     = types.RoleInitiator
	RoleResponder     = types.RoleResponder
	ParcelSignal      = types.ParcelSignal
	ParcelGroup       = types.ParcelGroup
	ParcelSenderKey   = types.ParcelSenderKey

	CodeNotInitialized   = types.CodeNotInitialized
	CodeNoSenderKey      = types.CodeNoSenderKey
	CodeDecryptFailed    = types.CodeDecryptFailed
	CodeInvalidOperation = types.CodeInvalidOperation
)

// Error sentinels re-exported for errors.Is checks.
var (
	ErrInvalidKey       = types.ErrInvalidKey
	ErrInvalidSignature = types.ErrInvalidSignature
	ErrDuplicateMessage = types.ErrDuplicateMessage
	ErrNoSession        = types.ErrNoSession
	ErrNoGroupSession   = types.ErrNoGroupSession
	ErrNotInitialized   = types.ErrNotInitialized
	ErrNoSenderKey      = types.ErrNoSenderKey
	ErrDecryptFailed    = types.ErrDecryptFailed
	ErrInvalidOperation = types.ErrInvalidOperation
)

package types

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The typed errors below match them.
var (
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrDuplicateMessage = errors.New("duplicate message")
	ErrNoSession        = errors.New("no session")
	ErrNoGroupSession   = errors.New("no group session")
)

// InvalidKeyError is returned for key material of the wrong length or a
// public key that yields a degenerate shared secret.
type InvalidKeyError struct {
	Kind   string
	Want   int
	Got    int
	Reason string
}

func (e *InvalidKeyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s key: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("invalid %s key: want %d bytes, got %d", e.Kind, e.Want, e.Got)
}

func (e *InvalidKeyError) Is(target error) bool { return target == ErrInvalidKey }

// InvalidSignatureError means a message failed authentication. Nothing from
// the message was decrypted.
type InvalidSignatureError struct {
	Context string
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature on %s", e.Context)
}

func (e *InvalidSignatureError) Is(target error) bool { return target == ErrInvalidSignature }

// DuplicateMessageError is returned for a counter that was already consumed.
type DuplicateMessageError struct {
	Counter uint32
}

func (e *DuplicateMessageError) Error() string {
	return fmt.Sprintf("duplicate message: counter %d already consumed", e.Counter)
}

func (e *DuplicateMessageError) Is(target error) bool { return target == ErrDuplicateMessage }

// NoSessionError is returned for an operation on an unknown peer.
type NoSessionError struct {
	Peer UserID
}

func (e *NoSessionError) Error() string { return fmt.Sprintf("no session with %q", e.Peer) }

func (e *NoSessionError) Is(target error) bool { return target == ErrNoSession }

// NoGroupSessionError is returned for an operation on an unknown group.
type NoGroupSessionError struct {
	GroupID GroupID
}

func (e *NoGroupSessionError) Error() string {
	return fmt.Sprintf("no group session for %q", e.GroupID)
}

func (e *NoGroupSessionError) Is(target error) bool { return target == ErrNoGroupSession }

// ErrorCode is the machine-readable part of a SignalError.
type ErrorCode string

const (
	CodeNotInitialized   ErrorCode = "NOT_INITIALIZED"
	CodeNoSenderKey      ErrorCode = "NO_SENDER_KEY"
	CodeDecryptFailed    ErrorCode = "DECRYPT_FAILED"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"
)

// SignalError is a protocol failure that carries an ErrorCode.
// errors.Is matches any *SignalError with the same code.
type SignalError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewSignalError builds a SignalError with a formatted message.
func NewSignalError(code ErrorCode, format string, args ...any) *SignalError {
	return &SignalError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *SignalError) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SignalError) Unwrap() error { return e.Err }

func (e *SignalError) Is(target error) bool {
	t, ok := target.(*SignalError)
	return ok && t.Code == e.Code
}

// Code sentinels for errors.Is(err, types.ErrNotInitialized) and friends.
var (
	ErrNotInitialized   = &SignalError{Code: CodeNotInitialized}
	ErrNoSenderKey      = &SignalError{Code: CodeNoSenderKey}
	ErrDecryptFailed    = &SignalError{Code: CodeDecryptFailed}
	ErrInvalidOperation = &SignalError{Code: CodeInvalidOperation}
)

package store

import "errors"

var (
	// ErrClosed is returned by a store after Close.
	ErrClosed = errors.New("store: closed")
	// ErrBadKey is returned for keys that cannot be mapped onto the backend.
	ErrBadKey = errors.New("store: bad key")
	// ErrWrongPassphrase is returned when a sealed store cannot be opened
	// with the given passphrase or its contents were modified.
	ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted data")
	// ErrListUnsupported is returned when listing is requested from a backend
	// that cannot enumerate keys.
	ErrListUnsupported = errors.New("store: backend cannot list keys")
	// ErrUnknownDriver is returned by Open for an unrecognised driver name.
	ErrUnknownDriver = errors.New("store: unknown driver")
)

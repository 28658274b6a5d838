// Package store provides persistence for the engine's state.
//
// It contains KeyValueStore backends:
//   - MemoryStore, for tests and throwaway sessions
//   - FileStore, one file per key with temp-file+rename writes
//   - BoltStore, a single bbolt database file
//   - SQLiteStore, a single sqlite table
//   - RedisStore, a shared remote instance
//
// SealedStore wraps any backend and encrypts every value under a key derived
// from a passphrase with scrypt.
//
// On top of a KeyValueStore, Records implements the typed domain stores
// (identity, pre-keys, sessions, groups, device info). Each record is CBOR
// encoded and written with a single Set, and all keys are scoped under the
// owning device: dev/<device-id>/...
package store

package store

import (
	"sigchat/internal/domain"
)

// Records implements the typed domain stores over a KeyValueStore, scoped to
// one device. It holds no state of its own; serialising writes to the same
// record is the caller's job.
type Records struct {
	kv   domain.KeyValueStore
	keys Keyspace
}

// NewRecords returns Records for dev backed by kv.
func NewRecords(kv domain.KeyValueStore, dev domain.DeviceID) *Records {
	return &Records{kv: kv, keys: NewKeyspace(dev)}
}

// Keys returns the keyspace used by r.
func (r *Records) Keys() Keyspace { return r.keys }

// Compile-time assertions that Records implements the domain stores.
var (
	_ domain.IdentityStore   = (*Records)(nil)
	_ domain.PreKeyStore     = (*Records)(nil)
	_ domain.SessionStore    = (*Records)(nil)
	_ domain.GroupStore      = (*Records)(nil)
	_ domain.DeviceInfoStore = (*Records)(nil)
)

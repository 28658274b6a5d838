package manager

import "sync"

// Registry is a directory of values keyed by id with one mutex per id.
// An entry lives while it is held or caches a value.
// The zero value is not usable; use NewRegistry.
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*Entry[V]
}

// Entry is one registry slot. It is only valid between Acquire and Release.
type Entry[V any] struct {
	mu    sync.Mutex
	value V
	ok    bool

	refs int // guarded by the registry mutex
	drop func()
}

// NewRegistry returns an empty registry.
func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{entries: make(map[K]*Entry[V])}
}

// Acquire locks and returns the entry for id, creating it if needed.
// The caller must call Release.
func (r *Registry[K, V]) Acquire(id K) *Entry[V] {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		e = &Entry[V]{}
		e.drop = func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			e.refs--
			if e.refs == 0 && !e.ok {
				delete(r.entries, id)
			}
		}
		r.entries[id] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
	return e
}

// Len returns the number of live entries.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Get returns the cached value.
func (e *Entry[V]) Get() (V, bool) { return e.value, e.ok }

// Set replaces the cached value.
func (e *Entry[V]) Set(v V) { e.value, e.ok = v, true }

// Clear drops the cached value. The entry is removed from the registry once
// its last holder releases it.
func (e *Entry[V]) Clear() {
	var zero V
	e.value, e.ok = zero, false
}

// Release unlocks the entry. The registry mutex is taken while the entry is
// still locked; Acquire never holds the registry mutex while waiting on an
// entry.
func (e *Entry[V]) Release() {
	e.drop()
	e.mu.Unlock()
}

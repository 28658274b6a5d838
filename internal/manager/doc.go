// Package manager is the protocol manager: it owns the device identity and
// the peer and group directories, and persists every state change through
// the domain stores before publishing it in memory.
//
// Each peer session and each group is guarded by its own mutex in a
// Registry, so distinct sessions proceed in parallel while operations on one
// session are serialised.
package manager

// Package identity manages creation and loading of the local device identity.
//
// It generates X25519 and Ed25519 key pairs plus a registration id, enforces
// the passphrase policy for sealed stores, and persists the identity via the
// domain.IdentityStore.
package identity

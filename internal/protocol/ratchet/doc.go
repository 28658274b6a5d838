// Package ratchet implements the Double Ratchet session engine.
//
// A State holds a root key, at most one sending chain and a bounded set of
// receiving chains keyed by the fingerprint of the remote ratchet key. Each
// message consumes one chain step so message keys are forward secure. When
// the peer presents a new ratchet public key both sides derive a new root key
// and chain via DH.
//
// Lifecycle:
//
//	uninitialized -> sender-initialized   (InitAsInitiator)
//	uninitialized -> receiver-initialized (InitAsResponder)
//	either        -> active               (first Encrypt or Decrypt)
//
// Encrypt and Decrypt are all-or-nothing: they work on a clone and only
// replace the receiver's contents when every step succeeded.
//
// Out-of-order delivery is handled with a skipped-key cache. It is bounded by
// Config.MaxSkippedKeys and evicts oldest first, so a large enough burst of
// reordering loses messages. That trade-off is accepted; the bound is what
// keeps a hostile peer from growing the cache without limit.
//
// Concurrency: State is NOT safe for concurrent use. Callers must serialise
// access per conversation.
package ratchet

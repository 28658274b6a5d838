// Package senderkey implements the group sender-key protocol.
//
// Every member owns one sending chain and one Ed25519 signing key per group.
// A member encrypts each message once for the whole group; the others hold a
// copy of its chain (learned from a SenderKeyBundle) and follow it forward.
//
// Receivers only move forward. A counter behind the tracked position is
// rejected as a duplicate; a counter ahead of it fast-forwards the chain,
// discarding the intermediate keys, up to Config.MaxForwardJump steps.
//
// When a member leaves, the remaining members rotate: a new signing key, a
// number of one-way chain steps and a re-key with fresh entropy. A departed
// member's copy of the old chain therefore verifies and decrypts nothing
// sent afterwards.
//
// Session is NOT safe for concurrent use.
package senderkey

// Package kdf holds the key schedule shared by the Double Ratchet and the
// group sender-key protocol.
//
//	root step:    HKDF(salt = root key, ikm = DH output) -> root key, chain key
//	chain step:   HMAC(chain key, 0x01) -> message key seed
//	              HMAC(chain key, 0x02) -> next chain key
//	message keys: HKDF(ikm = seed, info = label) -> cipher key, mac key, iv
package kdf

import (
	"fmt"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
	"sigchat/internal/util/memzero"
)

// HKDF info labels. Each key family uses its own label so that outputs from
// different contexts never collide.
var (
	InfoRoot         = []byte("sigchat-ratchet-root")
	InfoMessageKeys  = []byte("sigchat-ratchet-message-keys")
	InfoGroupKeys    = []byte("sigchat-group-message-keys")
	InfoGroupRekey   = []byte("sigchat-group-rekey")
	InfoSenderKeySig = []byte("sigchat-sender-key-fingerprint")
)

var (
	messageKeySeed = []byte{0x01}
	chainKeySeed   = []byte{0x02}
)

const messageKeysLen = 32 + 32 + crypto.NonceSize

// RootStep mixes a fresh DH output into the root key. It returns the next
// root key and a new chain key starting at counter zero.
func RootStep(root [32]byte, dh [32]byte) ([32]byte, domain.ChainKey, error) {
	var next [32]byte
	out, err := crypto.DeriveKeys(dh[:], root[:], InfoRoot, 64)
	if err != nil {
		return next, domain.ChainKey{}, fmt.Errorf("root step: %w", err)
	}
	defer memzero.Zero(out)

	var ck domain.ChainKey
	copy(next[:], out[:32])
	copy(ck.Key[:], out[32:])
	return next, ck, nil
}

// ChainStep consumes ck. It returns the message key seed for ck.Counter and
// the chain key for the following position. Callers must drop ck afterwards.
func ChainStep(ck domain.ChainKey) (next domain.ChainKey, seed [32]byte) {
	m := crypto.MAC(ck.Key[:], messageKeySeed)
	c := crypto.MAC(ck.Key[:], chainKeySeed)
	copy(seed[:], m)
	copy(next.Key[:], c)
	next.Counter = ck.Counter + 1
	memzero.All(m, c)
	return next, seed
}

// MessageKeysFrom expands a message key seed into single-use keys.
func MessageKeysFrom(seed [32]byte, counter uint32, info []byte) (domain.MessageKeys, error) {
	out, err := crypto.DeriveKeys(seed[:], nil, info, messageKeysLen)
	if err != nil {
		return domain.MessageKeys{}, fmt.Errorf("message keys: %w", err)
	}
	defer memzero.Zero(out)

	mk := domain.MessageKeys{Counter: counter}
	copy(mk.CipherKey[:], out[:32])
	copy(mk.MacKey[:], out[32:64])
	copy(mk.IV[:], out[64:])
	return mk, nil
}

// Rekey binds fresh entropy into a chain key so that nobody holding only the
// old chain can follow the new one.
func Rekey(key [32]byte, entropy []byte) ([32]byte, error) {
	var next [32]byte
	out, err := crypto.DeriveKeys(key[:], entropy, InfoGroupRekey, 32)
	if err != nil {
		return next, fmt.Errorf("rekey: %w", err)
	}
	copy(next[:], out)
	memzero.Zero(out)
	return next, nil
}

// ChainFingerprint identifies a chain key without revealing it.
func ChainFingerprint(key [32]byte) domain.Fingerprint {
	return crypto.Fingerprint(crypto.MAC(key[:], InfoSenderKeySig))
}

// Wipe zeroes every key in mk.
func Wipe(mk *domain.MessageKeys) {
	memzero.All(mk.CipherKey[:], mk.MacKey[:], mk.IV[:])
}

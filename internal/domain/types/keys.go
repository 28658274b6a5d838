package types

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key (seed followed by public key).
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// KeyPair is a Curve25519 Diffie-Hellman pair.
type KeyPair struct {
	Public  X25519Public  `json:"public"`
	Private X25519Private `json:"private"`
}

// SigningKeyPair authenticates a sender's group messages. Pairs learned from
// other members carry no private half.
type SigningKeyPair struct {
	Public  Ed25519Public          `json:"public"`
	Private Option[Ed25519Private] `json:"private"`
}

// ChainKey is a ratcheting secret and its position in the chain.
type ChainKey struct {
	Key     [32]byte `json:"key"`
	Counter uint32   `json:"counter"`
}

// MessageKeys are derived once per message and used exactly once.
type MessageKeys struct {
	CipherKey [32]byte
	MacKey    [32]byte
	IV        [12]byte
	Counter   uint32
}

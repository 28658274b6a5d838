package crypto

import (
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"

	"sigchat/internal/domain"
	"sigchat/internal/util/memzero"
)

// GenerateKeyPair returns a fresh Curve25519 key pair read from rand.
// The private key is clamped per RFC 7748.
func GenerateKeyPair(rand io.Reader) (domain.KeyPair, error) {
	var kp domain.KeyPair
	if _, err := io.ReadFull(rand, kp.Private[:]); err != nil {
		return domain.KeyPair{}, fmt.Errorf("read x25519 private key: %w", err)
	}
	clamp(&kp.Private)
	pub, err := PublicFromPrivate(kp.Private)
	if err != nil {
		memzero.Zero(kp.Private[:])
		return domain.KeyPair{}, err
	}
	kp.Public = pub
	return kp, nil
}

// PublicFromPrivate recomputes the public half of priv.
func PublicFromPrivate(priv domain.X25519Private) (domain.X25519Public, error) {
	var pub domain.X25519Public
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], pb)
	return pub, nil
}

// ComputeSharedSecret performs X25519 between priv and remotePublic.
//
// Both inputs must be exactly 32 bytes. Public keys of small order, which
// would produce the all-zero secret, are rejected as invalid too.
func ComputeSharedSecret(priv, remotePublic []byte) ([32]byte, error) {
	var out [32]byte
	if len(priv) != curve25519.ScalarSize {
		return out, &domain.InvalidKeyError{Kind: "x25519 private", Want: curve25519.ScalarSize, Got: len(priv)}
	}
	if len(remotePublic) != curve25519.PointSize {
		return out, &domain.InvalidKeyError{Kind: "x25519 public", Want: curve25519.PointSize, Got: len(remotePublic)}
	}
	secret, err := curve25519.X25519(priv, remotePublic)
	if err != nil {
		return out, &domain.InvalidKeyError{Kind: "x25519 public", Reason: err.Error()}
	}
	copy(out[:], secret)
	memzero.Zero(secret)
	return out, nil
}

// DH computes X25519 Diffie–Hellman over the fixed-size key types.
func DH(priv domain.X25519Private, pub domain.X25519Public) ([32]byte, error) {
	return ComputeSharedSecret(priv.Slice(), pub.Slice())
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}

package crypto

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"

	"sigchat/internal/domain"
)

// SignatureSize is the length of an Ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// GenerateSigningKeyPair returns a new Ed25519 signing key pair read from rand.
func GenerateSigningKeyPair(rand io.Reader) (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	pk, sk, err := ed25519.GenerateKey(rand)
	if err != nil {
		return priv, pub, fmt.Errorf("generate ed25519 key: %w", err)
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	return priv, pub, nil
}

// Sign signs msg with priv and returns the signature.
func Sign(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// Verify verifies sig over msg with pub.
func Verify(pub domain.Ed25519Public, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

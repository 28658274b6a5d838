package crypto

import (
	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the IV length expected by Seal and Open.
const NonceSize = chacha20poly1305.NonceSize

// Seal encrypts plaintext with ChaCha20-Poly1305 under key, authenticating ad.
// The nonce must never repeat for a key; the protocols derive a fresh key per
// message so the derived IV is used as is.
func Seal(key [32]byte, nonce [NonceSize]byte, plaintext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, ad), nil
}

// Open reverses Seal. It fails if ciphertext or ad were modified.
func Open(key [32]byte, nonce [NonceSize]byte, ciphertext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce[:], ciphertext, ad)
}

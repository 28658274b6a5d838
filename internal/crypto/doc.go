// Package crypto exposes the primitives the protocol packages are built from.
//
// Contents
//
//   - X25519 key generation and Diffie–Hellman (GenerateKeyPair,
//     ComputeSharedSecret, DH)
//   - HKDF-SHA256 key stretching (DeriveKeys)
//   - Ed25519 signing keys via circl (GenerateSigningKeyPair, Sign, Verify)
//   - ChaCha20-Poly1305 sealing under a derived key and IV (Seal, Open)
//   - HMAC-SHA256 message authentication (MAC, VerifyMAC)
//   - Short public-key fingerprints for display and lookups (Fingerprint)
//
// # Notes
//
// Every function is pure. Randomness is always passed in as an io.Reader so
// callers decide the source (crypto/rand.Reader in production, a seeded
// reader in tests). Fixed-size array types from internal/domain are used for
// keys to avoid accidental reallocations.
package crypto

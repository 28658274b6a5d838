// Package x3dh implements the Triple-DH key agreement used to bootstrap a
// Double Ratchet session between two devices.
//
// # Overview
//
// The initiator derives a shared 32-byte master secret with a responder who
// has published a DeviceInfo bundle. The bundle contains:
//   - Identity key (X25519) and signing key (Ed25519)
//   - Signed pre-key (X25519) and its Ed25519 signature
//   - Optionally one one-time pre-key (X25519)
//
// # Flows
//
// Initiator:
//  1. Verify the signed pre-key signature.
//  2. Generate an ephemeral X25519 base key.
//  3. Compute DH(IKa, SPKb), DH(EKa, IKb), DH(EKa, SPKb)[, DH(EKa, OPKb)].
//  4. HKDF over 0xFF×32 followed by the DH outputs.
//  5. Return the master secret and the PreKeyHeader for the first message.
//
// Responder:
//  1. Receive the PreKeyHeader (initiator IK, base key, SPK id[, OPK id]).
//  2. Look up the SPK and optionally consume the OPK.
//  3. Compute DH(SPKb, IKa), DH(IKb, EKa), DH(SPKb, EKa)[, DH(OPKb, EKa)].
//  4. HKDF the same transcript to the identical master secret.
//
// Both sides emit the DH outputs in the same order so the transcripts are
// byte-identical. The package tests check this for both bundle shapes.
//
// # Errors
//
// ErrBadSignedPreKey is returned when the SPK signature fails verification.
// Low-order or malformed public keys surface as domain.ErrInvalidKey.
package x3dh

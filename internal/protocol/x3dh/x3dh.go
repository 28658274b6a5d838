package x3dh

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
	"sigchat/internal/util/memzero"
)

// ErrBadSignedPreKey means the bundle's signed pre-key was not signed by the
// bundle's signing key.
var ErrBadSignedPreKey = errors.New("x3dh: bad signed pre-key signature")

var (
	info = []byte("sigchat-x3dh")
	pad  = bytes.Repeat([]byte{0xFF}, 32)
)

// InitiatorResult is what the initiator needs to start its ratchet and to
// build the first message.
type InitiatorResult struct {
	MasterSecret [32]byte
	Header       domain.PreKeyHeader
}

// InitiatorRoot derives the master secret for the initiator.
func InitiatorRoot(rand io.Reader, id domain.Identity, bundle domain.PreKeyBundle) (InitiatorResult, error) {
	spk := bundle.SignedPreKey
	if !VerifySignedPreKey(bundle.SigningKey, spk.Public, spk.Signature) {
		return InitiatorResult{}, ErrBadSignedPreKey
	}

	eph, err := crypto.GenerateKeyPair(rand)
	if err != nil {
		return InitiatorResult{}, fmt.Errorf("x3dh: base key: %w", err)
	}
	defer memzero.Zero(eph.Private[:])

	pairs := []dhPair{
		{id.XPriv, spk.Public},            // DH(IKA, SPKB)
		{eph.Private, bundle.IdentityKey}, // DH(EKA, IKB)
		{eph.Private, spk.Public},         // DH(EKA, SPKB)
	}
	header := domain.PreKeyHeader{
		RegistrationID: id.RegistrationID,
		IdentityKey:    id.XPub,
		BaseKey:        eph.Public,
		SignedPreKeyID: spk.ID,
	}
	if opk, ok := bundle.OneTimePreKey.Get(); ok {
		pairs = append(pairs, dhPair{eph.Private, opk.Public}) // DH(EKA, OPKB)
		header.OneTimePreKeyID = domain.Some(opk.ID)
	}

	master, err := derive(pairs)
	if err != nil {
		return InitiatorResult{}, err
	}
	return InitiatorResult{MasterSecret: master, Header: header}, nil
}

// ResponderRoot derives the master secret for the responder from the
// initiator's PreKeyHeader. opk must be present iff the header names one.
func ResponderRoot(
	id domain.Identity,
	spk domain.KeyPair,
	opk domain.Option[domain.KeyPair],
	header domain.PreKeyHeader,
) ([32]byte, error) {
	pairs := []dhPair{
		{spk.Private, header.IdentityKey}, // DH(SPKB, IKA)
		{id.XPriv, header.BaseKey},        // DH(IKB, EKA)
		{spk.Private, header.BaseKey},     // DH(SPKB, EKA)
	}
	_, wantOPK := header.OneTimePreKeyID.Get()
	kp, haveOPK := opk.Get()
	switch {
	case wantOPK && !haveOPK:
		return [32]byte{}, errors.New("x3dh: one-time pre-key required but not supplied")
	case haveOPK && !wantOPK:
		return [32]byte{}, errors.New("x3dh: one-time pre-key supplied but not referenced")
	case haveOPK:
		pairs = append(pairs, dhPair{kp.Private, header.BaseKey}) // DH(OPKB, EKA)
	}
	return derive(pairs)
}

// VerifySignedPreKey checks the signed pre-key signature.
func VerifySignedPreKey(edPub domain.Ed25519Public, spk domain.X25519Public, sig []byte) bool {
	return crypto.Verify(edPub, spk.Slice(), sig)
}

type dhPair struct {
	priv domain.X25519Private
	pub  domain.X25519Public
}

func derive(pairs []dhPair) ([32]byte, error) {
	var master [32]byte

	transcript := make([]byte, 0, len(pad)+32*len(pairs))
	transcript = append(transcript, pad...)
	defer func() { memzero.Zero(transcript) }()

	for i, p := range pairs {
		out, err := crypto.DH(p.priv, p.pub)
		if err != nil {
			return master, fmt.Errorf("x3dh: dh%d: %w", i+1, err)
		}
		transcript = append(transcript, out[:]...)
		memzero.Zero(out[:])
	}

	okm, err := crypto.DeriveKeys(transcript, nil, info, 32)
	if err != nil {
		return master, fmt.Errorf("x3dh: %w", err)
	}
	copy(master[:], okm)
	memzero.Zero(okm)
	return master, nil
}

package identity

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12

	// registrationIDMask keeps registration ids within 14 bits.
	registrationIDMask = 0x3FFF
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrIdentityExists is returned by GenerateIdentity when the device already has one.
	ErrIdentityExists = errors.New("identity already exists for this device")

	// ErrNoIdentity is returned when an operation needs an identity that was never created.
	ErrNoIdentity = errors.New("no identity; run init first")
)

// Service manages identity key creation and access using a backing store.
//
// The identity contains:
//   - X25519 key pair for Diffie-Hellman (Triple-DH and Double Ratchet).
//   - Ed25519 key pair for signing (for example, signing the Signed Pre-Key).
//   - DeviceID and a random 14-bit RegistrationID.
type Service struct {
	store  domain.IdentityStore
	device domain.DeviceID
	rand   io.Reader
	now    func() time.Time
}

// New returns an identity service for device backed by the given store.
func New(s domain.IdentityStore, device domain.DeviceID, rand io.Reader) *Service {
	return &Service{store: s, device: device, rand: rand, now: time.Now}
}

// GenerateIdentity creates a new identity, saves it, and returns the identity
// plus a short fingerprint of the X25519 public key. It refuses to replace an
// existing identity.
func (s *Service) GenerateIdentity(ctx context.Context) (domain.Identity, domain.Fingerprint, error) {
	_, ok, err := s.store.LoadIdentity(ctx)
	if err != nil {
		return domain.Identity{}, "", err
	}
	if ok {
		return domain.Identity{}, "", ErrIdentityExists
	}

	id, err := s.newIdentity()
	if err != nil {
		return domain.Identity{}, "", err
	}
	if err := s.store.SaveIdentity(ctx, id); err != nil {
		return domain.Identity{}, "", fmt.Errorf("save identity: %w", err)
	}
	return id, crypto.Fingerprint(id.XPub.Slice()), nil
}

// LoadIdentity returns the local identity, if one has been created.
func (s *Service) LoadIdentity(ctx context.Context) (domain.Identity, bool, error) {
	return s.store.LoadIdentity(ctx)
}

// LoadOrCreateIdentity returns the stored identity, creating and saving one
// on first use.
func (s *Service) LoadOrCreateIdentity(ctx context.Context) (domain.Identity, error) {
	id, ok, err := s.store.LoadIdentity(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	if ok {
		return id, nil
	}
	id, _, err = s.GenerateIdentity(ctx)
	return id, err
}

// FingerprintIdentity returns a short fingerprint of the local X25519 public key.
func (s *Service) FingerprintIdentity(ctx context.Context) (domain.Fingerprint, error) {
	id, ok, err := s.store.LoadIdentity(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoIdentity
	}
	return crypto.Fingerprint(id.XPub.Slice()), nil
}

func (s *Service) newIdentity() (domain.Identity, error) {
	// Generate Diffie-Hellman keypair for Triple-DH.
	dh, err := crypto.GenerateKeyPair(s.rand)
	if err != nil {
		return domain.Identity{}, err
	}
	// Generate signing keypair.
	edPriv, edPub, err := crypto.GenerateSigningKeyPair(s.rand)
	if err != nil {
		return domain.Identity{}, err
	}
	regID, err := registrationID(s.rand)
	if err != nil {
		return domain.Identity{}, err
	}

	return domain.Identity{
		DeviceID:       s.device,
		RegistrationID: regID,
		XPub:           dh.Public,
		XPriv:          dh.Private,
		EdPub:          edPub,
		EdPriv:         edPriv,
		CreatedUTC:     s.now().UTC().Unix(),
	}, nil
}

// registrationID draws a non-zero 14-bit id.
func registrationID(rand io.Reader) (domain.RegistrationID, error) {
	var b [2]byte
	if _, err := io.ReadFull(rand, b[:]); err != nil {
		return 0, fmt.Errorf("registration id: %w", err)
	}
	id := domain.RegistrationID(binary.LittleEndian.Uint16(b[:]) & registrationIDMask)
	if id == 0 {
		id = 1
	}
	return id, nil
}

// ValidatePassphrase enforces the strength policy for a new sealed store.
func ValidatePassphrase(passphrase string) error {
	if !isSecurePassphrase(passphrase) {
		return ErrWeakPassphrase
	}
	return nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)

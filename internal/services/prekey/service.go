package prekey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
)

// Config sizes the one-time pool and the signed pre-key lifetime.
type Config struct {
	// OneTimePreKeys is the pool size kept available for publication.
	OneTimePreKeys int `yaml:"one_time_pre_keys"`
	// SignedPreKeyMaxAge triggers rotation of the signed pre-key. Zero disables it.
	SignedPreKeyMaxAge time.Duration `yaml:"signed_pre_key_max_age"`
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{OneTimePreKeys: 20, SignedPreKeyMaxAge: 7 * 24 * time.Hour}
}

var errNoSignedPreKey = errors.New("no signed pre-key available")

// Service manages pre-key pairs and builds the public DeviceInfo.
type Service struct {
	store domain.PreKeyStore
	cfg   Config
	rand  io.Reader
	now   func() time.Time
}

// New returns a pre-key service backed by store.
func New(store domain.PreKeyStore, cfg Config, rand io.Reader) *Service {
	if cfg.OneTimePreKeys <= 0 {
		cfg.OneTimePreKeys = DefaultConfig().OneTimePreKeys
	}
	return &Service{store: store, cfg: cfg, rand: rand, now: time.Now}
}

// GenerateSignedPreKey creates a signed pre-key, signs it with the identity
// signing key and marks it as current. Older signed pre-keys stay loadable so
// handshakes already in flight still complete.
func (s *Service) GenerateSignedPreKey(ctx context.Context, id domain.Identity) (domain.SignedPreKey, error) {
	meta, err := s.store.LoadPreKeyMeta(ctx)
	if err != nil {
		return domain.SignedPreKey{}, err
	}

	kp, err := crypto.GenerateKeyPair(s.rand)
	if err != nil {
		return domain.SignedPreKey{}, err
	}
	meta.NextSignedPreKeyID++
	spk := domain.SignedPreKey{
		ID:         meta.NextSignedPreKeyID,
		KeyPair:    kp,
		Signature:  crypto.Sign(id.EdPriv, kp.Public.Slice()),
		CreatedUTC: s.now().UTC().Unix(),
	}
	if err := s.store.SaveSignedPreKey(ctx, spk); err != nil {
		return domain.SignedPreKey{}, err
	}
	meta.CurrentSignedPreKeyID = spk.ID
	if err := s.store.SavePreKeyMeta(ctx, meta); err != nil {
		return domain.SignedPreKey{}, err
	}
	return spk, nil
}

// RefillOneTimePreKeys tops the pool up to its configured size and returns
// how many keys were generated.
func (s *Service) RefillOneTimePreKeys(ctx context.Context) (int, error) {
	meta, err := s.store.LoadPreKeyMeta(ctx)
	if err != nil {
		return 0, err
	}
	n := s.cfg.OneTimePreKeys - len(meta.OneTimePreKeyIDs)
	for i := 0; i < n; i++ {
		kp, err := crypto.GenerateKeyPair(s.rand)
		if err != nil {
			return i, err
		}
		meta.NextOneTimePreKeyID++
		opk := domain.OneTimePreKeyPair{ID: meta.NextOneTimePreKeyID, KeyPair: kp}
		if err := s.store.SaveOneTimePreKey(ctx, opk); err != nil {
			return i, err
		}
		meta.OneTimePreKeyIDs = append(meta.OneTimePreKeyIDs, opk.ID)
	}
	if n <= 0 {
		return 0, nil
	}
	if err := s.store.SavePreKeyMeta(ctx, meta); err != nil {
		return 0, err
	}
	return n, nil
}

// DeviceInfo returns the public bundle for user: identity keys, the current
// signed pre-key and one unpublished one-time pre-key. The signed pre-key is
// created or rotated and the one-time pool refilled as needed. Each one-time
// pre-key is published at most once; its private half stays stored until a
// handshake consumes it.
func (s *Service) DeviceInfo(ctx context.Context, id domain.Identity, user domain.UserID) (domain.DeviceInfo, error) {
	spk, err := s.currentSignedPreKey(ctx, id)
	if err != nil {
		return domain.DeviceInfo{}, err
	}
	if _, err := s.RefillOneTimePreKeys(ctx); err != nil {
		return domain.DeviceInfo{}, fmt.Errorf("refill one-time pre-keys: %w", err)
	}

	info := domain.DeviceInfo{
		UserID:         user,
		DeviceID:       id.DeviceID,
		RegistrationID: id.RegistrationID,
		IdentityKey:    id.XPub,
		SigningKey:     id.EdPub,
		SignedPreKey:   spk.Public(),
	}

	meta, err := s.store.LoadPreKeyMeta(ctx)
	if err != nil {
		return domain.DeviceInfo{}, err
	}
	for len(meta.OneTimePreKeyIDs) > 0 {
		opkID := meta.OneTimePreKeyIDs[0]
		meta.OneTimePreKeyIDs = meta.OneTimePreKeyIDs[1:]
		opk, ok, err := s.store.LoadOneTimePreKey(ctx, opkID)
		if err != nil {
			return domain.DeviceInfo{}, err
		}
		if ok {
			info.OneTimePreKey = domain.Some(domain.OneTimePreKeyPublic{ID: opk.ID, Public: opk.KeyPair.Public})
			break
		}
	}
	if err := s.store.SavePreKeyMeta(ctx, meta); err != nil {
		return domain.DeviceInfo{}, err
	}
	return info, nil
}

// LoadSignedPreKey returns a signed pre-key by id, current or not.
func (s *Service) LoadSignedPreKey(ctx context.Context, keyID domain.SignedPreKeyID) (domain.SignedPreKey, bool, error) {
	return s.store.LoadSignedPreKey(ctx, keyID)
}

// LoadOneTimePreKey returns a one-time pre-key by id without consuming it.
func (s *Service) LoadOneTimePreKey(
	ctx context.Context,
	keyID domain.OneTimePreKeyID,
) (domain.OneTimePreKeyPair, bool, error) {
	return s.store.LoadOneTimePreKey(ctx, keyID)
}

// ConsumeOneTimePreKey returns a one-time pre-key and removes it, so it is
// used for at most one handshake.
func (s *Service) ConsumeOneTimePreKey(
	ctx context.Context,
	keyID domain.OneTimePreKeyID,
) (domain.OneTimePreKeyPair, bool, error) {
	opk, ok, err := s.store.LoadOneTimePreKey(ctx, keyID)
	if err != nil || !ok {
		return domain.OneTimePreKeyPair{}, false, err
	}
	meta, err := s.store.LoadPreKeyMeta(ctx)
	if err != nil {
		return domain.OneTimePreKeyPair{}, false, err
	}
	meta.OneTimePreKeyIDs = slices.DeleteFunc(meta.OneTimePreKeyIDs, func(id domain.OneTimePreKeyID) bool {
		return id == keyID
	})
	if err := s.store.SavePreKeyMeta(ctx, meta); err != nil {
		return domain.OneTimePreKeyPair{}, false, err
	}
	if err := s.store.DeleteOneTimePreKey(ctx, keyID); err != nil {
		return domain.OneTimePreKeyPair{}, false, err
	}
	return opk, true, nil
}

// currentSignedPreKey loads the current signed pre-key, generating a new one
// when there is none or it has outlived SignedPreKeyMaxAge.
func (s *Service) currentSignedPreKey(ctx context.Context, id domain.Identity) (domain.SignedPreKey, error) {
	meta, err := s.store.LoadPreKeyMeta(ctx)
	if err != nil {
		return domain.SignedPreKey{}, err
	}
	if meta.CurrentSignedPreKeyID == 0 {
		return s.GenerateSignedPreKey(ctx, id)
	}
	spk, ok, err := s.store.LoadSignedPreKey(ctx, meta.CurrentSignedPreKeyID)
	if err != nil {
		return domain.SignedPreKey{}, err
	}
	if !ok {
		return domain.SignedPreKey{}, fmt.Errorf("%w: id %d", errNoSignedPreKey, meta.CurrentSignedPreKeyID)
	}
	if s.cfg.SignedPreKeyMaxAge > 0 {
		age := s.now().Sub(time.Unix(spk.CreatedUTC, 0))
		if age > s.cfg.SignedPreKeyMaxAge {
			return s.GenerateSignedPreKey(ctx, id)
		}
	}
	return spk, nil
}

// Compile-time assertion that Service implements domain.PreKeyService.
var _ domain.PreKeyService = (*Service)(nil)

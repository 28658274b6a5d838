package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"sigchat/internal/domain"
	"sigchat/internal/domain/types"
	"sigchat/internal/util/memzero"
)

const (
	// The current supported version of the sealed value and parameter formats.
	sealedFormatVersion = 1

	sealedParamsKey = "sealed/params"
	sealedCheck     = "sigchat-sealed-store"
)

// ScryptParams are the key-derivation cost parameters for a SealedStore.
type ScryptParams struct {
	N int `yaml:"n"`
	R int `yaml:"r"`
	P int `yaml:"p"`
}

// DefaultScryptParams returns interactive-login strength parameters.
func DefaultScryptParams() ScryptParams { return ScryptParams{N: 1 << 15, R: 8, P: 1} }

// sealedParams is persisted next to the data so the key can be re-derived.
type sealedParams struct {
	V     int    `json:"v"`
	Salt  []byte `json:"salt"`
	N     int    `json:"scrypt_n"`
	R     int    `json:"scrypt_r"`
	P     int    `json:"scrypt_p"`
	Check []byte `json:"check"`
}

// SealedStore encrypts every value with XChaCha20-Poly1305 under a key
// derived once from a passphrase. Each value gets a random nonce and is bound
// to its key name, so values cannot be swapped between keys unnoticed. Key
// names themselves are stored in the clear.
type SealedStore struct {
	inner domain.KeyValueStore
	aead  cipher.AEAD
	rand  io.Reader
}

// OpenSealed wraps inner. The first open records a fresh salt and params;
// later opens re-derive the key from them and fail with ErrWrongPassphrase
// if the passphrase differs.
func OpenSealed(ctx context.Context, inner domain.KeyValueStore, passphrase string, params ScryptParams) (*SealedStore, error) {
	raw, ok, err := inner.Get(ctx, sealedParamsKey)
	if err != nil {
		return nil, fmt.Errorf("load sealed params: %w", err)
	}

	if !ok {
		sp := sealedParams{V: sealedFormatVersion, Salt: make([]byte, 16), N: params.N, R: params.R, P: params.P}
		if _, err := io.ReadFull(rand.Reader, sp.Salt); err != nil {
			return nil, err
		}
		s, err := newSealed(inner, passphrase, sp)
		if err != nil {
			return nil, err
		}
		if sp.Check, err = s.seal(sealedParamsKey, []byte(sealedCheck)); err != nil {
			return nil, err
		}
		b, err := types.Encode(sp)
		if err != nil {
			return nil, err
		}
		if err := inner.Set(ctx, sealedParamsKey, b); err != nil {
			return nil, fmt.Errorf("save sealed params: %w", err)
		}
		return s, nil
	}

	sp, err := types.Decode[sealedParams](raw)
	if err != nil {
		return nil, fmt.Errorf("decode sealed params: %w", err)
	}
	if sp.V > sealedFormatVersion {
		return nil, fmt.Errorf("unsupported sealed store version %d", sp.V)
	}
	s, err := newSealed(inner, passphrase, sp)
	if err != nil {
		return nil, err
	}
	if _, err := s.open(sealedParamsKey, sp.Check); err != nil {
		return nil, ErrWrongPassphrase
	}
	return s, nil
}

func newSealed(inner domain.KeyValueStore, passphrase string, sp sealedParams) (*SealedStore, error) {
	key, err := scrypt.Key([]byte(passphrase), sp.Salt, sp.N, sp.R, sp.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive sealed key: %w", err)
	}
	defer memzero.Zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &SealedStore{inner: inner, aead: aead, rand: rand.Reader}, nil
}

// seal lays out version || nonce || ciphertext.
func (s *SealedStore) seal(key string, pt []byte) ([]byte, error) {
	out := make([]byte, 1+s.aead.NonceSize(), 1+s.aead.NonceSize()+len(pt)+s.aead.Overhead())
	out[0] = sealedFormatVersion
	nonce := out[1:]
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(out, nonce, pt, []byte(key)), nil
}

func (s *SealedStore) open(key string, b []byte) ([]byte, error) {
	hdr := 1 + s.aead.NonceSize()
	if len(b) < hdr+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: %s: short value", ErrWrongPassphrase, key)
	}
	if b[0] != sealedFormatVersion {
		return nil, fmt.Errorf("%s: unsupported sealed value version %d", key, b[0])
	}
	pt, err := s.aead.Open(nil, b[1:hdr], b[hdr:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWrongPassphrase, key)
	}
	return pt, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	pt, err := s.open(key, b)
	if err != nil {
		return nil, false, err
	}
	return pt, true, nil
}

func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	if key == sealedParamsKey {
		return fmt.Errorf("%w: %q is reserved", ErrBadKey, key)
	}
	b, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, b)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	if key == sealedParamsKey {
		return fmt.Errorf("%w: %q is reserved", ErrBadKey, key)
	}
	return s.inner.Delete(ctx, key)
}

func (s *SealedStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := listKeys(ctx, s.inner, prefix)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if !strings.HasPrefix(k, "sealed/") {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *SealedStore) Close() error { return s.inner.Close() }

var (
	_ domain.KeyValueStore = (*SealedStore)(nil)
	_ domain.KeyLister     = (*SealedStore)(nil)
)

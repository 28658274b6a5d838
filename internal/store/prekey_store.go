package store

import (
	"context"

	"sigchat/internal/domain"
)

// SaveSignedPreKey stores a signed pre-key by id.
func (r *Records) SaveSignedPreKey(ctx context.Context, spk domain.SignedPreKey) error {
	return putRecord(ctx, r.kv, r.keys.SignedPreKey(spk.ID), spk)
}

// LoadSignedPreKey retrieves a signed pre-key by id.
func (r *Records) LoadSignedPreKey(ctx context.Context, id domain.SignedPreKeyID) (domain.SignedPreKey, bool, error) {
	return getRecord[domain.SignedPreKey](ctx, r.kv, r.keys.SignedPreKey(id))
}

// SaveOneTimePreKey stores a one-time pre-key by id.
func (r *Records) SaveOneTimePreKey(ctx context.Context, opk domain.OneTimePreKeyPair) error {
	return putRecord(ctx, r.kv, r.keys.OneTimePreKey(opk.ID), opk)
}

// LoadOneTimePreKey retrieves a one-time pre-key by id.
func (r *Records) LoadOneTimePreKey(ctx context.Context, id domain.OneTimePreKeyID) (domain.OneTimePreKeyPair, bool, error) {
	return getRecord[domain.OneTimePreKeyPair](ctx, r.kv, r.keys.OneTimePreKey(id))
}

// DeleteOneTimePreKey removes a one-time pre-key.
func (r *Records) DeleteOneTimePreKey(ctx context.Context, id domain.OneTimePreKeyID) error {
	return r.kv.Delete(ctx, r.keys.OneTimePreKey(id))
}

// LoadPreKeyMeta returns the pre-key bookkeeping, or its zero value when
// nothing has been generated yet.
func (r *Records) LoadPreKeyMeta(ctx context.Context) (domain.PreKeyMeta, error) {
	meta, _, err := getRecord[domain.PreKeyMeta](ctx, r.kv, r.keys.PreKeyMeta())
	return meta, err
}

// SavePreKeyMeta writes the pre-key bookkeeping.
func (r *Records) SavePreKeyMeta(ctx context.Context, meta domain.PreKeyMeta) error {
	return putRecord(ctx, r.kv, r.keys.PreKeyMeta(), meta)
}

package store

import (
	"context"

	"sigchat/internal/domain"
)

// LoadIdentity reads the device identity.
func (r *Records) LoadIdentity(ctx context.Context) (domain.Identity, bool, error) {
	return getRecord[domain.Identity](ctx, r.kv, r.keys.Identity())
}

// SaveIdentity writes the device identity.
func (r *Records) SaveIdentity(ctx context.Context, id domain.Identity) error {
	return putRecord(ctx, r.kv, r.keys.Identity(), id)
}

package store

import (
	"context"

	"sigchat/internal/domain"
)

// SaveGroup writes the group record for st.GroupID.
func (r *Records) SaveGroup(ctx context.Context, st domain.GroupSessionState) error {
	return putRecord(ctx, r.kv, r.keys.Group(st.GroupID), st)
}

// LoadGroup retrieves the group record for id.
func (r *Records) LoadGroup(ctx context.Context, id domain.GroupID) (domain.GroupSessionState, bool, error) {
	return getRecord[domain.GroupSessionState](ctx, r.kv, r.keys.Group(id))
}

// DeleteGroup removes the group record for id.
func (r *Records) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	return r.kv.Delete(ctx, r.keys.Group(id))
}

// ListGroups returns the groups with a stored record.
func (r *Records) ListGroups(ctx context.Context) ([]domain.GroupID, error) {
	keys, err := listKeys(ctx, r.kv, r.keys.GroupPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]domain.GroupID, 0, len(keys))
	for _, k := range keys {
		id, err := lastSegment(k, r.keys.GroupPrefix())
		if err != nil {
			return nil, err
		}
		out = append(out, domain.GroupID(id))
	}
	return out, nil
}

// SavePendingBundles replaces the bundles held for group id.
func (r *Records) SavePendingBundles(ctx context.Context, id domain.GroupID, b []domain.SenderKeyBundle) error {
	return putRecord(ctx, r.kv, r.keys.PendingBundles(id), b)
}

// LoadPendingBundles returns the bundles held for group id, if any.
func (r *Records) LoadPendingBundles(ctx context.Context, id domain.GroupID) ([]domain.SenderKeyBundle, error) {
	b, _, err := getRecord[[]domain.SenderKeyBundle](ctx, r.kv, r.keys.PendingBundles(id))
	return b, err
}

// DeletePendingBundles drops the bundles held for group id.
func (r *Records) DeletePendingBundles(ctx context.Context, id domain.GroupID) error {
	return r.kv.Delete(ctx, r.keys.PendingBundles(id))
}

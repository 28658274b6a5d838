package store

import (
	"context"

	"sigchat/internal/domain"
)

// SaveSession writes the session record for st.PeerUserID.
func (r *Records) SaveSession(ctx context.Context, st domain.SessionState) error {
	return putRecord(ctx, r.kv, r.keys.Session(st.PeerUserID), st)
}

// LoadSession retrieves the session record for peer.
func (r *Records) LoadSession(ctx context.Context, peer domain.UserID) (domain.SessionState, bool, error) {
	return getRecord[domain.SessionState](ctx, r.kv, r.keys.Session(peer))
}

// DeleteSession removes the session record for peer.
func (r *Records) DeleteSession(ctx context.Context, peer domain.UserID) error {
	return r.kv.Delete(ctx, r.keys.Session(peer))
}

// ListSessions returns the peers with a stored session.
func (r *Records) ListSessions(ctx context.Context) ([]domain.UserID, error) {
	keys, err := listKeys(ctx, r.kv, r.keys.SessionPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserID, 0, len(keys))
	for _, k := range keys {
		id, err := lastSegment(k, r.keys.SessionPrefix())
		if err != nil {
			return nil, err
		}
		out = append(out, domain.UserID(id))
	}
	return out, nil
}

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/internal/domain"
	"sigchat/internal/store"
)

func TestRecords_SessionsAndGroups(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	recs := store.NewRecords(kv, 7)
	other := store.NewRecords(kv, 8)

	st := domain.SessionState{
		PeerUserID: "bob/with slash",
		Version:    domain.ProtocolVersion,
		Role:       domain.RoleInitiator,
		Ratchet: domain.RatchetState{
			RootKey:          [32]byte{1},
			RemoteRatchetKey: domain.Some(domain.X25519Public{2}),
		},
	}
	require.NoError(t, recs.SaveSession(ctx, st))

	got, ok, err := recs.LoadSession(ctx, "bob/with slash")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, st.Ratchet.RootKey, got.Ratchet.RootKey)
	require.Equal(t, st.Ratchet.RemoteRatchetKey, got.Ratchet.RemoteRatchetKey)
	require.Equal(t, domain.RoleInitiator, got.Role)

	peers, err := recs.ListSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.UserID{"bob/with slash"}, peers)

	// Another device on the same store sees nothing.
	_, ok, err = other.LoadSession(ctx, "bob/with slash")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, recs.DeleteSession(ctx, "bob/with slash"))
	peers, err = recs.ListSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, peers)

	g := domain.GroupSessionState{
		GroupID:  "team",
		MyUserID: "alice",
		Members:  []domain.UserID{"alice", "bob"},
		SenderKeys: map[domain.UserID]domain.SenderKeyState{
			"alice": {UserID: "alice", Chain: domain.ChainKey{Key: [32]byte{3}, Counter: 4}},
		},
	}
	require.NoError(t, recs.SaveGroup(ctx, g))
	gotG, ok, err := recs.LoadGroup(ctx, "team")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, g.Members, gotG.Members)
	require.Equal(t, g.SenderKeys["alice"].Chain, gotG.SenderKeys["alice"].Chain)

	groups, err := recs.ListGroups(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.GroupID{"team"}, groups)
}

func TestRecords_PendingBundles(t *testing.T) {
	ctx := context.Background()
	recs := store.NewRecords(store.NewMemoryStore(), 1)

	got, err := recs.LoadPendingBundles(ctx, "team")
	require.NoError(t, err)
	require.Empty(t, got)

	b := []domain.SenderKeyBundle{{GroupID: "team", UserID: "bob", ChainKey: [32]byte{9}, Counter: 2}}
	require.NoError(t, recs.SavePendingBundles(ctx, "team", b))
	got, err = recs.LoadPendingBundles(ctx, "team")
	require.NoError(t, err)
	require.Equal(t, b, got)

	// Held bundles are not groups.
	groups, err := recs.ListGroups(ctx)
	require.NoError(t, err)
	require.Empty(t, groups)

	require.NoError(t, recs.DeletePendingBundles(ctx, "team"))
	got, err = recs.LoadPendingBundles(ctx, "team")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRecords_PreKeys(t *testing.T) {
	ctx := context.Background()
	recs := store.NewRecords(store.NewMemoryStore(), 1)

	meta, err := recs.LoadPreKeyMeta(ctx)
	require.NoError(t, err)
	require.Zero(t, meta.NextOneTimePreKeyID)

	opk := domain.OneTimePreKeyPair{ID: 3, KeyPair: domain.KeyPair{Public: domain.X25519Public{9}}}
	require.NoError(t, recs.SaveOneTimePreKey(ctx, opk))
	got, ok, err := recs.LoadOneTimePreKey(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, opk, got)

	require.NoError(t, recs.DeleteOneTimePreKey(ctx, 3))
	_, ok, err = recs.LoadOneTimePreKey(ctx, 3)
	require.NoError(t, err)
	require.False(t, ok)

	spk := domain.SignedPreKey{ID: 1, Signature: []byte{1, 2}}
	require.NoError(t, recs.SaveSignedPreKey(ctx, spk))
	gotSPK, ok, err := recs.LoadSignedPreKey(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, spk.Signature, gotSPK.Signature)
}

func TestKeyspace(t *testing.T) {
	k := store.NewKeyspace(12)
	require.Equal(t, "dev/12/identity", k.Identity())
	require.Equal(t, "dev/12/session/a%2Fb", k.Session("a/b"))
	require.Equal(t, "dev/12/group/team", k.Group("team"))
	require.Equal(t, "dev/12/prekey/signed/5", k.SignedPreKey(5))
	require.Equal(t, "dev/12/prekey/onetime/6", k.OneTimePreKey(6))
}

package prekey_test

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sigchat/internal/domain"
	"sigchat/internal/protocol/x3dh"
	"sigchat/internal/services/identity"
	"sigchat/internal/services/prekey"
	"sigchat/internal/store"
)

func setup(t *testing.T, cfg prekey.Config) (*prekey.Service, *store.Records, domain.Identity) {
	t.Helper()
	recs := store.NewRecords(store.NewMemoryStore(), 1)
	id, err := identity.New(recs, 1, rand.Reader).LoadOrCreateIdentity(context.Background())
	require.NoError(t, err)
	return prekey.New(recs, cfg, rand.Reader), recs, id
}

func TestDeviceInfo(t *testing.T) {
	ctx := context.Background()
	svc, recs, id := setup(t, prekey.Config{OneTimePreKeys: 3})

	info, err := svc.DeviceInfo(ctx, id, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.UserID("bob"), info.UserID)
	require.Equal(t, id.XPub, info.IdentityKey)
	require.Equal(t, id.EdPub, info.SigningKey)
	require.Equal(t, id.RegistrationID, info.RegistrationID)
	require.True(t, x3dh.VerifySignedPreKey(info.SigningKey, info.SignedPreKey.Public, info.SignedPreKey.Signature))

	opk, ok := info.OneTimePreKey.Get()
	require.True(t, ok)

	meta, err := recs.LoadPreKeyMeta(ctx)
	require.NoError(t, err)
	require.Len(t, meta.OneTimePreKeyIDs, 2)
	require.NotContains(t, meta.OneTimePreKeyIDs, opk.ID)

	// A second call reuses the signed pre-key but never republishes an OPK.
	again, err := svc.DeviceInfo(ctx, id, "bob")
	require.NoError(t, err)
	require.Equal(t, info.SignedPreKey, again.SignedPreKey)
	next, ok := again.OneTimePreKey.Get()
	require.True(t, ok)
	require.NotEqual(t, opk.ID, next.ID)

	// Published keys stay loadable until consumed.
	_, ok, err = svc.LoadOneTimePreKey(ctx, opk.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConsumeOneTimePreKey(t *testing.T) {
	ctx := context.Background()
	svc, recs, id := setup(t, prekey.Config{OneTimePreKeys: 2})

	info, err := svc.DeviceInfo(ctx, id, "bob")
	require.NoError(t, err)
	pub, ok := info.OneTimePreKey.Get()
	require.True(t, ok)

	pair, ok, err := svc.ConsumeOneTimePreKey(ctx, pub.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pub.Public, pair.KeyPair.Public)

	_, ok, err = svc.ConsumeOneTimePreKey(ctx, pub.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// The next bundle offers a different key and the pool is refilled.
	next, err := svc.DeviceInfo(ctx, id, "bob")
	require.NoError(t, err)
	nextPub, ok := next.OneTimePreKey.Get()
	require.True(t, ok)
	require.NotEqual(t, pub.ID, nextPub.ID)

	meta, err := recs.LoadPreKeyMeta(ctx)
	require.NoError(t, err)
	require.Len(t, meta.OneTimePreKeyIDs, 1)
	require.NotContains(t, meta.OneTimePreKeyIDs, nextPub.ID)
}

func TestSignedPreKeyRotation(t *testing.T) {
	ctx := context.Background()
	svc, _, id := setup(t, prekey.Config{OneTimePreKeys: 1})

	first, err := svc.DeviceInfo(ctx, id, "bob")
	require.NoError(t, err)

	rotated, err := svc.GenerateSignedPreKey(ctx, id)
	require.NoError(t, err)
	require.Greater(t, rotated.ID, first.SignedPreKey.ID)

	info, err := svc.DeviceInfo(ctx, id, "bob")
	require.NoError(t, err)
	require.Equal(t, rotated.Public(), info.SignedPreKey)

	// The previous signed pre-key stays loadable.
	old, ok, err := svc.LoadSignedPreKey(ctx, first.SignedPreKey.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first.SignedPreKey.Public, old.KeyPair.Public)
}

func TestSignedPreKeyMaxAge(t *testing.T) {
	ctx := context.Background()
	svc, _, id := setup(t, prekey.Config{OneTimePreKeys: 1, SignedPreKeyMaxAge: time.Nanosecond})

	first, err := svc.DeviceInfo(ctx, id, "bob")
	require.NoError(t, err)
	second, err := svc.DeviceInfo(ctx, id, "bob")
	require.NoError(t, err)
	require.NotEqual(t, first.SignedPreKey.ID, second.SignedPreKey.ID)
}

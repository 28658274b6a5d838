package identity_test

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
	"sigchat/internal/services/identity"
	"sigchat/internal/store"
)

func newService(t *testing.T) (*identity.Service, *store.Records) {
	t.Helper()
	recs := store.NewRecords(store.NewMemoryStore(), 7)
	return identity.New(recs, 7, rand.Reader), recs
}

func TestGenerateIdentity(t *testing.T) {
	ctx := context.Background()
	svc, recs := newService(t)

	id, fp, err := svc.GenerateIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DeviceID(7), id.DeviceID)
	require.NotZero(t, id.RegistrationID)
	require.LessOrEqual(t, id.RegistrationID, domain.RegistrationID(0x3FFF))
	require.Equal(t, crypto.Fingerprint(id.XPub.Slice()), fp)

	pub, err := crypto.PublicFromPrivate(id.XPriv)
	require.NoError(t, err)
	require.Equal(t, id.XPub, pub)

	sig := crypto.Sign(id.EdPriv, []byte("msg"))
	require.True(t, crypto.Verify(id.EdPub, []byte("msg"), sig))

	stored, ok, err := recs.LoadIdentity(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id, stored)

	_, _, err = svc.GenerateIdentity(ctx)
	require.ErrorIs(t, err, identity.ErrIdentityExists)
}

func TestLoadOrCreateIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, ok, err := svc.LoadIdentity(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.FingerprintIdentity(ctx)
	require.ErrorIs(t, err, identity.ErrNoIdentity)

	first, err := svc.LoadOrCreateIdentity(ctx)
	require.NoError(t, err)
	second, err := svc.LoadOrCreateIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	fp, err := svc.FingerprintIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, crypto.Fingerprint(first.XPub.Slice()), fp)
}

func TestValidatePassphrase(t *testing.T) {
	for _, p := range []string{"", "short1!A", "alllowercase123!", "NoDigitsHere!!", "NoSymbols12345"} {
		require.ErrorIs(t, identity.ValidatePassphrase(p), identity.ErrWeakPassphrase, p)
	}
	require.NoError(t, identity.ValidatePassphrase("Correct-Horse-42"))
}

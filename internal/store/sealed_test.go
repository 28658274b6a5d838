package store_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/internal/store"
)

// Cheap parameters keep the tests fast.
var testScrypt = store.ScryptParams{N: 1 << 10, R: 8, P: 1}

func TestSealed_RoundTripAndCiphertextAtRest(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryStore()

	s, err := store.OpenSealed(ctx, inner, "correct horse", testScrypt)
	require.NoError(t, err)

	secret := []byte("ratchet root key material")
	require.NoError(t, s.Set(ctx, "dev/1/session/bob", secret))

	got, ok, err := s.Get(ctx, "dev/1/session/bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, secret, got)

	raw, ok, err := inner.Get(ctx, "dev/1/session/bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, bytes.Contains(raw, secret))

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"dev/1/session/bob"}, keys)
}

func TestSealed_Reopen(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryStore()

	s, err := store.OpenSealed(ctx, inner, "pass", testScrypt)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "dev/1/identity", []byte("id")))

	again, err := store.OpenSealed(ctx, inner, "pass", testScrypt)
	require.NoError(t, err)
	v, ok, err := again.Get(ctx, "dev/1/identity")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "id", string(v))

	_, err = store.OpenSealed(ctx, inner, "wrong", testScrypt)
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestSealed_DetectsSwappedValues(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryStore()

	s, err := store.OpenSealed(ctx, inner, "pass", testScrypt)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "dev/1/session/alice", []byte("alice")))
	require.NoError(t, s.Set(ctx, "dev/1/session/bob", []byte("bob")))

	raw, _, err := inner.Get(ctx, "dev/1/session/alice")
	require.NoError(t, err)
	require.NoError(t, inner.Set(ctx, "dev/1/session/bob", raw))

	_, _, err = s.Get(ctx, "dev/1/session/bob")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestSealed_ReservedKey(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenSealed(ctx, store.NewMemoryStore(), "pass", testScrypt)
	require.NoError(t, err)
	require.ErrorIs(t, s.Set(ctx, "sealed/params", []byte("x")), store.ErrBadKey)
}

package store_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/internal/domain"
	"sigchat/internal/store"
)

// backends returns every backend that can run in this environment.
func backends(t *testing.T) map[string]domain.KeyValueStore {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	out := map[string]domain.KeyValueStore{
		"memory": store.NewMemoryStore(),
		"file":   store.NewFileStore(filepath.Join(dir, "files")),
	}

	b, err := store.OpenBolt(filepath.Join(dir, "kv.bolt"))
	require.NoError(t, err)
	out["bolt"] = b

	if s, err := store.OpenSQLite("file:" + filepath.Join(dir, "kv.db")); err != nil {
		// go-sqlite3 needs cgo.
		t.Logf("skipping sqlite: %v", err)
	} else {
		out["sqlite"] = s
	}

	if addr := os.Getenv("SIGCHAT_TEST_REDIS"); addr != "" {
		r, err := store.OpenRedis(ctx, store.RedisOptions{Addr: addr, Namespace: "sigchat-test-" + strings.ReplaceAll(t.Name(), "/", "-") + ":"})
		require.NoError(t, err)
		out["redis"] = r
	}

	for _, s := range out {
		t.Cleanup(func() { _ = s.Close() })
	}
	return out
}

func TestBackends_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get(ctx, "dev/1/missing")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, kv.Set(ctx, "dev/1/session/bob", []byte("v1")))
			require.NoError(t, kv.Set(ctx, "dev/1/session/bob", []byte("v2")))
			v, ok, err := kv.Get(ctx, "dev/1/session/bob")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "v2", string(v))

			require.NoError(t, kv.Delete(ctx, "dev/1/session/bob"))
			_, ok, err = kv.Get(ctx, "dev/1/session/bob")
			require.NoError(t, err)
			require.False(t, ok)

			// Deleting a missing key is fine.
			require.NoError(t, kv.Delete(ctx, "dev/1/session/bob"))
		})
	}
}

func TestBackends_Keys(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"dev/1/group/b", "dev/1/group/a", "dev/1/session/a", "dev/2/group/c"} {
				require.NoError(t, kv.Set(ctx, k, []byte(k)))
			}
			keys, err := kv.(domain.KeyLister).Keys(ctx, "dev/1/group/")
			require.NoError(t, err)
			require.Equal(t, []string{"dev/1/group/a", "dev/1/group/b"}, keys)
		})
	}
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	kv := store.NewFileStore(t.TempDir())

	for _, k := range []string{"../escape", "dev//x", "dev/./x", "", "dev/x.tmp-1"} {
		require.ErrorIs(t, kv.Set(ctx, k, []byte("x")), store.ErrBadKey, "key %q", k)
	}
}

func TestFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, store.NewFileStore(dir).Set(ctx, "dev/1/identity", []byte("id")))

	v, ok, err := store.NewFileStore(dir).Get(ctx, "dev/1/identity")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "id", string(v))

	info, err := os.Stat(filepath.Join(dir, "dev", "1", "identity.rec"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Close())
	_, _, err := kv.Get(ctx, "k")
	require.ErrorIs(t, err, store.ErrClosed)
	require.ErrorIs(t, kv.Set(ctx, "k", nil), store.ErrClosed)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	home := t.TempDir()

	kv, err := store.Open(ctx, store.Config{Driver: "memory"}, home)
	require.NoError(t, err)
	require.IsType(t, &store.MemoryStore{}, kv)

	kv, err = store.Open(ctx, store.Config{}, home)
	require.NoError(t, err)
	require.IsType(t, &store.FileStore{}, kv)

	kv, err = store.Open(ctx, store.Config{Driver: "bolt", Path: "state.bolt"}, home)
	require.NoError(t, err)
	require.IsType(t, &store.BoltStore{}, kv)
	require.NoError(t, kv.Close())
	require.FileExists(t, filepath.Join(home, "state.bolt"))

	_, err = store.Open(ctx, store.Config{Driver: "etcd"}, home)
	require.ErrorIs(t, err, store.ErrUnknownDriver)
}

package manager_test

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/internal/manager"
)

func TestRegistryDropsIdleEntries(t *testing.T) {
	r := manager.NewRegistry[string, int]()

	e := r.Acquire("unknown")
	require.Equal(t, 1, r.Len())
	e.Release()
	require.Zero(t, r.Len())

	e = r.Acquire("a")
	e.Set(1)
	e.Release()
	require.Equal(t, 1, r.Len())

	e = r.Acquire("a")
	v, ok := e.Get()
	require.True(t, ok)
	require.Equal(t, 1, v)
	e.Clear()
	e.Release()
	require.Zero(t, r.Len())
}

func TestRegistrySerialisesAcrossClear(t *testing.T) {
	r := manager.NewRegistry[string, int]()
	const n = 64
	shared := 0

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := r.Acquire("k")
			v := shared
			runtime.Gosched()
			shared = v + 1
			e.Clear()
			e.Release()
		}()
	}
	wg.Wait()

	require.Equal(t, n, shared)
	require.Zero(t, r.Len())
}

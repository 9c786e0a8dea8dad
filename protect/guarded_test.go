package protect

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuarded_ReadAndMutate(t *testing.T) {
	g := New(10)

	var got int
	g.Read(func(v int) { got = v })
	require.Equal(t, 10, got)

	g.Mutate(func(v *int) { *v += 5 })
	require.Equal(t, 15, g.Load())
}

func TestGuarded_GetAndSet(t *testing.T) {
	g := New("old")

	old := g.GetAndSet("new")
	require.Equal(t, "old", old)
	require.Equal(t, "new", g.Load())
}

func TestGuarded_ReleasesLockOnPanic(t *testing.T) {
	g := New(0)

	require.Panics(t, func() {
		g.Mutate(func(*int) { panic("boom") })
	})

	// The lock must be free again.
	g.Mutate(func(v *int) { *v = 1 })
	require.Equal(t, 1, g.Load())
}

func TestGuarded_ConcurrentMutations(t *testing.T) {
	const workers = 64
	const increments = 100

	g := New(0)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				g.Mutate(func(v *int) { *v++ })
			}
		}()
	}
	wg.Wait()

	require.Equal(t, workers*increments, g.Load())
}

package protect

import "sync"

// Guarded is a mutual-exclusion box around a value of type T. Read and
// Mutate run f while holding an exclusive lock and release it on every
// exit path, including panics.
//
// The lock is not reentrant. Calling back into the same Guarded from
// inside f deadlocks; that is a programming error, not a recoverable
// condition.
type Guarded[T any] struct {
	mu    sync.Mutex
	value T
}

func New[T any](value T) *Guarded[T] {
	return &Guarded[T]{value: value}
}

// Read runs f with the current value under the lock. Results are
// returned by capture in f's closure.
func (g *Guarded[T]) Read(f func(T)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f(g.value)
}

// Mutate runs f with a pointer to the value under the lock.
func (g *Guarded[T]) Mutate(f func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f(&g.value)
}

// GetAndSet atomically replaces the value and returns the previous one.
func (g *Guarded[T]) GetAndSet(value T) T {
	g.mu.Lock()
	defer g.mu.Unlock()

	old := g.value
	g.value = value
	return old
}

// Load returns a copy of the current value.
func (g *Guarded[T]) Load() T {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.value
}

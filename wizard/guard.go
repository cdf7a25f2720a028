package wizard

import "sync/atomic"

// Guard allows at most one in-flight operation of a kind
type Guard struct {
	busy atomic.Bool
}

// TryAcquire claims the guard and reports whether it was free
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the guard
func (g *Guard) Release() {
	g.busy.Store(false)
}

// Busy reports whether an operation currently holds the guard
func (g *Guard) Busy() bool {
	return g.busy.Load()
}

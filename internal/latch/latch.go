// Package latch provides a one-shot completion gate for arbitrating the
// race between a wall-clock timeout and an asynchronous store result.
package latch

import "sync"

// Gate is a thread-safe one-shot latch. The first caller of TryFinish
// wins and gets true; every later caller, on any goroutine, gets false.
// A Gate guards a single operation and is not reusable.
type Gate struct {
	mu       sync.Mutex
	finished bool
}

// New returns an unfinished Gate.
func New() *Gate {
	return &Gate{}
}

// TryFinish claims the gate. It returns true exactly once.
func (g *Gate) TryFinish() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finished {
		return false
	}
	g.finished = true
	return true
}

// Finished reports whether the gate has been claimed.
func (g *Gate) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finished
}

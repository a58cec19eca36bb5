package admission

import "sync/atomic"

// Breaker halts admission after a fatal provider configuration error.
// Every admitted job would fail against a misconfigured backend, so the
// gate rejects up front until an operator resets it.
type Breaker struct {
	open atomic.Bool
}

func (b *Breaker) Trip()      { b.open.Store(true) }
func (b *Breaker) Reset()     { b.open.Store(false) }
func (b *Breaker) Open() bool { return b.open.Load() }

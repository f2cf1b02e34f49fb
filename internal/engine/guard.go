package engine

import "sync/atomic"

// tradeGuard is the per-basket mutual-exclusion flag wrapping every
// state-mutating entrypoint. The executor call made mid-trade runs arbitrary
// external code; if that code calls back into a guarded entrypoint before the
// current call finishes writing back positions, the pre/post balance deltas
// would be corrupted. Entry is a compare-and-swap so a reentrant or concurrent
// call fails immediately instead of deadlocking.
type tradeGuard struct {
	entered atomic.Bool
}

func (g *tradeGuard) enter() error {
	if !g.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// exit clears the guard. Deferred on every path out of a guarded entrypoint.
func (g *tradeGuard) exit() {
	g.entered.Store(false)
}

/*

This file defines the execution boundary between the engine and the outside
world. The engine hands the adapter-built TradeCall to an Executor and judges
the result purely by the balance deltas it observes afterwards.

*/

package exchange

import (
	"context"

	"github.com/basketlabs/rebalancer/internal/adapter"
	"github.com/basketlabs/rebalancer/internal/types"
)

// Executor performs one venue call on behalf of a basket. Implementations may
// run arbitrary external code; the engine's reentrancy guard assumes exactly
// that and blocks any callback into a protected entrypoint.
type Executor interface {
	Execute(ctx context.Context, basket types.BasketID, call adapter.TradeCall) error
}

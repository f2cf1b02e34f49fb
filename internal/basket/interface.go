package basket

import (
	sdkmath "cosmossdk.io/math"

	"github.com/basketlabs/rebalancer/internal/types"
)

// PositionAccessor defines the interface the rebalance engine uses to read and
// edit a basket's position bookkeeping. This abstracts away the specific
// ledger implementation (in-memory, remote custody service, etc.). The engine
// never owns balances or supply; it only reads them and writes updated
// default-position units through EditDefaultPositionUnit.
type PositionAccessor interface {
	// DefaultPositionUnit returns the asset's current real unit: the quantity
	// backing one unit of outstanding basket supply, multiplier applied.
	DefaultPositionUnit(basket types.BasketID, asset types.Asset) (sdkmath.LegacyDec, error)

	// EditDefaultPositionUnit overwrites the asset's real unit. The accessor
	// converts it back to its internal multiplier-relative representation.
	EditDefaultPositionUnit(basket types.BasketID, asset types.Asset, newUnit sdkmath.LegacyDec) error

	// Components lists the basket's component assets in registration order.
	Components(basket types.BasketID) ([]types.Asset, error)

	// TotalSupply returns the basket token's outstanding supply.
	TotalSupply(basket types.BasketID) (sdkmath.Int, error)

	// PositionMultiplier returns the basket's live position multiplier.
	PositionMultiplier(basket types.BasketID) (sdkmath.LegacyDec, error)

	// ExternalPositionModules lists the modules holding external (e.g. debt)
	// positions in the asset. A non-empty list disqualifies the asset from
	// rebalance trading.
	ExternalPositionModules(basket types.BasketID, asset types.Asset) ([]string, error)

	// BalanceOf returns the basket's custody balance of the asset.
	BalanceOf(basket types.BasketID, asset types.Asset) (sdkmath.Int, error)

	// Transfer moves amount of asset out of the basket's custody into the
	// named account. Used by the engine to pay the protocol fee recipient.
	Transfer(basket types.BasketID, asset types.Asset, to string, amount sdkmath.Int) error
}

package engine

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketlabs/rebalancer/internal/fixed"
	"github.com/basketlabs/rebalancer/internal/types"
)

// unitTolerance is the 1-unit rounding slack allowed when judging whether a
// target is met. A target of exactly zero gets no slack: any nonzero floor
// would let an asset's balance drift indefinitely without ever being fully
// sold.
var unitTolerance = sdkmath.LegacySmallestDec()

// targetMet reports whether the asset's current unit equals its normalized
// target within tolerance.
func (e *Engine) targetMet(id types.BasketID, rt *basketRuntime, asset types.Asset) (bool, error) {
	currentUnit, err := e.accessor.DefaultPositionUnit(id, asset)
	if err != nil {
		return false, fmt.Errorf("failed to read position unit: %w", err)
	}
	targetUnit, err := e.normalizedTargetUnit(id, rt, asset)
	if err != nil {
		return false, err
	}
	if targetUnit.IsZero() {
		return currentUnit.IsZero(), nil
	}
	return currentUnit.Sub(targetUnit).Abs().LTE(unitTolerance), nil
}

// needsSell reports whether the asset still sits above its normalized target.
func (e *Engine) needsSell(id types.BasketID, rt *basketRuntime, asset types.Asset) (bool, error) {
	currentUnit, err := e.accessor.DefaultPositionUnit(id, asset)
	if err != nil {
		return false, fmt.Errorf("failed to read position unit: %w", err)
	}
	targetUnit, err := e.normalizedTargetUnit(id, rt, asset)
	if err != nil {
		return false, err
	}
	if targetUnit.IsZero() {
		return !currentUnit.IsZero(), nil
	}
	return currentUnit.GT(targetUnit.Add(unitTolerance)), nil
}

// noComponentsToSell reports whether every tradeable component is at or below
// its target.
func (e *Engine) noComponentsToSell(id types.BasketID, rt *basketRuntime) (bool, error) {
	rt.stateMu.RLock()
	reb := rt.rebalance
	quote := rt.quoteAsset
	rt.stateMu.RUnlock()
	if reb == nil {
		return false, ErrNoActiveRebalance
	}
	for _, c := range reb.Components {
		if c == quote {
			continue
		}
		sell, err := e.needsSell(id, rt, c)
		if err != nil {
			return false, err
		}
		if sell {
			return false, nil
		}
	}
	return true, nil
}

// allTargetsMet reports whether every tradeable component's target is met.
func (e *Engine) allTargetsMet(id types.BasketID, rt *basketRuntime) (bool, error) {
	rt.stateMu.RLock()
	reb := rt.rebalance
	quote := rt.quoteAsset
	rt.stateMu.RUnlock()
	if reb == nil {
		return false, ErrNoActiveRebalance
	}
	for _, c := range reb.Components {
		if c == quote {
			continue
		}
		met, err := e.targetMet(id, rt, c)
		if err != nil {
			return false, err
		}
		if !met {
			return false, nil
		}
	}
	return true, nil
}

// quoteExcessNotional returns how far the quote asset's holdings sit above
// its own target notional, or zero when not in excess.
func (e *Engine) quoteExcessNotional(id types.BasketID, rt *basketRuntime, quote types.Asset, supply sdkmath.Int) (sdkmath.Int, error) {
	currentUnit, err := e.accessor.DefaultPositionUnit(id, quote)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read quote position unit: %w", err)
	}
	targetUnit, err := e.normalizedTargetUnit(id, rt, quote)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	currentNotional := fixed.MulDecInt(currentUnit, supply, fixed.RoundDown)
	targetNotional := fixed.MulDecInt(targetUnit, supply, fixed.RoundUp)
	if currentNotional.LTE(targetNotional) {
		return sdkmath.ZeroInt(), nil
	}
	return currentNotional.Sub(targetNotional), nil
}

// quoteInExcess reports whether quote holdings strictly exceed the quote target.
func (e *Engine) quoteInExcess(id types.BasketID, rt *basketRuntime, quote types.Asset) (bool, error) {
	supply, err := e.accessor.TotalSupply(id)
	if err != nil {
		return false, fmt.Errorf("failed to read total supply: %w", err)
	}
	excess, err := e.quoteExcessNotional(id, rt, quote, supply)
	if err != nil {
		return false, err
	}
	return excess.IsPositive(), nil
}

// RebalanceComponents returns the assets eligible for trading in the active
// rebalance, in declaration order.
func (e *Engine) RebalanceComponents(id types.BasketID) ([]types.Asset, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return nil, err
	}
	rt.stateMu.RLock()
	defer rt.stateMu.RUnlock()
	if rt.rebalance == nil {
		return nil, ErrNoActiveRebalance
	}
	out := make([]types.Asset, len(rt.rebalance.Components))
	copy(out, rt.rebalance.Components)
	return out, nil
}

// RebalanceInfo returns a copy of the basket's active rebalance snapshot.
func (e *Engine) RebalanceInfo(id types.BasketID) (types.RebalanceInfo, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return types.RebalanceInfo{}, err
	}
	rt.stateMu.RLock()
	defer rt.stateMu.RUnlock()
	if rt.rebalance == nil {
		return types.RebalanceInfo{}, ErrNoActiveRebalance
	}
	info := *rt.rebalance
	info.Components = append([]types.Asset(nil), rt.rebalance.Components...)
	return info, nil
}

// ExecutionParams returns a copy of the asset's execution params.
func (e *Engine) ExecutionParams(id types.BasketID, asset types.Asset) (types.ExecutionParams, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return types.ExecutionParams{}, err
	}
	rt.stateMu.RLock()
	defer rt.stateMu.RUnlock()
	p, ok := rt.params[asset]
	if !ok {
		return types.ExecutionParams{}, fmt.Errorf("%w: %s", ErrUnknownComponent, asset)
	}
	return *p, nil
}

// NormalizedTargetUnit exposes the multiplier-adjusted target for an asset.
func (e *Engine) NormalizedTargetUnit(id types.BasketID, asset types.Asset) (sdkmath.LegacyDec, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return sdkmath.LegacyZeroDec(), err
	}
	return e.normalizedTargetUnit(id, rt, asset)
}

// PlanTrade previews the direction and fixed quantity the next Trade call on
// the asset would use, without executing anything.
func (e *Engine) PlanTrade(id types.BasketID, asset types.Asset) (isSelling bool, size sdkmath.Int, err error) {
	rt, err := e.runtime(id)
	if err != nil {
		return false, sdkmath.ZeroInt(), err
	}
	rt.stateMu.RLock()
	quote := rt.quoteAsset
	rt.stateMu.RUnlock()
	if asset == quote {
		return false, sdkmath.ZeroInt(), ErrQuoteAssetDirect
	}
	plan, err := e.planTrade(id, rt, asset)
	if err != nil {
		return false, sdkmath.ZeroInt(), err
	}
	return plan.IsSelling, plan.FixedQuantity, nil
}

// QuoteAsset returns the basket's configured quote asset.
func (e *Engine) QuoteAsset(id types.BasketID) (types.Asset, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return "", err
	}
	rt.stateMu.RLock()
	defer rt.stateMu.RUnlock()
	return rt.quoteAsset, nil
}

// Baskets lists the baskets registered with the engine.
func (e *Engine) Baskets() []types.BasketID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.BasketID, 0, len(e.baskets))
	for id := range e.baskets {
		out = append(out, id)
	}
	return out
}

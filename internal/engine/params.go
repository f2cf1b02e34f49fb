package engine

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/basketlabs/rebalancer/internal/fixed"
	"github.com/basketlabs/rebalancer/internal/types"
)

// maxRaiseTargetPercentage bounds SetRaiseTargetPercentage. The raise
// mechanism compounds on repeated calls, so an unbounded percentage could
// inflate targets without limit.
var maxRaiseTargetPercentage = sdkmath.LegacyNewDecWithPrec(5, 1) // 0.5

func (rt *basketRuntime) requireManager(caller Caller) error {
	if caller.Account != rt.manager {
		return ErrNotManager
	}
	return nil
}

// SetTradeMaximums writes the per-trade notional ceiling for a batch of
// assets. Manager only.
func (e *Engine) SetTradeMaximums(caller Caller, id types.BasketID, assets []types.Asset, sizes []sdkmath.Int) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if err := rt.requireManager(caller); err != nil {
		return err
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	if len(assets) != len(sizes) {
		return fmt.Errorf("%w: %d assets, %d sizes", ErrArrayLengthMismatch, len(assets), len(sizes))
	}
	for i, s := range sizes {
		if err := fixed.ValidateInt(fmt.Sprintf("maxTradeSize[%s]", assets[i]), s); err != nil {
			return err
		}
	}

	rt.stateMu.Lock()
	for i, a := range assets {
		p, _ := rt.paramsFor(a, true)
		p.MaxTradeSize = sizes[i]
		e.logger.Info().
			Str("basket", string(id)).
			Str("asset", string(a)).
			Str("maxTradeSize", sizes[i].String()).
			Msg("Trade maximum updated")
	}
	rt.stateMu.Unlock()
	return nil
}

// SetExchanges binds execution adapters, by registry name, to a batch of
// assets. Manager only. The binding is validated against the registry so a
// typo fails here rather than at trade time.
func (e *Engine) SetExchanges(caller Caller, id types.BasketID, assets []types.Asset, names []string) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if err := rt.requireManager(caller); err != nil {
		return err
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	if len(assets) != len(names) {
		return fmt.Errorf("%w: %d assets, %d names", ErrArrayLengthMismatch, len(assets), len(names))
	}
	for _, n := range names {
		if _, err := e.registry.Get(n); err != nil {
			return err
		}
	}

	rt.stateMu.Lock()
	for i, a := range assets {
		p, _ := rt.paramsFor(a, true)
		p.ExchangeName = names[i]
		e.logger.Info().
			Str("basket", string(id)).
			Str("asset", string(a)).
			Str("exchange", names[i]).
			Msg("Exchange binding updated")
	}
	rt.stateMu.Unlock()
	return nil
}

// SetExchangeData writes the opaque adapter configuration for a batch of
// assets. Manager only.
func (e *Engine) SetExchangeData(caller Caller, id types.BasketID, assets []types.Asset, data [][]byte) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if err := rt.requireManager(caller); err != nil {
		return err
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	if len(assets) != len(data) {
		return fmt.Errorf("%w: %d assets, %d data blobs", ErrArrayLengthMismatch, len(assets), len(data))
	}

	rt.stateMu.Lock()
	for i, a := range assets {
		p, _ := rt.paramsFor(a, true)
		p.ExchangeData = data[i]
	}
	rt.stateMu.Unlock()
	return nil
}

// SetCoolOffPeriods writes the minimum inter-trade gap for a batch of assets.
// Manager only.
func (e *Engine) SetCoolOffPeriods(caller Caller, id types.BasketID, assets []types.Asset, periods []time.Duration) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if err := rt.requireManager(caller); err != nil {
		return err
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	if len(assets) != len(periods) {
		return fmt.Errorf("%w: %d assets, %d periods", ErrArrayLengthMismatch, len(assets), len(periods))
	}
	for i, p := range periods {
		if p < 0 {
			return fmt.Errorf("%w: negative cool-off for %s", ErrInvalidQuantity, assets[i])
		}
	}

	rt.stateMu.Lock()
	for i, a := range assets {
		p, _ := rt.paramsFor(a, true)
		p.CoolOffPeriod = periods[i]
		e.logger.Info().
			Str("basket", string(id)).
			Str("asset", string(a)).
			Dur("coolOffPeriod", periods[i]).
			Msg("Cool-off period updated")
	}
	rt.stateMu.Unlock()
	return nil
}

// SetRaiseTargetPercentage sets the uniform bump applied by RaiseAssetTargets.
// Manager only. Must be positive and at most 0.5.
func (e *Engine) SetRaiseTargetPercentage(caller Caller, id types.BasketID, pct sdkmath.LegacyDec) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if err := rt.requireManager(caller); err != nil {
		return err
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	if err := fixed.ValidateDec("raiseTargetPercentage", pct); err != nil {
		return err
	}
	if !pct.IsPositive() || pct.GT(maxRaiseTargetPercentage) {
		return fmt.Errorf("%w: raise percentage %s not in (0, %s]", ErrInvalidPercentage, pct, maxRaiseTargetPercentage)
	}

	rt.stateMu.Lock()
	if rt.rebalance == nil {
		rt.stateMu.Unlock()
		return ErrNoActiveRebalance
	}
	rt.rebalance.RaiseTargetPercentage = pct
	rt.stateMu.Unlock()

	e.logger.Info().
		Str("basket", string(id)).
		Str("raiseTargetPercentage", pct.String()).
		Msg("Raise target percentage updated")
	return nil
}

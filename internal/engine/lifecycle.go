package engine

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/basketlabs/rebalancer/internal/fixed"
	"github.com/basketlabs/rebalancer/internal/types"
)

// StartRebalance declares a new target allocation for the basket. Manager
// only. The merged component list is the basket's current components (whose
// targets arrive in oldComponentTargets, index-aligned with the accessor's
// component order) plus newComponents (index-aligned with newTargets). The
// call fully replaces any in-flight rebalance's target set; nothing merges
// with previous targets. multiplierSnapshot is the position multiplier the
// targets were computed against; normalized targets scale by the ratio of the
// live multiplier to this snapshot, which keeps them correct while fee
// minting dilutes supply mid-rebalance.
func (e *Engine) StartRebalance(
	caller Caller,
	id types.BasketID,
	newComponents []types.Asset,
	newTargets []sdkmath.LegacyDec,
	oldComponentTargets []sdkmath.LegacyDec,
	multiplierSnapshot sdkmath.LegacyDec,
) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if caller.Account != rt.manager {
		return ErrNotManager
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	if len(newComponents) != len(newTargets) {
		return fmt.Errorf("%w: %d components, %d targets", ErrArrayLengthMismatch, len(newComponents), len(newTargets))
	}
	if err := fixed.ValidateDec("multiplierSnapshot", multiplierSnapshot); err != nil {
		return err
	}
	if multiplierSnapshot.IsZero() {
		return fmt.Errorf("multiplier snapshot must be positive")
	}

	currentComponents, err := e.accessor.Components(id)
	if err != nil {
		return fmt.Errorf("failed to read basket components: %w", err)
	}
	if len(oldComponentTargets) != len(currentComponents) {
		return fmt.Errorf("%w: %d current components, %d old targets", ErrArrayLengthMismatch, len(currentComponents), len(oldComponentTargets))
	}

	// Merge, rejecting duplicates both across and within the new list.
	seen := make(map[types.Asset]bool, len(currentComponents)+len(newComponents))
	merged := make([]types.Asset, 0, len(currentComponents)+len(newComponents))
	targets := make([]sdkmath.LegacyDec, 0, cap(merged))
	for i, c := range currentComponents {
		if seen[c] {
			return fmt.Errorf("%w: %s", ErrDuplicateComponent, c)
		}
		seen[c] = true
		merged = append(merged, c)
		targets = append(targets, oldComponentTargets[i])
	}
	for i, c := range newComponents {
		if seen[c] {
			return fmt.Errorf("%w: %s", ErrDuplicateComponent, c)
		}
		seen[c] = true
		merged = append(merged, c)
		targets = append(targets, newTargets[i])
	}

	for i, c := range merged {
		if err := fixed.ValidateDec(fmt.Sprintf("target[%s]", c), targets[i]); err != nil {
			return err
		}
		modules, err := e.accessor.ExternalPositionModules(id, c)
		if err != nil {
			return fmt.Errorf("failed to read external positions for %s: %w", c, err)
		}
		if len(modules) > 0 {
			return fmt.Errorf("%w: %s held by %v", ErrExternalPositions, c, modules)
		}
	}

	now := e.now()
	updates := make([]types.TargetUpdate, 0, len(merged))

	rt.stateMu.Lock()
	raisePct := sdkmath.LegacyZeroDec()
	if rt.rebalance != nil && !rt.rebalance.RaiseTargetPercentage.IsNil() {
		raisePct = rt.rebalance.RaiseTargetPercentage
	}
	for i, c := range merged {
		p, _ := rt.paramsFor(c, true)
		p.TargetUnit = targets[i]
		updates = append(updates, types.TargetUpdate{
			Basket:     id,
			Asset:      c,
			TargetUnit: targets[i],
			Timestamp:  now,
		})
	}
	rt.rebalance = &types.RebalanceInfo{
		PositionMultiplierAtStart: multiplierSnapshot,
		RaiseTargetPercentage:     raisePct,
		Components:                merged,
	}
	rt.stateMu.Unlock()

	rec := types.RebalanceRecord{
		ID:                 uuid.New().String(),
		Basket:             id,
		Kind:               types.RebalanceStarted,
		Components:         merged,
		PositionMultiplier: multiplierSnapshot,
		Timestamp:          now,
	}
	e.saveTargets(updates)
	e.saveRebalance(rec)

	e.logger.Info().
		Str("basket", string(id)).
		Int("components", len(merged)).
		Str("multiplierSnapshot", multiplierSnapshot.String()).
		Msg("Rebalance started")
	return nil
}

// RaiseAssetTargets uniformly raises every normalized target once the
// rebalance has converged but quote-asset float remains. It deflates the
// stored multiplier snapshot by 1/(1+raiseTargetPercentage); normalized
// targets are inversely proportional to the snapshot, so they all rise by the
// configured percentage. Repeatable whenever its preconditions hold again.
func (e *Engine) RaiseAssetTargets(caller Caller, id types.BasketID) error {
	rt, err := e.runtime(id)
	if err != nil {
		return err
	}
	if err := e.checkTradePermission(rt, caller); err != nil {
		return err
	}
	if err := rt.guard.enter(); err != nil {
		return err
	}
	defer rt.guard.exit()

	rt.stateMu.RLock()
	reb := rt.rebalance
	quote := rt.quoteAsset
	rt.stateMu.RUnlock()
	if reb == nil {
		return ErrNoActiveRebalance
	}
	if reb.RaiseTargetPercentage.IsNil() || !reb.RaiseTargetPercentage.IsPositive() {
		return ErrRaisePercentageUnset
	}

	met, err := e.allTargetsMet(id, rt)
	if err != nil {
		return err
	}
	if !met {
		return ErrTargetsNotMet
	}
	excess, err := e.quoteInExcess(id, rt, quote)
	if err != nil {
		return err
	}
	if !excess {
		return ErrQuoteNotInExcess
	}

	divisor := sdkmath.LegacyOneDec().Add(reb.RaiseTargetPercentage)
	newSnapshot, err := fixed.QuoDec(reb.PositionMultiplierAtStart, divisor, fixed.RoundDown)
	if err != nil {
		return err
	}

	rt.stateMu.Lock()
	rt.rebalance.PositionMultiplierAtStart = newSnapshot
	components := append([]types.Asset(nil), rt.rebalance.Components...)
	rt.stateMu.Unlock()

	now := e.now()
	e.saveRebalance(types.RebalanceRecord{
		ID:                 uuid.New().String(),
		Basket:             id,
		Kind:               types.TargetsRaised,
		Components:         components,
		PositionMultiplier: newSnapshot,
		Timestamp:          now,
	})

	e.logger.Info().
		Str("basket", string(id)).
		Str("newMultiplierSnapshot", newSnapshot.String()).
		Str("raisePercentage", reb.RaiseTargetPercentage.String()).
		Msg("Asset targets raised")
	return nil
}

package engine

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/basketlabs/rebalancer/internal/adapter"
	"github.com/basketlabs/rebalancer/internal/fixed"
	"github.com/basketlabs/rebalancer/internal/types"
)

// tradePlan is the ephemeral trade context: computed fresh for each call,
// used to drive one venue call and the post-trade delta math, then discarded.
type tradePlan struct {
	IsSelling       bool
	FixedQuantity   sdkmath.Int // asset notional sold (sell) or bought (buy)
	CurrentUnit     sdkmath.LegacyDec
	TargetUnit      sdkmath.LegacyDec
	CurrentNotional sdkmath.Int
	TargetNotional  sdkmath.Int
	Supply          sdkmath.Int
}

// normalizedTargetUnit applies the multiplier ratio to the stored target:
// storedTarget * currentMultiplier / multiplierAtStart. Both steps round
// down; the buy-side notional conversion rounds up later, so targets are
// never under-funded.
func (e *Engine) normalizedTargetUnit(id types.BasketID, rt *basketRuntime, asset types.Asset) (sdkmath.LegacyDec, error) {
	rt.stateMu.RLock()
	reb := rt.rebalance
	p, ok := rt.params[asset]
	rt.stateMu.RUnlock()
	if reb == nil {
		return sdkmath.LegacyZeroDec(), ErrNoActiveRebalance
	}
	if !ok {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %s", ErrUnknownComponent, asset)
	}
	multiplier, err := e.accessor.PositionMultiplier(id)
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("failed to read position multiplier: %w", err)
	}
	scaled := fixed.MulDec(p.TargetUnit, multiplier, fixed.RoundDown)
	return fixed.QuoDec(scaled, reb.PositionMultiplierAtStart, fixed.RoundDown)
}

// planTrade computes direction and size for one asset per the trade-size
// algorithm: floor the current notional, ceil the target notional, cap the
// gap by the asset's max trade size. When buying, the gap is grossed up by
// 1/(1-feeRate) first so the asset still reaches target after the protocol
// fee comes out of the received amount.
func (e *Engine) planTrade(id types.BasketID, rt *basketRuntime, asset types.Asset) (tradePlan, error) {
	var plan tradePlan

	supply, err := e.accessor.TotalSupply(id)
	if err != nil {
		return plan, fmt.Errorf("failed to read total supply: %w", err)
	}
	if !supply.IsPositive() {
		return plan, fmt.Errorf("basket %s has no outstanding supply", id)
	}
	currentUnit, err := e.accessor.DefaultPositionUnit(id, asset)
	if err != nil {
		return plan, fmt.Errorf("failed to read position unit: %w", err)
	}
	targetUnit, err := e.normalizedTargetUnit(id, rt, asset)
	if err != nil {
		return plan, err
	}

	if currentUnit.Equal(targetUnit) {
		return plan, fmt.Errorf("%w: %s", ErrTargetAlreadyMet, asset)
	}

	currentNotional := fixed.MulDecInt(currentUnit, supply, fixed.RoundDown)
	targetNotional := fixed.MulDecInt(targetUnit, supply, fixed.RoundUp)
	// Floor and ceil can still meet when the units differ by less than one
	// notional unit; a zero-size trade is never issued.
	if currentNotional.Equal(targetNotional) {
		return plan, fmt.Errorf("%w: %s", ErrTargetAlreadyMet, asset)
	}

	rt.stateMu.RLock()
	maxTradeSize := rt.params[asset].MaxTradeSize
	rt.stateMu.RUnlock()

	isSelling := targetNotional.LT(currentNotional)
	gap := currentNotional.Sub(targetNotional).Abs()
	size := gap
	if !isSelling {
		// Gross up so the post-fee received amount still closes the gap.
		grossGap, err := fixed.QuoDec(
			sdkmath.LegacyNewDecFromInt(gap),
			sdkmath.LegacyOneDec().Sub(e.feeRate),
			fixed.RoundUp,
		)
		if err != nil {
			return plan, err
		}
		size = grossGap.Ceil().TruncateInt()
	}
	size = sdkmath.MinInt(maxTradeSize, size)
	if !size.IsPositive() {
		return plan, fmt.Errorf("%w: computed trade size for %s is zero", ErrInvalidQuantity, asset)
	}

	plan = tradePlan{
		IsSelling:       isSelling,
		FixedQuantity:   size,
		CurrentUnit:     currentUnit,
		TargetUnit:      targetUnit,
		CurrentNotional: currentNotional,
		TargetNotional:  targetNotional,
		Supply:          supply,
	}
	return plan, nil
}

// checkCoolOff enforces lastTradeTimestamp + coolOffPeriod <= now.
func (e *Engine) checkCoolOff(rt *basketRuntime, asset types.Asset) error {
	rt.stateMu.RLock()
	p, ok := rt.params[asset]
	rt.stateMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, asset)
	}
	if p.LastTradeTimestamp.IsZero() {
		return nil
	}
	ready := p.LastTradeTimestamp.Add(p.CoolOffPeriod)
	if e.now().Before(ready) {
		return fmt.Errorf("%w: %s ready at %s", ErrCoolOffActive, asset, ready.Format(time.RFC3339))
	}
	return nil
}

func (e *Engine) validateTradePreconditions(rt *basketRuntime, caller Caller, asset types.Asset) error {
	if err := e.checkTradePermission(rt, caller); err != nil {
		return err
	}
	rt.stateMu.RLock()
	quote := rt.quoteAsset
	reb := rt.rebalance
	rt.stateMu.RUnlock()
	if asset == quote {
		return ErrQuoteAssetDirect
	}
	if reb == nil {
		return ErrNoActiveRebalance
	}
	if !reb.InRebalance(asset) {
		return fmt.Errorf("%w: %s", ErrAssetNotEligible, asset)
	}
	return e.checkCoolOff(rt, asset)
}

// Trade moves one asset toward its normalized target. If the asset sits
// above target the basket sells a fixed quantity of it and must receive at
// least floatingLimit of the quote asset; below target, the basket spends at
// most min(floatingLimit, quote balance) of the quote asset for a fixed
// quantity of the asset. The protocol fee always comes out of the receive
// side. On success both legs' position units are recomputed from the new
// balances and the asset's cool-off clock restarts.
func (e *Engine) Trade(ctx context.Context, caller Caller, id types.BasketID, asset types.Asset, floatingLimit sdkmath.Int) (*types.TradeRecord, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return nil, err
	}
	if err := rt.guard.enter(); err != nil {
		return nil, err
	}
	defer rt.guard.exit()

	if err := e.validateTradePreconditions(rt, caller, asset); err != nil {
		return nil, err
	}
	if err := fixed.ValidateInt("floatingLimit", floatingLimit); err != nil {
		return nil, err
	}

	plan, err := e.planTrade(id, rt, asset)
	if err != nil {
		return nil, err
	}

	rt.stateMu.RLock()
	quote := rt.quoteAsset
	exchangeName := rt.params[asset].ExchangeName
	exchangeData := rt.params[asset].ExchangeData
	rt.stateMu.RUnlock()

	var sendAsset, receiveAsset types.Asset
	var sendQty, receiveQty sdkmath.Int
	if plan.IsSelling {
		sendAsset, receiveAsset = asset, quote
		sendQty = plan.FixedQuantity // exact input
		receiveQty = floatingLimit   // minimum acceptable
	} else {
		if !floatingLimit.IsPositive() {
			return nil, fmt.Errorf("%w: buy requires a positive spend ceiling", ErrInvalidQuantity)
		}
		quoteBalance, err := e.accessor.BalanceOf(id, quote)
		if err != nil {
			return nil, fmt.Errorf("failed to read quote balance: %w", err)
		}
		sendAsset, receiveAsset = quote, asset
		sendQty = sdkmath.MinInt(floatingLimit, quoteBalance) // spend ceiling
		receiveQty = plan.FixedQuantity                       // exact output
	}

	rec, err := e.executeTrade(ctx, rt, id, executionLeg{
		Caller:          caller,
		SendAsset:       sendAsset,
		ReceiveAsset:    receiveAsset,
		SendQuantity:    sendQty,
		ReceiveQuantity: receiveQty,
		SendFixed:       plan.IsSelling,
		ExchangeName:    exchangeName,
		ExchangeData:    exchangeData,
		FloorReceive:    receiveQty,
		Supply:          plan.Supply,
		StampAsset:      asset,
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// TradeRemainingQuote releases leftover quote float into one component once
// nothing remains to sell. The quote asset becomes the fixed-size sold side
// and the component the floating receive side. Two extra guards apply after
// the fill: the gross received amount must stay strictly under the
// component's max trade size, and the component must not overshoot its target.
func (e *Engine) TradeRemainingQuote(ctx context.Context, caller Caller, id types.BasketID, asset types.Asset, minReceive sdkmath.Int) (*types.TradeRecord, error) {
	rt, err := e.runtime(id)
	if err != nil {
		return nil, err
	}
	if err := rt.guard.enter(); err != nil {
		return nil, err
	}
	defer rt.guard.exit()

	if err := e.validateTradePreconditions(rt, caller, asset); err != nil {
		return nil, err
	}
	if err := fixed.ValidateInt("minReceive", minReceive); err != nil {
		return nil, err
	}

	noSells, err := e.noComponentsToSell(id, rt)
	if err != nil {
		return nil, err
	}
	if !noSells {
		return nil, ErrSellPhaseActive
	}

	rt.stateMu.RLock()
	quote := rt.quoteAsset
	exchangeName := rt.params[asset].ExchangeName
	exchangeData := rt.params[asset].ExchangeData
	maxTradeSize := rt.params[asset].MaxTradeSize
	rt.stateMu.RUnlock()

	supply, err := e.accessor.TotalSupply(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read total supply: %w", err)
	}
	excess, err := e.quoteExcessNotional(id, rt, quote, supply)
	if err != nil {
		return nil, err
	}
	if !excess.IsPositive() {
		return nil, ErrQuoteNotInExcess
	}

	targetUnit, err := e.normalizedTargetUnit(id, rt, asset)
	if err != nil {
		return nil, err
	}
	targetNotional := fixed.MulDecInt(targetUnit, supply, fixed.RoundUp)

	rec, err := e.executeTrade(ctx, rt, id, executionLeg{
		Caller:          caller,
		SendAsset:       quote,
		ReceiveAsset:    asset,
		SendQuantity:    excess, // exact input: the whole remaining float
		ReceiveQuantity: minReceive,
		SendFixed:       true,
		ExchangeName:    exchangeName,
		ExchangeData:    exchangeData,
		FloorReceive:    minReceive,
		Supply:          supply,
		StampAsset:      asset,
		MaxGrossReceive: maxTradeSize,
		CapNotional:     targetNotional,
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// executionLeg carries one venue call's parameters through executeTrade.
type executionLeg struct {
	Caller          Caller
	SendAsset       types.Asset
	ReceiveAsset    types.Asset
	SendQuantity    sdkmath.Int
	ReceiveQuantity sdkmath.Int
	SendFixed       bool
	ExchangeName    string
	ExchangeData    []byte
	FloorReceive    sdkmath.Int // slippage floor on the receive side
	Supply          sdkmath.Int
	StampAsset      types.Asset // asset whose cool-off clock restarts
	MaxGrossReceive sdkmath.Int // optional: gross receive ceiling (nil = none)
	CapNotional     sdkmath.Int // optional: receive asset's post-trade notional cap (nil = none)
}

// executeTrade snapshots balances, invokes the bound adapter's venue call,
// validates the observed deltas, charges the protocol fee from the receive
// side and writes both legs' recomputed units back through the accessor.
// Engine state is only written after every check passes.
func (e *Engine) executeTrade(ctx context.Context, rt *basketRuntime, id types.BasketID, leg executionLeg) (*types.TradeRecord, error) {
	venue, err := e.registry.Get(leg.ExchangeName)
	if err != nil {
		return nil, err
	}

	preSend, err := e.accessor.BalanceOf(id, leg.SendAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot send balance: %w", err)
	}
	preReceive, err := e.accessor.BalanceOf(id, leg.ReceiveAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot receive balance: %w", err)
	}

	call, err := venue.TradeCalldata(adapter.TradeRequest{
		SendAsset:       leg.SendAsset,
		ReceiveAsset:    leg.ReceiveAsset,
		Basket:          id,
		SendFixed:       leg.SendFixed,
		SendQuantity:    leg.SendQuantity,
		ReceiveQuantity: leg.ReceiveQuantity,
		Data:            leg.ExchangeData,
	})
	if err != nil {
		return nil, fmt.Errorf("adapter %s rejected trade: %w", leg.ExchangeName, err)
	}

	if err := e.executor.Execute(ctx, id, call); err != nil {
		return nil, fmt.Errorf("venue call failed: %w", err)
	}

	postSend, err := e.accessor.BalanceOf(id, leg.SendAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to read post-trade send balance: %w", err)
	}
	postReceive, err := e.accessor.BalanceOf(id, leg.ReceiveAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to read post-trade receive balance: %w", err)
	}

	netSend := preSend.Sub(postSend)
	grossReceive := postReceive.Sub(preReceive)
	if grossReceive.LT(leg.FloorReceive) {
		return nil, fmt.Errorf("%w: received %s, floor %s", ErrSlippageTooHigh, grossReceive, leg.FloorReceive)
	}
	if !leg.SendFixed {
		// Exact-output: the venue must deliver the full fixed quantity and
		// stay within the spend ceiling.
		if grossReceive.LT(leg.ReceiveQuantity) {
			return nil, fmt.Errorf("%w: received %s of fixed %s", ErrSlippageTooHigh, grossReceive, leg.ReceiveQuantity)
		}
		if netSend.GT(leg.SendQuantity) {
			return nil, fmt.Errorf("%w: spent %s over ceiling %s", ErrSlippageTooHigh, netSend, leg.SendQuantity)
		}
	}
	if !leg.MaxGrossReceive.IsNil() && grossReceive.GTE(leg.MaxGrossReceive) {
		return nil, fmt.Errorf("%w: received %s, max %s", ErrTradeSizeExceeded, grossReceive, leg.MaxGrossReceive)
	}

	fee := fixed.MulDecInt(e.feeRate, grossReceive, fixed.RoundDown)
	netReceive := grossReceive.Sub(fee)

	if !leg.CapNotional.IsNil() {
		finalNotional := postReceive.Sub(fee)
		if finalNotional.GT(leg.CapNotional) {
			return nil, fmt.Errorf("%w: post-trade notional %s, target %s", ErrTargetOvershoot, finalNotional, leg.CapNotional)
		}
	}

	if fee.IsPositive() {
		if err := e.accessor.Transfer(id, leg.ReceiveAsset, e.feeRecipient, fee); err != nil {
			return nil, fmt.Errorf("failed to pay protocol fee: %w", err)
		}
	}

	// Recompute both legs' units from settled balances; always floor so the
	// basket never claims more backing than it holds.
	finalSend, err := e.accessor.BalanceOf(id, leg.SendAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to read settled send balance: %w", err)
	}
	finalReceive, err := e.accessor.BalanceOf(id, leg.ReceiveAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to read settled receive balance: %w", err)
	}
	newSendUnit, err := fixed.QuoIntInt(finalSend, leg.Supply, fixed.RoundDown)
	if err != nil {
		return nil, err
	}
	newReceiveUnit, err := fixed.QuoIntInt(finalReceive, leg.Supply, fixed.RoundDown)
	if err != nil {
		return nil, err
	}
	if err := e.accessor.EditDefaultPositionUnit(id, leg.SendAsset, newSendUnit); err != nil {
		return nil, fmt.Errorf("failed to write send position unit: %w", err)
	}
	if err := e.accessor.EditDefaultPositionUnit(id, leg.ReceiveAsset, newReceiveUnit); err != nil {
		return nil, fmt.Errorf("failed to write receive position unit: %w", err)
	}

	now := e.now()
	rt.stateMu.Lock()
	if p, ok := rt.params[leg.StampAsset]; ok {
		p.LastTradeTimestamp = now
	}
	rt.stateMu.Unlock()

	rec := types.TradeRecord{
		ID:               uuid.New().String(),
		Basket:           id,
		SendAsset:        leg.SendAsset,
		ReceiveAsset:     leg.ReceiveAsset,
		ExchangeName:     leg.ExchangeName,
		Executor:         leg.Caller.Account,
		NetSendAmount:    netSend,
		NetReceiveAmount: netReceive,
		ProtocolFee:      fee,
		Timestamp:        now,
	}
	e.saveTrade(rec)

	e.logger.Info().
		Str("basket", string(id)).
		Str("sendAsset", string(leg.SendAsset)).
		Str("receiveAsset", string(leg.ReceiveAsset)).
		Str("exchange", leg.ExchangeName).
		Str("executor", leg.Caller.Account).
		Str("netSend", netSend.String()).
		Str("netReceive", netReceive.String()).
		Str("protocolFee", fee.String()).
		Msg("Trade executed")
	return &rec, nil
}

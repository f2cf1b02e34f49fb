/*

This file contains the per-basket rebalancing state: execution parameters for
each component asset, the active rebalance snapshot, and trade permissions.
These are the structures the engine owns and mutates.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// ExecutionParams holds the per-(basket, asset) trading configuration.
// TargetUnit is meaningless on its own: it must always be read together with
// the ratio of the current position multiplier to the multiplier snapshotted
// when the target was written (see RebalanceInfo).
type ExecutionParams struct {
	TargetUnit         sdkmath.LegacyDec `json:"target_unit"`             // desired units per outstanding supply
	MaxTradeSize       sdkmath.Int       `json:"max_trade_size"`          // ceiling on notional moved per trade
	CoolOffPeriod      time.Duration     `json:"cool_off_period"`         // minimum gap between trades of this asset
	LastTradeTimestamp time.Time         `json:"last_trade_timestamp"`    // zero until first trade
	ExchangeName       string            `json:"exchange_name"`           // bound execution adapter
	ExchangeData       []byte            `json:"exchange_data,omitempty"` // opaque adapter configuration
}

// RebalanceInfo is the singleton "current rebalance" snapshot for a basket.
type RebalanceInfo struct {
	PositionMultiplierAtStart sdkmath.LegacyDec `json:"position_multiplier_at_start"`
	RaiseTargetPercentage     sdkmath.LegacyDec `json:"raise_target_percentage"`
	Components                []Asset           `json:"components"` // assets eligible for trading, in declaration order
}

// InRebalance reports whether the asset is a member of the active rebalance set.
func (r *RebalanceInfo) InRebalance(asset Asset) bool {
	for _, c := range r.Components {
		if c == asset {
			return true
		}
	}
	return false
}

// TradePermissions is the per-basket trader allow-list. Exactly one of
// AnyoneTrade or an Allowed entry grants authorization for a given caller.
// History is append-only so stale allow-list entries can be swept later.
type TradePermissions struct {
	AnyoneTrade bool            `json:"anyone_trade"`
	Allowed     map[string]bool `json:"allowed"`
	History     []string        `json:"history"`
}

// NewTradePermissions returns an empty permission set (allow-list mode).
func NewTradePermissions() *TradePermissions {
	return &TradePermissions{Allowed: make(map[string]bool)}
}

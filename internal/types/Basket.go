/*

This file contains the core identity types for baskets and their component
assets, shared by every other package in the engine.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// BasketID uniquely identifies a managed basket token.
type BasketID string

// Asset identifies one component asset of a basket (e.g. "wbtc", "weth").
type Asset string

// ComponentPosition is a read-only view of one asset's backing position,
// as reported by the position accessor.
type ComponentPosition struct {
	Asset    Asset             `json:"asset"`
	Unit     sdkmath.LegacyDec `json:"unit"`    // real units per outstanding supply
	Balance  sdkmath.Int       `json:"balance"` // absolute custody balance
	External []string          `json:"external_modules,omitempty"`
}

// BasketSummary is the aggregate view served by the web API.
type BasketSummary struct {
	ID                 BasketID            `json:"id"`
	QuoteAsset         Asset               `json:"quote_asset"`
	TotalSupply        sdkmath.Int         `json:"total_supply"`
	PositionMultiplier sdkmath.LegacyDec   `json:"position_multiplier"`
	Components         []ComponentPosition `json:"components"`
}

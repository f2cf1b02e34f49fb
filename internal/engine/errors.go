package engine

import "errors"

// All engine failures are synchronous and abort the whole call; callers
// (off-chain schedulers, bots) retry later once the failing precondition
// changes. Sentinels are exported so callers can branch with errors.Is.
var (
	// Authorization errors
	ErrNotManager       = errors.New("caller is not the basket manager")
	ErrNotAllowedTrader = errors.New("caller is not an allowed trader")
	ErrCallerNotDirect  = errors.New("unrestricted trading requires a direct session caller")

	// State errors
	ErrBasketNotInitialized = errors.New("basket is not initialized in the engine")
	ErrNoActiveRebalance    = errors.New("no rebalance has been started")
	ErrAssetNotEligible     = errors.New("asset is not part of the active rebalance set")
	ErrExternalPositions    = errors.New("asset carries external positions and cannot be rebalanced")
	ErrTargetAlreadyMet     = errors.New("target already met")
	ErrCoolOffActive        = errors.New("cool-off period has not elapsed")
	ErrQuoteAssetDirect     = errors.New("quote asset cannot be traded directly")
	ErrQuoteNotInExcess     = errors.New("quote asset holdings do not exceed target")
	ErrSellPhaseActive      = errors.New("components still need selling")
	ErrTargetsNotMet        = errors.New("not all component targets are met")
	ErrRaisePercentageUnset = errors.New("raise target percentage is not set")

	// Execution errors
	ErrSlippageTooHigh    = errors.New("received quantity is below the floating limit")
	ErrTradeSizeExceeded  = errors.New("received quantity exceeds the asset's maximum trade size")
	ErrTargetOvershoot    = errors.New("trade would overshoot the asset's target")
	ErrReentrantCall      = errors.New("reentrant call into a guarded entrypoint")

	// Input errors
	ErrArrayLengthMismatch = errors.New("array arguments must have equal lengths")
	ErrDuplicateComponent  = errors.New("duplicate component in merged list")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidPercentage   = errors.New("percentage out of range")
	ErrUnknownComponent    = errors.New("component has no execution params")
)

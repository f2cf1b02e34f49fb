/*

This file defines the execution adapter boundary. An adapter translates a
generic trade request into the call format of a specific external exchange;
the engine only depends on this contract and never on a concrete venue.

*/

package adapter

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/basketlabs/rebalancer/internal/types"
)

var (
	ErrAdapterUnknown   = errors.New("no adapter registered under that name")
	ErrAdapterDuplicate = errors.New("adapter name already registered")
	ErrBadTradeRequest  = errors.New("invalid trade request")
)

// TradeCall is the venue-specific invocation an adapter produces: the target
// endpoint to call, any native value to attach, and opaque call data the
// executor forwards verbatim.
type TradeCall struct {
	Target   string
	Value    sdkmath.Int
	CallData []byte
}

// TradeRequest is the generic request handed to an adapter. Exactly one side
// is fixed: when SendFixed is true SendQuantity is exact and ReceiveQuantity
// is the floor the caller will accept; otherwise ReceiveQuantity is exact and
// SendQuantity is the ceiling the caller will spend.
type TradeRequest struct {
	SendAsset       types.Asset
	ReceiveAsset    types.Asset
	Basket          types.BasketID
	SendFixed       bool
	SendQuantity    sdkmath.Int
	ReceiveQuantity sdkmath.Int
	Data            []byte // adapter-specific configuration from execution params
}

// ExecutionAdapter is implemented once per supported venue.
type ExecutionAdapter interface {
	// TradeCalldata builds the venue call for the request.
	TradeCalldata(req TradeRequest) (TradeCall, error)

	// Spender returns the account that must hold an allowance over the send
	// asset before the call is made.
	Spender() string
}

package adapter

import (
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketlabs/rebalancer/internal/types"
)

// FixedPriceOrder is the wire form the fixed-price adapter encodes into
// TradeCall.CallData. The simulated executor decodes it back.
type FixedPriceOrder struct {
	Basket          types.BasketID `json:"basket"`
	SendAsset       types.Asset    `json:"send_asset"`
	ReceiveAsset    types.Asset    `json:"receive_asset"`
	SendFixed       bool           `json:"send_fixed"`
	SendQuantity    sdkmath.Int    `json:"send_quantity"`
	ReceiveQuantity sdkmath.Int    `json:"receive_quantity"`
}

// FixedPriceAdapter targets the simulated fixed-price executor. It is the
// reference adapter used in paper mode and in tests; live venues get their
// own adapters registered under their own names.
type FixedPriceAdapter struct {
	target  string
	spender string
}

// NewFixedPriceAdapter builds an adapter pointing at the named executor venue.
func NewFixedPriceAdapter(target, spender string) *FixedPriceAdapter {
	return &FixedPriceAdapter{target: target, spender: spender}
}

// TradeCalldata implements ExecutionAdapter.
func (a *FixedPriceAdapter) TradeCalldata(req TradeRequest) (TradeCall, error) {
	if req.SendAsset == "" || req.ReceiveAsset == "" {
		return TradeCall{}, fmt.Errorf("%w: missing asset", ErrBadTradeRequest)
	}
	if req.SendAsset == req.ReceiveAsset {
		return TradeCall{}, fmt.Errorf("%w: send and receive assets are identical", ErrBadTradeRequest)
	}
	if req.SendQuantity.IsNil() || req.ReceiveQuantity.IsNil() {
		return TradeCall{}, fmt.Errorf("%w: nil quantity", ErrBadTradeRequest)
	}
	order := FixedPriceOrder{
		Basket:          req.Basket,
		SendAsset:       req.SendAsset,
		ReceiveAsset:    req.ReceiveAsset,
		SendFixed:       req.SendFixed,
		SendQuantity:    req.SendQuantity,
		ReceiveQuantity: req.ReceiveQuantity,
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return TradeCall{}, fmt.Errorf("failed to encode order: %w", err)
	}
	return TradeCall{
		Target:   a.target,
		Value:    sdkmath.ZeroInt(),
		CallData: payload,
	}, nil
}

// Spender implements ExecutionAdapter.
func (a *FixedPriceAdapter) Spender() string {
	return a.spender
}

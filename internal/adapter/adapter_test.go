package adapter

import (
	"encoding/json"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	a := NewFixedPriceAdapter("sim", "sim")

	require.NoError(t, r.Register("sim", a))

	got, err := r.Get("sim")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrAdapterUnknown)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("sim", NewFixedPriceAdapter("sim", "sim")))
	assert.ErrorIs(t, r.Register("sim", NewFixedPriceAdapter("sim", "sim")), ErrAdapterDuplicate)
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", NewFixedPriceAdapter("sim", "sim")))
	assert.Error(t, r.Register("sim", nil))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("sim", NewFixedPriceAdapter("sim", "sim")))

	r.Unregister("sim")

	_, err := r.Get("sim")
	assert.ErrorIs(t, err, ErrAdapterUnknown)
	assert.Empty(t, r.Names())
}

func TestFixedPriceAdapterTradeCalldata(t *testing.T) {
	a := NewFixedPriceAdapter("sim-venue", "sim-spender")

	call, err := a.TradeCalldata(TradeRequest{
		SendAsset:       "wbtc",
		ReceiveAsset:    "usdc",
		Basket:          "b1",
		SendFixed:       true,
		SendQuantity:    sdkmath.NewInt(100),
		ReceiveQuantity: sdkmath.NewInt(95),
	})
	require.NoError(t, err)
	assert.Equal(t, "sim-venue", call.Target)
	assert.True(t, call.Value.IsZero())
	assert.Equal(t, "sim-spender", a.Spender())

	var order FixedPriceOrder
	require.NoError(t, json.Unmarshal(call.CallData, &order))
	assert.Equal(t, "wbtc", string(order.SendAsset))
	assert.Equal(t, "usdc", string(order.ReceiveAsset))
	assert.True(t, order.SendFixed)
	assert.Equal(t, int64(100), order.SendQuantity.Int64())
	assert.Equal(t, int64(95), order.ReceiveQuantity.Int64())
}

func TestFixedPriceAdapterRejectsBadRequests(t *testing.T) {
	a := NewFixedPriceAdapter("sim", "sim")
	qty := sdkmath.NewInt(1)

	tests := []struct {
		name string
		req  TradeRequest
	}{
		{
			name: "missing send asset",
			req:  TradeRequest{ReceiveAsset: "usdc", SendQuantity: qty, ReceiveQuantity: qty},
		},
		{
			name: "identical assets",
			req:  TradeRequest{SendAsset: "usdc", ReceiveAsset: "usdc", SendQuantity: qty, ReceiveQuantity: qty},
		},
		{
			name: "nil quantity",
			req:  TradeRequest{SendAsset: "wbtc", ReceiveAsset: "usdc", ReceiveQuantity: qty},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.TradeCalldata(tt.req)
			assert.ErrorIs(t, err, ErrBadTradeRequest)
		})
	}
}

package exchange

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basketlabs/rebalancer/internal/adapter"
	"github.com/basketlabs/rebalancer/internal/basket"
	"github.com/basketlabs/rebalancer/internal/types"
)

const simBasket = types.BasketID("sim-basket")

func newSimFixture(t *testing.T) (*SimExecutor, *basket.Ledger, *adapter.FixedPriceAdapter) {
	t.Helper()
	ledger := basket.NewLedger()
	require.NoError(t, ledger.CreateBasket(simBasket, sdkmath.NewInt(1000)))
	require.NoError(t, ledger.Deposit(simBasket, "wbtc", sdkmath.NewInt(500)))
	require.NoError(t, ledger.Deposit(simBasket, "usdc", sdkmath.NewInt(500)))

	ex := NewSimExecutor("sim", ledger)
	// 1 wbtc buys 2 usdc
	ex.SetPrice("wbtc", "usdc", sdkmath.LegacyNewDec(2))
	ex.SetPrice("usdc", "wbtc", sdkmath.LegacyNewDecWithPrec(5, 1))

	return ex, ledger, adapter.NewFixedPriceAdapter("sim", "sim")
}

func makeCall(t *testing.T, a *adapter.FixedPriceAdapter, sendFixed bool, send, receive int64) adapter.TradeCall {
	t.Helper()
	call, err := a.TradeCalldata(adapter.TradeRequest{
		SendAsset:       "wbtc",
		ReceiveAsset:    "usdc",
		Basket:          simBasket,
		SendFixed:       sendFixed,
		SendQuantity:    sdkmath.NewInt(send),
		ReceiveQuantity: sdkmath.NewInt(receive),
	})
	require.NoError(t, err)
	return call
}

func TestSimExecuteExactInput(t *testing.T) {
	ex, ledger, a := newSimFixture(t)

	// sell 100 wbtc for at least 150 usdc; fills at 200
	err := ex.Execute(context.Background(), simBasket, makeCall(t, a, true, 100, 150))
	require.NoError(t, err)

	wbtc, err := ledger.BalanceOf(simBasket, "wbtc")
	require.NoError(t, err)
	usdc, err := ledger.BalanceOf(simBasket, "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(400), wbtc.Int64())
	assert.Equal(t, int64(700), usdc.Int64())
}

func TestSimExecuteExactInputBelowMinimum(t *testing.T) {
	ex, ledger, a := newSimFixture(t)

	// 100 wbtc fills at 200 usdc, caller demands 300
	err := ex.Execute(context.Background(), simBasket, makeCall(t, a, true, 100, 300))
	assert.ErrorIs(t, err, ErrFillBelowMinimum)

	// nothing settled
	wbtc, err := ledger.BalanceOf(simBasket, "wbtc")
	require.NoError(t, err)
	assert.Equal(t, int64(500), wbtc.Int64())
}

func TestSimExecuteExactOutput(t *testing.T) {
	ex, ledger, a := newSimFixture(t)

	// buy exactly 100 usdc, spending at most 60 wbtc; needs 50
	err := ex.Execute(context.Background(), simBasket, makeCall(t, a, false, 60, 100))
	require.NoError(t, err)

	wbtc, err := ledger.BalanceOf(simBasket, "wbtc")
	require.NoError(t, err)
	usdc, err := ledger.BalanceOf(simBasket, "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(450), wbtc.Int64())
	assert.Equal(t, int64(600), usdc.Int64())
}

func TestSimExecuteExactOutputOverCeiling(t *testing.T) {
	ex, _, a := newSimFixture(t)

	// 100 usdc needs 50 wbtc but the caller only allows 40
	err := ex.Execute(context.Background(), simBasket, makeCall(t, a, false, 40, 100))
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestSimExecuteWrongVenue(t *testing.T) {
	ex, _, _ := newSimFixture(t)
	other := adapter.NewFixedPriceAdapter("other-venue", "other-venue")

	err := ex.Execute(context.Background(), simBasket, makeCall(t, other, true, 10, 1))
	assert.ErrorIs(t, err, ErrWrongVenue)
}

func TestSimExecuteNoPrice(t *testing.T) {
	ledger := basket.NewLedger()
	require.NoError(t, ledger.CreateBasket(simBasket, sdkmath.NewInt(1000)))
	ex := NewSimExecutor("sim", ledger)
	a := adapter.NewFixedPriceAdapter("sim", "sim")

	err := ex.Execute(context.Background(), simBasket, makeCall(t, a, true, 10, 1))
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestSimExecuteCancelledContext(t *testing.T) {
	ex, _, a := newSimFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ex.Execute(ctx, simBasket, makeCall(t, a, true, 10, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimExecuteInsufficientBalance(t *testing.T) {
	ex, _, a := newSimFixture(t)

	err := ex.Execute(context.Background(), simBasket, makeCall(t, a, true, 10000, 1))
	assert.ErrorIs(t, err, basket.ErrInsufficientFunds)
}

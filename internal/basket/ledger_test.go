package basket

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basketlabs/rebalancer/internal/types"
)

const testBasket = types.BasketID("test-basket")

func newTestLedger(t *testing.T, supply int64) *Ledger {
	t.Helper()
	l := NewLedger()
	require.NoError(t, l.CreateBasket(testBasket, sdkmath.NewInt(supply)))
	return l
}

func TestCreateBasket(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.CreateBasket(testBasket, sdkmath.NewInt(1000)))
	assert.Error(t, l.CreateBasket(testBasket, sdkmath.NewInt(1000)), "duplicate registration must fail")
	assert.ErrorIs(t, l.CreateBasket("empty", sdkmath.ZeroInt()), ErrSupplyZero)
	assert.Error(t, l.CreateBasket("neg", sdkmath.NewInt(-1)))

	supply, err := l.TotalSupply(testBasket)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), supply.Int64())

	multiplier, err := l.PositionMultiplier(testBasket)
	require.NoError(t, err)
	assert.True(t, multiplier.Equal(sdkmath.LegacyOneDec()))
}

func TestDepositSetsUnit(t *testing.T) {
	l := newTestLedger(t, 1000)

	require.NoError(t, l.Deposit(testBasket, "wbtc", sdkmath.NewInt(500)))

	unit, err := l.DefaultPositionUnit(testBasket, "wbtc")
	require.NoError(t, err)
	assert.Equal(t, "0.500000000000000000", unit.String())

	bal, err := l.BalanceOf(testBasket, "wbtc")
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal.Int64())

	// second deposit accumulates
	require.NoError(t, l.Deposit(testBasket, "wbtc", sdkmath.NewInt(500)))
	unit, err = l.DefaultPositionUnit(testBasket, "wbtc")
	require.NoError(t, err)
	assert.Equal(t, "1.000000000000000000", unit.String())
}

func TestComponentsPreserveOrder(t *testing.T) {
	l := newTestLedger(t, 1000)

	for _, a := range []types.Asset{"weth", "wbtc", "usdc"} {
		require.NoError(t, l.Deposit(testBasket, a, sdkmath.NewInt(100)))
	}

	components, err := l.Components(testBasket)
	require.NoError(t, err)
	assert.Equal(t, []types.Asset{"weth", "wbtc", "usdc"}, components)
}

func TestMintDilutesMultiplier(t *testing.T) {
	l := newTestLedger(t, 1000)
	require.NoError(t, l.Deposit(testBasket, "wbtc", sdkmath.NewInt(800)))

	unitBefore, err := l.DefaultPositionUnit(testBasket, "wbtc")
	require.NoError(t, err)

	// mint 25% more supply with no new backing
	require.NoError(t, l.Mint(testBasket, sdkmath.NewInt(250)))

	supply, err := l.TotalSupply(testBasket)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), supply.Int64())

	multiplier, err := l.PositionMultiplier(testBasket)
	require.NoError(t, err)
	assert.Equal(t, "0.800000000000000000", multiplier.String())

	// real unit dilutes by the same ratio, total notional stays put
	unitAfter, err := l.DefaultPositionUnit(testBasket, "wbtc")
	require.NoError(t, err)
	assert.True(t, unitAfter.LT(unitBefore))
	notional := unitAfter.MulInt(supply).TruncateInt()
	assert.Equal(t, int64(800), notional.Int64())
}

func TestEditDefaultPositionUnitSurvivesMint(t *testing.T) {
	l := newTestLedger(t, 1000)
	require.NoError(t, l.Deposit(testBasket, "wbtc", sdkmath.NewInt(800)))
	require.NoError(t, l.Mint(testBasket, sdkmath.NewInt(250)))

	target := sdkmath.LegacyNewDecWithPrec(5, 1) // 0.5
	require.NoError(t, l.EditDefaultPositionUnit(testBasket, "wbtc", target))

	// the real unit written must read back unchanged despite the internal
	// multiplier-relative storage
	got, err := l.DefaultPositionUnit(testBasket, "wbtc")
	require.NoError(t, err)
	assert.True(t, got.Sub(target).Abs().LTE(sdkmath.LegacySmallestDec()))
}

func TestTransfer(t *testing.T) {
	l := newTestLedger(t, 1000)
	require.NoError(t, l.Deposit(testBasket, "usdc", sdkmath.NewInt(100)))

	require.NoError(t, l.Transfer(testBasket, "usdc", "fee-recipient", sdkmath.NewInt(30)))

	bal, err := l.BalanceOf(testBasket, "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(70), bal.Int64())

	acct, err := l.AccountBalance(testBasket, "fee-recipient", "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(30), acct.Int64())

	err = l.Transfer(testBasket, "usdc", "fee-recipient", sdkmath.NewInt(1000))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestCreditDebit(t *testing.T) {
	l := newTestLedger(t, 1000)
	require.NoError(t, l.Deposit(testBasket, "usdc", sdkmath.NewInt(100)))

	unitBefore, err := l.DefaultPositionUnit(testBasket, "usdc")
	require.NoError(t, err)

	require.NoError(t, l.Debit(testBasket, "usdc", sdkmath.NewInt(40)))
	require.NoError(t, l.Credit(testBasket, "usdc", sdkmath.NewInt(15)))

	bal, err := l.BalanceOf(testBasket, "usdc")
	require.NoError(t, err)
	assert.Equal(t, int64(75), bal.Int64())

	// settlement never touches units
	unitAfter, err := l.DefaultPositionUnit(testBasket, "usdc")
	require.NoError(t, err)
	assert.True(t, unitAfter.Equal(unitBefore))

	assert.ErrorIs(t, l.Debit(testBasket, "usdc", sdkmath.NewInt(10000)), ErrInsufficientFunds)
}

func TestUnknownBasket(t *testing.T) {
	l := NewLedger()

	_, err := l.TotalSupply("nope")
	assert.ErrorIs(t, err, ErrBasketUnknown)
	_, err = l.BalanceOf("nope", "wbtc")
	assert.ErrorIs(t, err, ErrBasketUnknown)
	assert.ErrorIs(t, l.Deposit("nope", "wbtc", sdkmath.NewInt(1)), ErrBasketUnknown)
}

func TestSummary(t *testing.T) {
	l := newTestLedger(t, 1000)
	require.NoError(t, l.Deposit(testBasket, "wbtc", sdkmath.NewInt(800)))
	require.NoError(t, l.Deposit(testBasket, "usdc", sdkmath.NewInt(200)))
	require.NoError(t, l.SetExternalModules(testBasket, "wbtc", []string{"lending"}))

	summary, err := l.Summary(testBasket, "usdc")
	require.NoError(t, err)

	assert.Equal(t, testBasket, summary.ID)
	assert.Equal(t, types.Asset("usdc"), summary.QuoteAsset)
	assert.Equal(t, int64(1000), summary.TotalSupply.Int64())
	require.Len(t, summary.Components, 2)
	assert.Equal(t, types.Asset("wbtc"), summary.Components[0].Asset)
	assert.Equal(t, []string{"lending"}, summary.Components[0].External)
	assert.Equal(t, int64(800), summary.Components[0].Balance.Int64())
}

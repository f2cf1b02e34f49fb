package fixed

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) sdkmath.LegacyDec {
	t.Helper()
	d, err := sdkmath.LegacyNewDecFromStr(s)
	require.NoError(t, err)
	return d
}

func TestMulDecRounding(t *testing.T) {
	// 1/3 * 1/3 loses precision at the 18th decimal
	a := dec(t, "1").Quo(dec(t, "3"))

	down := MulDec(a, a, RoundDown)
	up := MulDec(a, a, RoundUp)

	assert.True(t, down.LT(up), "round-down must be strictly below round-up when precision is lost")
	assert.True(t, up.Sub(down).LTE(sdkmath.LegacySmallestDec()))
}

func TestQuoDecRounding(t *testing.T) {
	a := dec(t, "1")
	b := dec(t, "3")

	down, err := QuoDec(a, b, RoundDown)
	require.NoError(t, err)
	up, err := QuoDec(a, b, RoundUp)
	require.NoError(t, err)

	assert.True(t, down.LT(up))
	assert.Equal(t, "0.333333333333333333", down.String())
	assert.Equal(t, "0.333333333333333334", up.String())
}

func TestQuoDecByZero(t *testing.T) {
	_, err := QuoDec(dec(t, "1"), sdkmath.LegacyZeroDec(), RoundDown)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestMulDecInt(t *testing.T) {
	tests := []struct {
		name     string
		d        string
		x        int64
		rounding Rounding
		want     int64
	}{
		{name: "exact", d: "0.5", x: 100, rounding: RoundDown, want: 50},
		{name: "floor", d: "0.333", x: 100, rounding: RoundDown, want: 33},
		{name: "ceil", d: "0.333", x: 100, rounding: RoundUp, want: 34},
		{name: "ceil exact stays exact", d: "0.5", x: 100, rounding: RoundUp, want: 50},
		{name: "zero", d: "0", x: 100, rounding: RoundUp, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MulDecInt(dec(t, tt.d), sdkmath.NewInt(tt.x), tt.rounding)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestQuoIntInt(t *testing.T) {
	down, err := QuoIntInt(sdkmath.NewInt(1), sdkmath.NewInt(3), RoundDown)
	require.NoError(t, err)
	up, err := QuoIntInt(sdkmath.NewInt(1), sdkmath.NewInt(3), RoundUp)
	require.NoError(t, err)

	assert.Equal(t, "0.333333333333333333", down.String())
	assert.Equal(t, "0.333333333333333334", up.String())

	_, err = QuoIntInt(sdkmath.NewInt(1), sdkmath.ZeroInt(), RoundDown)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestValidateDec(t *testing.T) {
	assert.NoError(t, ValidateDec("ok", dec(t, "1.5")))
	assert.NoError(t, ValidateDec("zero", sdkmath.LegacyZeroDec()))
	assert.ErrorIs(t, ValidateDec("nil", sdkmath.LegacyDec{}), ErrValueNil)
	assert.ErrorIs(t, ValidateDec("neg", dec(t, "-0.1")), ErrValueNegative)
}

func TestValidateInt(t *testing.T) {
	assert.NoError(t, ValidateInt("ok", sdkmath.NewInt(7)))
	assert.NoError(t, ValidateInt("zero", sdkmath.ZeroInt()))
	assert.ErrorIs(t, ValidateInt("nil", sdkmath.Int{}), ErrValueNil)
	assert.ErrorIs(t, ValidateInt("neg", sdkmath.NewInt(-7)), ErrValueNegative)
}

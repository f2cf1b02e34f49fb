/*
This file contains the fixed-point arithmetic helpers used by the rebalance
engine. Every multiply/divide takes an explicit Rounding argument because the
ceil/floor choice at each call site is load-bearing for the engine's
overcollateralization guarantees.
*/

package fixed

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrValueNil      = errors.New("value is nil")
	ErrValueNegative = errors.New("value is negative")
	ErrDivideByZero  = errors.New("division by zero")
)

// Rounding selects the direction a helper rounds toward when precision is lost.
type Rounding int

const (
	RoundDown Rounding = iota // truncate toward zero
	RoundUp                   // round away from zero
)

// MulDec multiplies two decimals, rounding the 18-decimal result in the given direction.
func MulDec(a, b sdkmath.LegacyDec, r Rounding) sdkmath.LegacyDec {
	if r == RoundUp {
		return a.MulRoundUp(b)
	}
	return a.MulTruncate(b)
}

// QuoDec divides a by b, rounding the 18-decimal result in the given direction.
func QuoDec(a, b sdkmath.LegacyDec, r Rounding) (sdkmath.LegacyDec, error) {
	if b.IsZero() {
		return sdkmath.LegacyZeroDec(), ErrDivideByZero
	}
	if r == RoundUp {
		return a.QuoRoundUp(b), nil
	}
	return a.QuoTruncate(b), nil
}

// MulDecInt scales an integer quantity by a decimal factor and returns an
// integer, rounding in the given direction. This is the unit-times-supply
// conversion from per-supply units to absolute notional.
func MulDecInt(d sdkmath.LegacyDec, x sdkmath.Int, r Rounding) sdkmath.Int {
	product := d.MulInt(x)
	if r == RoundUp {
		return product.Ceil().TruncateInt()
	}
	return product.TruncateInt()
}

// QuoIntInt divides two integers into a decimal, rounding in the given
// direction. This is the balance-over-supply conversion back to per-supply
// units; callers writing position units always round down so a basket never
// claims more backing than it holds.
func QuoIntInt(a, b sdkmath.Int, r Rounding) (sdkmath.LegacyDec, error) {
	if b.IsZero() {
		return sdkmath.LegacyZeroDec(), ErrDivideByZero
	}
	return QuoDec(sdkmath.LegacyNewDecFromInt(a), sdkmath.LegacyNewDecFromInt(b), r)
}

// ValidateDec rejects nil or negative decimals with a descriptive error.
func ValidateDec(name string, d sdkmath.LegacyDec) error {
	if d.IsNil() {
		return fmt.Errorf("%s: %w", name, ErrValueNil)
	}
	if d.IsNegative() {
		return fmt.Errorf("%s: %w", name, ErrValueNegative)
	}
	return nil
}

// ValidateInt rejects nil or negative integers with a descriptive error.
func ValidateInt(name string, i sdkmath.Int) error {
	if i.IsNil() {
		return fmt.Errorf("%s: %w", name, ErrValueNil)
	}
	if i.IsNegative() {
		return fmt.Errorf("%s: %w", name, ErrValueNegative)
	}
	return nil
}

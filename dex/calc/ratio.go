// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package calc

import (
	"fmt"
	"math/big"

	"decred.org/kaupa/dex"
	"github.com/shopspring/decimal"
)

// Fill ratios are kept as exact rationals. Fungible quantities are only
// converted back to fixed-precision decimals when an amount is actually moved,
// and that conversion truncates toward zero.

var (
	bigZero  = big.NewRat(0, 1)
	bigOne   = big.NewRat(1, 1)
	bps10000 = decimal.NewFromInt(10000)
	decZero  = decimal.Zero
)

// One returns a new rational equal to 1.
func One() *big.Rat {
	return new(big.Rat).Set(bigOne)
}

// IsOne checks whether r == 1.
func IsOne(r *big.Rat) bool {
	return r.Cmp(bigOne) == 0
}

// IsZero checks whether r == 0.
func IsZero(r *big.Rat) bool {
	return r.Sign() == 0
}

// Truncate truncates the amount toward zero to dex.Precision fractional
// digits.
func Truncate(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(dex.Precision)
}

// ValidAmount checks that the amount is non-negative and representable at
// dex.Precision.
func ValidAmount(d decimal.Decimal) error {
	if d.Sign() < 0 {
		return dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("negative amount %s", d))
	}
	if !d.Equal(Truncate(d)) {
		return dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("amount %s exceeds %d decimal places", d, dex.Precision))
	}
	return nil
}

// Ratio computes paid / need, capped at 1. need must be positive.
func Ratio(paid, need decimal.Decimal) (*big.Rat, error) {
	if need.Sign() <= 0 {
		return nil, dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("ratio against non-positive quantity %s", need))
	}
	if paid.Sign() <= 0 {
		return new(big.Rat), nil
	}
	r := new(big.Rat).Quo(paid.Rat(), need.Rat())
	if r.Cmp(bigOne) > 0 {
		return One(), nil
	}
	return r, nil
}

// CountRatio computes paid / need for discrete counts, capped at 1.
func CountRatio(paid, need int64) (*big.Rat, error) {
	if need <= 0 {
		return nil, dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("ratio against non-positive count %d", need))
	}
	if paid <= 0 {
		return new(big.Rat), nil
	}
	if paid >= need {
		return One(), nil
	}
	return big.NewRat(paid, need), nil
}

// MinRatio returns the smallest of the ratios. At least one is required.
func MinRatio(r *big.Rat, rs ...*big.Rat) *big.Rat {
	min := r
	for _, ri := range rs {
		if ri.Cmp(min) < 0 {
			min = ri
		}
	}
	return new(big.Rat).Set(min)
}

// GCD is the greatest common divisor of the non-zero counts. Zero is returned
// if there are no non-zero counts.
func GCD(counts ...int64) int64 {
	var g int64
	for _, n := range counts {
		if n < 0 {
			n = -n
		}
		if n == 0 {
			continue
		}
		if g == 0 {
			g = n
			continue
		}
		for n != 0 {
			g, n = n, g%n
		}
	}
	return g
}

// FloorToGrid floors r to the nearest multiple of 1/grid. Every discrete
// quantity divisible by grid scales to a whole number under the result. A
// non-positive grid leaves r unchanged.
func FloorToGrid(r *big.Rat, grid int64) *big.Rat {
	if grid <= 0 {
		return new(big.Rat).Set(r)
	}
	g := big.NewInt(grid)
	scaled := new(big.Int).Mul(r.Num(), g)
	scaled.Quo(scaled, r.Denom()) // r is non-negative, so Quo floors
	return new(big.Rat).SetFrac(scaled, g)
}

// ScaleAmount computes trunc(amount * r) at dex.Precision. When r is 1 the
// amount is returned exactly.
func ScaleAmount(amount decimal.Decimal, r *big.Rat) decimal.Decimal {
	if IsOne(r) {
		return amount
	}
	if IsZero(r) || amount.Sign() == 0 {
		return decZero
	}
	num := amount.Mul(decimal.NewFromBigInt(r.Num(), 0))
	q, _ := num.QuoRem(decimal.NewFromBigInt(r.Denom(), 0), dex.Precision)
	return q
}

// ScaleCount computes count * r, which must be a whole number.
func ScaleCount(count int64, r *big.Rat) (int64, error) {
	prod := new(big.Rat).Mul(big.NewRat(count, 1), r)
	if !prod.IsInt() {
		return 0, dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("%d x %s is not whole", count, r.RatString()))
	}
	return prod.Num().Int64(), nil
}

// UnitPrice is ask / offer as an exact rational.
func UnitPrice(ask, offer decimal.Decimal) (*big.Rat, error) {
	if offer.Sign() <= 0 {
		return nil, dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("unit price against non-positive quantity %s", offer))
	}
	if ask.Sign() < 0 {
		return nil, dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("negative asking quantity %s", ask))
	}
	return new(big.Rat).Quo(ask.Rat(), offer.Rat()), nil
}

// BpsFee computes trunc(amount * bps / 10000) at dex.Precision.
func BpsFee(amount, bps decimal.Decimal) decimal.Decimal {
	if amount.Sign() <= 0 || bps.Sign() <= 0 {
		return decZero
	}
	q, _ := amount.Mul(bps).QuoRem(bps10000, dex.Precision)
	return q
}

// RatString is a compact string for a ratio, used in logs.
func RatString(r *big.Rat) string {
	if r == nil {
		return "<nil>"
	}
	return r.RatString()
}

// Compare compares two ratios, treating nil as zero.
func Compare(a, b *big.Rat) int {
	if a == nil {
		a = bigZero
	}
	if b == nil {
		b = bigZero
	}
	return a.Cmp(b)
}

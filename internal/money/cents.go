package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest difference treated as equal between two amounts.
const Tolerance = 0.01

// Round2 rounds x to two decimals, half away from zero, without the binary
// floating point residue of math.Round(x*100)/100.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// ToCents converts an amount to integer cents.
func ToCents(x float64) int64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return decimal.NewFromFloat(x).Shift(2).Round(0).IntPart()
}

// FromCents converts integer cents back to a two decimal amount.
func FromCents(c int64) float64 {
	return decimal.New(c, -2).InexactFloat64()
}

// MulCents returns round(a*b) expressed in cents, computed exactly.
func MulCents(a, b float64) int64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0
	}
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Shift(2).Round(0).IntPart()
}

// PercentOfCents returns round(cents*rate) for a fractional rate.
func PercentOfCents(cents int64, rate float64) int64 {
	return decimal.New(cents, 0).Mul(decimal.NewFromFloat(rate)).Round(0).IntPart()
}

// Equal reports whether a and b differ by at most tol (plus float noise).
func Equal(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol+1e-9
}

// Consistent reports whether ht + tva matches ttc within tol.
func Consistent(ht, tva, ttc, tol float64) bool {
	return Equal(Round2(ht+tva), ttc, tol)
}

package calc

import (
	"math"
	"math/big"
)

// Precision is the significand width, in bits, of every calculator value.
// It matches an x87 extended float so boundary behavior is the same as a
// long double implementation.
const Precision = 64

// Exponent range of the emulated extended float.
const (
	maxExp       = 16384  // MaxValue < 2**maxExp
	minNormalExp = -16382 // smallest normal magnitude is 2**minNormalExp
	trueMinExp   = -16445 // smallest subnormal magnitude is 2**trueMinExp
)

// fractionDigits is the number of fractional digits rendered before
// trailing zeros are trimmed.
const fractionDigits = 6

var (
	maxValue    = newFloat().SetMantExp(newFloat().SetUint64(math.MaxUint64), maxExp-Precision)
	lowestValue = newFloat().Neg(maxValue)
	minNormal   = newFloat().SetMantExp(newFloat().SetInt64(1), minNormalExp)
	trueMin     = newFloat().SetMantExp(newFloat().SetInt64(1), trueMinExp)
	hundred     = newFloat().SetInt64(100)
)

func newFloat() *big.Float {
	return new(big.Float).SetPrec(Precision).SetMode(big.ToNearestEven)
}

// MaxValue returns the largest representable value.
func MaxValue() *big.Float { return newFloat().Set(maxValue) }

// LowestValue returns the most negative representable value.
func LowestValue() *big.Float { return newFloat().Set(lowestValue) }

// MinNormal returns the smallest positive normal magnitude.
func MinNormal() *big.Float { return newFloat().Set(minNormal) }

// bound maps values beyond the representable range to a signed infinity,
// the way an extended float saturates on overflow, and flushes magnitudes
// below the smallest subnormal to a signed zero.
func bound(x *big.Float) *big.Float {
	if x.IsInf() || x.Sign() == 0 {
		return x
	}
	switch {
	case cmpAbs(x, maxValue) > 0:
		return newFloat().SetInf(x.Signbit())
	case cmpAbs(x, trueMin) < 0:
		z := newFloat()
		if x.Signbit() {
			z.Neg(z)
		}
		return z
	}
	return x
}

// cmpAbs compares |x| and |y|.
func cmpAbs(x, y *big.Float) int {
	return new(big.Float).Abs(x).Cmp(new(big.Float).Abs(y))
}

// parseNumber parses a run of digits containing at most one decimal point
// and at least one digit. Values beyond the representable range fail, as do
// nonzero values too small to survive as a subnormal.
func parseNumber(s string) (*big.Float, bool) {
	digits, points := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			points++
		default:
			return nil, false
		}
	}
	if digits == 0 || points > 1 {
		return nil, false
	}

	x, _, err := newFloat().Parse(s, 10)
	if err != nil {
		return nil, false
	}
	if cmpAbs(x, maxValue) > 0 {
		return nil, false
	}
	if x.Sign() != 0 && cmpAbs(x, trueMin) < 0 {
		return nil, false
	}
	return x, true
}

// isZero reports whether x is +0 or -0.
func isZero(x *big.Float) bool {
	return x.Sign() == 0
}

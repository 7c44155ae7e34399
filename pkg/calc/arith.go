package calc

import (
	"math/big"

	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// Arithmetic reduces operand pairs to a result token. Every method is pure
// apart from trace events: it never mutates its operands and keeps no state
// between calls. Results are either a value token or an overflow, underflow
// or divide-by-zero sentinel.
type Arithmetic struct {
	trace trace.Sink
}

// NewArithmetic creates an Arithmetic reporting to sink.
func NewArithmetic(sink trace.Sink) *Arithmetic {
	if sink == nil {
		sink = trace.Discard
	}
	return &Arithmetic{trace: sink}
}

// Apply dispatches op to the matching reducer. operands are in source order.
func (a *Arithmetic) Apply(op Op, operands []Token) Token {
	trace.Record(a.trace, trace.KindCallingArithmetic, "%c", op.Symbol())
	if len(operands) != op.Arity() {
		return Invalid()
	}

	switch op {
	case OpAdd:
		return a.Add(operands[0], operands[1])
	case OpSubtract:
		return a.Subtract(operands[0], operands[1])
	case OpMultiply:
		return a.Multiply(operands[0], operands[1])
	case OpDivide:
		return a.Divide(operands[0], operands[1])
	case OpNegate:
		return a.Negate(operands[0])
	case OpPercent:
		// A stray % that was not folded into an operand.
		return Percent(newFloat())
	default:
		return Invalid()
	}
}

// resolveRight returns the numeric value of right, resolving a percent
// operand against left. A non-nil token is an overflow or underflow
// sentinel that must be returned as is.
func (a *Arithmetic) resolveRight(left, right Token) (*big.Float, *Token) {
	percent := right.Kind() == KindPercent
	trace.Record(a.trace, trace.KindCheckForPercent, "Found? -> %t", percent)
	if !percent {
		return right.Value(), nil
	}

	resolved := a.Percent(right, left)
	switch resolved.Kind() {
	case KindOverflow, KindUnderflow:
		return nil, &resolved
	}
	return resolved.Value(), nil
}

// Add returns left + right.
func (a *Arithmetic) Add(left, right Token) Token {
	l := left.Value()
	r, sentinel := a.resolveRight(left, right)
	if sentinel != nil {
		return *sentinel
	}

	overflow := newFloat().Sub(maxValue, l).Cmp(r) < 0
	trace.Record(a.trace, trace.KindCheckOverflow, "Found? -> %t", overflow)
	if overflow {
		return Overflow()
	}

	sum := newFloat().Add(l, r)
	underflow := sum.Cmp(lowestValue) < 0
	trace.Record(a.trace, trace.KindCheckUnderflow, "Found? -> %t", underflow)
	if underflow {
		return Underflow()
	}

	trace.Record(a.trace, trace.KindPerformArithmetic, "%v + %v = %v", l, r, sum)
	return Value(sum)
}

// Subtract returns left - right.
func (a *Arithmetic) Subtract(left, right Token) Token {
	l := left.Value()
	r, sentinel := a.resolveRight(left, right)
	if sentinel != nil {
		return *sentinel
	}

	underflow := newFloat().Add(lowestValue, r).Cmp(l) > 0
	trace.Record(a.trace, trace.KindCheckUnderflow, "Found? -> %t", underflow)
	if underflow {
		return Underflow()
	}

	diff := newFloat().Sub(l, r)
	overflow := diff.Cmp(maxValue) > 0
	trace.Record(a.trace, trace.KindCheckOverflow, "Found? -> %t", overflow)
	if overflow {
		return Overflow()
	}

	trace.Record(a.trace, trace.KindPerformArithmetic, "%v - %v = %v", l, r, diff)
	return Value(diff)
}

// Multiply returns left * right. A percent right operand is resolved against
// left, and the resolved amount is the product: 200*10% is 20.
func (a *Arithmetic) Multiply(left, right Token) Token {
	l := left.Value()
	if right.Kind() == KindPercent {
		r, sentinel := a.resolveRight(left, right)
		if sentinel != nil {
			return *sentinel
		}
		trace.Record(a.trace, trace.KindPerformArithmetic, "%v * %v%% = %v", l, right.Value(), r)
		return Value(r)
	}
	trace.Record(a.trace, trace.KindCheckForPercent, "Found? -> false")

	r := right.Value()
	product := bound(newFloat().Mul(l, r))
	if a.inverseMismatch(product, r, l) {
		return Overflow()
	}

	trace.Record(a.trace, trace.KindPerformArithmetic, "%v * %v = %v", l, r, product)
	return Value(product)
}

// Divide returns left / right.
func (a *Arithmetic) Divide(left, right Token) Token {
	l := left.Value()
	r, sentinel := a.resolveRight(left, right)
	if sentinel != nil {
		return *sentinel
	}

	zero := isZero(r)
	trace.Record(a.trace, trace.KindCheckDivideByZero, "Found? -> %t", zero)
	if zero {
		return DivideByZero()
	}

	quotient := bound(newFloat().Quo(l, r))
	overflow := quotient.IsInf() || newFloat().Mul(quotient, r).Cmp(l) != 0
	trace.Record(a.trace, trace.KindCheckOverflow, "Found? -> %t", overflow)
	if overflow {
		return Overflow()
	}

	trace.Record(a.trace, trace.KindPerformArithmetic, "%v / %v = %v", l, r, quotient)
	return Value(quotient)
}

// Percent resolves a percent fraction against base, returning base*fraction.
// It never appears as an operator of its own in the postfix stream.
func (a *Arithmetic) Percent(percentage, base Token) Token {
	b := base.Value()
	f := percentage.Value()

	result := bound(newFloat().Mul(b, f))
	if a.inverseMismatch(result, f, b) {
		return Overflow()
	}

	trace.Record(a.trace, trace.KindPercentArithmetic, "%v%% of %v = %v", newFloat().Mul(f, hundred), b, result)
	return Value(result)
}

// Negate returns -operand. An operand whose magnitude equals the smallest
// normal value yields an overflow sentinel.
func (a *Arithmetic) Negate(operand Token) Token {
	v := operand.Value()
	overflow := cmpAbs(v, minNormal) == 0
	trace.Record(a.trace, trace.KindCheckOverflow, "Found? -> %t", overflow)
	if overflow {
		return Overflow()
	}
	return Value(v.Neg(v))
}

// inverseMismatch reports whether product / factor differs from want, the
// overflow test shared by Multiply and Percent. A zero factor skips the
// test, so 5*0 is 0 rather than the OVERFLOW a literal 0/0 check gives.
func (a *Arithmetic) inverseMismatch(product, factor, want *big.Float) bool {
	zero := isZero(factor)
	trace.Record(a.trace, trace.KindCheckDivideByZero, "Found? -> %t", zero)

	overflow := false
	if !zero {
		overflow = product.IsInf() || newFloat().Quo(product, factor).Cmp(want) != 0
	}
	trace.Record(a.trace, trace.KindCheckOverflow, "Found? -> %t", overflow)
	return overflow
}

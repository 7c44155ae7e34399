// Package calc implements the five-function calculator engine. An expression
// string is split into tokens, reordered into postfix form with the
// shunting-yard algorithm and reduced on an operand stack to a single
// textual result.
//
// Failures never leave the token stream: overflow, underflow, division by
// zero and malformed input travel as sentinel tokens and are turned into one
// of the words ERROR, OVERFLOW or UNDERFLOW by the evaluator.
package calc

import (
	"fmt"
	"math/big"
)

// Kind discriminates the variants a Token can take.
type Kind int

const (
	KindValue        Kind = iota // ordinary number
	KindPercent                  // number desugared from a trailing %
	KindInvalid                  // unparseable number run
	KindOverflow                 // magnitude above the representable maximum
	KindUnderflow                // magnitude below the representable minimum
	KindDivideByZero             // division by zero
	KindOperator                 // arithmetic operator, see Op
)

// Op identifies an operator.
type Op int

const (
	OpNone Op = iota
	OpAdd
	OpSubtract
	OpNegate
	OpMultiply
	OpDivide
	OpPercent
)

// Precedence orders operators; higher binds tighter.
type Precedence int

const (
	PrecedenceNone           Precedence = 0
	PrecedenceAddSubtract    Precedence = 10
	PrecedenceMultiplyDivide Precedence = 20
	PrecedenceNegate         Precedence = 30
)

// Arity returns the number of operands op consumes.
func (op Op) Arity() int {
	switch op {
	case OpNegate:
		return 1
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return 2
	default:
		return 0
	}
}

// Precedence returns the precedence class of op.
func (op Op) Precedence() Precedence {
	switch op {
	case OpNegate:
		return PrecedenceNegate
	case OpMultiply, OpDivide:
		return PrecedenceMultiplyDivide
	case OpAdd, OpSubtract:
		return PrecedenceAddSubtract
	default:
		return PrecedenceNone
	}
}

// Symbol returns the character op is written as.
func (op Op) Symbol() byte {
	switch op {
	case OpAdd:
		return '+'
	case OpSubtract:
		return '-'
	case OpNegate:
		return 'n'
	case OpMultiply:
		return '*'
	case OpDivide:
		return '/'
	case OpPercent:
		return '%'
	default:
		return ' '
	}
}

// opFor maps an operator character to its Op.
func opFor(c byte) (Op, bool) {
	switch c {
	case '+':
		return OpAdd, true
	case '-':
		return OpSubtract, true
	case '*':
		return OpMultiply, true
	case '/':
		return OpDivide, true
	case '%':
		return OpPercent, true
	default:
		return OpNone, false
	}
}

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "VALUE"
	case KindPercent:
		return "PERCENT"
	case KindInvalid:
		return "INVALID"
	case KindOverflow:
		return "OVERFLOW"
	case KindUnderflow:
		return "UNDERFLOW"
	case KindDivideByZero:
		return "DIVIDE_BY_ZERO"
	case KindOperator:
		return "OPERATOR"
	default:
		return "UNKNOWN"
	}
}

func (p Precedence) String() string {
	switch p {
	case PrecedenceNegate:
		return "negative"
	case PrecedenceMultiplyDivide:
		return "multiply/divide"
	case PrecedenceAddSubtract:
		return "add/subtract"
	default:
		return "not applicable"
	}
}

// Token is one lexical unit. Tokens are immutable; arity and precedence are
// derived from the operator and cannot be set independently.
type Token struct {
	kind  Kind
	op    Op
	value *big.Float
}

// Value returns an operand token carrying x.
func Value(x *big.Float) Token {
	return Token{kind: KindValue, value: x}
}

// Percent returns a percent-operand token carrying the fraction x.
func Percent(x *big.Float) Token {
	return Token{kind: KindPercent, value: x}
}

// Invalid returns the sentinel for an unparseable operand.
func Invalid() Token {
	return Token{kind: KindInvalid, value: newFloat()}
}

// Overflow returns the overflow sentinel, carrying the representable maximum.
func Overflow() Token {
	return Token{kind: KindOverflow, value: MaxValue()}
}

// Underflow returns the underflow sentinel, carrying the representable
// minimum.
func Underflow() Token {
	return Token{kind: KindUnderflow, value: LowestValue()}
}

// DivideByZero returns the division-by-zero sentinel.
func DivideByZero() Token {
	return Token{kind: KindDivideByZero, value: newFloat()}
}

// Operator returns an operator token.
func Operator(op Op) Token {
	return Token{kind: KindOperator, op: op, value: newFloat()}
}

// Kind returns the token variant.
func (t Token) Kind() Kind { return t.kind }

// Op returns the operator, OpNone for operands and sentinels.
func (t Token) Op() Op { return t.op }

// IsOperator reports whether t is an operator token.
func (t Token) IsOperator() bool { return t.kind == KindOperator }

// IsSentinel reports whether t signals an out-of-band condition.
func (t Token) IsSentinel() bool {
	switch t.kind {
	case KindInvalid, KindOverflow, KindUnderflow, KindDivideByZero:
		return true
	default:
		return false
	}
}

// Arity returns the number of operands the token consumes.
func (t Token) Arity() int { return t.op.Arity() }

// Precedence returns the token's precedence class.
func (t Token) Precedence() Precedence { return t.op.Precedence() }

// Value returns a copy of the numeric payload.
func (t Token) Value() *big.Float {
	if t.value == nil {
		return newFloat()
	}
	return newFloat().Set(t.value)
}

// String returns a debug-friendly representation of the token.
func (t Token) String() string {
	switch t.kind {
	case KindOperator:
		return fmt.Sprintf("operator %c", t.op.Symbol())
	case KindValue:
		return t.Value().Text('g', 20)
	default:
		return fmt.Sprintf("%s(%s)", t.kind, t.Value().Text('g', 20))
	}
}

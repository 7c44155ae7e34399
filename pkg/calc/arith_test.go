package calc

import (
	"testing"

	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

func TestArithmetic(t *testing.T) {
	a := NewArithmetic(trace.Discard)
	v := func(s string) Token { return Value(num(t, s)) }
	p := func(s string) Token { return Percent(num(t, s)) }

	tests := []struct {
		name string
		got  Token
		kind Kind
		want string
	}{
		{"add", a.Add(v("2"), v("3")), KindValue, "5"},
		{"add negative", a.Add(v("-2"), v("-3")), KindValue, "-5"},
		{"add percent", a.Add(v("50"), p("0.1")), KindValue, "55"},
		{"add overflow", a.Add(Value(MaxValue()), v("1e4930")), KindOverflow, ""},
		{"add below lowest", a.Add(Value(LowestValue()), v("-1e4930")), KindUnderflow, ""},

		{"subtract", a.Subtract(v("2"), v("3")), KindValue, "-1"},
		{"subtract percent", a.Subtract(v("200"), p("0.25")), KindValue, "150"},
		{"subtract underflow", a.Subtract(Value(LowestValue()), v("1e4930")), KindUnderflow, ""},
		{"subtract above max", a.Subtract(Value(MaxValue()), v("-1e4930")), KindOverflow, ""},

		{"multiply", a.Multiply(v("6"), v("7")), KindValue, "42"},
		{"multiply by zero", a.Multiply(v("6"), v("0")), KindValue, "0"},
		{"multiply percent", a.Multiply(v("200"), p("0.1")), KindValue, "20"},
		{"multiply overflow", a.Multiply(Value(MaxValue()), v("2")), KindOverflow, ""},
		{"multiply negative overflow", a.Multiply(Value(LowestValue()), v("2")), KindOverflow, ""},

		{"divide", a.Divide(v("10"), v("4")), KindValue, "2.5"},
		{"divide by zero", a.Divide(v("10"), v("0")), KindDivideByZero, ""},
		{"divide zero percent", a.Divide(v("10"), p("0")), KindDivideByZero, ""},
		{"divide overflow", a.Divide(Value(MaxValue()), v("0.5")), KindOverflow, ""},

		{"percent", a.Percent(p("0.25"), v("80")), KindValue, "20"},
		{"percent of zero", a.Percent(p("0"), v("80")), KindValue, "0"},
		{"percent overflow", a.Percent(p("1e4930"), Value(MaxValue())), KindOverflow, ""},
		{"percent overflow propagates", a.Add(Value(MaxValue()), p("1e4930")), KindOverflow, ""},

		{"negate", a.Negate(v("4")), KindValue, "-4"},
		{"negate boundary", a.Negate(Value(MinNormal())), KindOverflow, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Kind() != tt.kind {
				t.Fatalf("kind: got %s, want %s", tt.got.Kind(), tt.kind)
			}
			if tt.want != "" && tt.got.Value().Cmp(num(t, tt.want)) != 0 {
				t.Errorf("value: got %s, want %s", tt.got.Value().Text('g', 20), tt.want)
			}
		})
	}
}

func TestArithmeticApply(t *testing.T) {
	a := NewArithmetic(nil)
	two, three := Value(num(t, "2")), Value(num(t, "3"))

	tests := []struct {
		op       Op
		operands []Token
		kind     Kind
	}{
		{OpAdd, []Token{two, three}, KindValue},
		{OpSubtract, []Token{two, three}, KindValue},
		{OpMultiply, []Token{two, three}, KindValue},
		{OpDivide, []Token{two, three}, KindValue},
		{OpNegate, []Token{two}, KindValue},
		{OpPercent, nil, KindPercent},
		{OpAdd, []Token{two}, KindInvalid},
		{OpNone, nil, KindInvalid},
	}

	for _, tt := range tests {
		if got := a.Apply(tt.op, tt.operands); got.Kind() != tt.kind {
			t.Errorf("Apply(%c, %d operands): got %s, want %s", tt.op.Symbol(), len(tt.operands), got.Kind(), tt.kind)
		}
	}

	// Operands are in source order: 2 - 3, not 3 - 2.
	if got := a.Apply(OpSubtract, []Token{two, three}); got.Value().Cmp(num(t, "-1")) != 0 {
		t.Errorf("2-3: got %s", got.Value().Text('g', 10))
	}
}

func TestArithmeticDoesNotMutateOperands(t *testing.T) {
	a := NewArithmetic(nil)
	left, right := Value(num(t, "9")), Value(num(t, "4"))
	a.Add(left, right)
	a.Subtract(left, right)
	a.Multiply(left, right)
	a.Divide(left, right)
	a.Negate(left)
	if left.Value().Cmp(num(t, "9")) != 0 || right.Value().Cmp(num(t, "4")) != 0 {
		t.Fatal("operands changed")
	}
}

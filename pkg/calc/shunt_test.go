package calc

import (
	"testing"

	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

func TestShunt(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2+3*4", "2 3 4 * +"},
		{"2*3+4", "2 3 * 4 +"},
		{"8/2/2", "8 2 / 2 /"},
		{"1-2+3", "1 2 - 3 +"},
		{"1+2*3-4/2", "1 2 3 * + 4 2 / -"},
		{"50+10%", "50 0.1% +"},
		{"-5+3", "-5 3 +"},
		{"+5", "5 +"},
		{"5+%", "5 + %"},
		{"3", "3"},
	}

	tok := NewTokenizer(trace.Discard)
	s := NewScheduler(trace.Discard)
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := s.Shunt(tok.Lex(tok.Tokenize(tt.input)))
			if got := render(q.Tokens()); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShuntNegateOperator(t *testing.T) {
	// Negation binds tighter than multiplication.
	in := []Token{
		Value(num(t, "2")), Operator(OpMultiply), Operator(OpNegate), Value(num(t, "3")),
	}
	q := NewScheduler(nil).Shunt(in)
	if got, want := render(q.Tokens()), "2 3 n *"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQueue(t *testing.T) {
	q := NewQueue(Value(num(t, "1")), Value(num(t, "2")))
	q.Push(Operator(OpAdd))
	if q.Len() != 3 {
		t.Fatalf("len: got %d, want 3", q.Len())
	}
	if got := render([]Token{q.Front()}); got != "1" {
		t.Errorf("front: got %q, want 1", got)
	}
	q.Pop()
	q.Pop()
	if !q.Front().IsOperator() {
		t.Error("expected operator at front")
	}
	q.Pop()
	if !q.Empty() {
		t.Error("expected empty queue")
	}
}

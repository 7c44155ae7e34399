package calc

import (
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// Queue is a FIFO of tokens in postfix order.
type Queue struct {
	items []Token
}

// NewQueue returns a queue holding tokens in order.
func NewQueue(tokens ...Token) *Queue {
	return &Queue{items: append([]Token(nil), tokens...)}
}

// Push appends t at the back.
func (q *Queue) Push(t Token) { q.items = append(q.items, t) }

// Front returns the token at the front. It panics on an empty queue.
func (q *Queue) Front() Token { return q.items[0] }

// Pop removes the front token.
func (q *Queue) Pop() { q.items = q.items[1:] }

// Len returns the number of queued tokens.
func (q *Queue) Len() int { return len(q.items) }

// Empty reports whether the queue is drained.
func (q *Queue) Empty() bool { return len(q.items) == 0 }

// Tokens returns a copy of the queued tokens, front first.
func (q *Queue) Tokens() []Token { return append([]Token(nil), q.items...) }

// stack is a LIFO.
type stack[T any] struct {
	items []T
}

func (s *stack[T]) push(v T)    { s.items = append(s.items, v) }
func (s *stack[T]) top() T      { return s.items[len(s.items)-1] }
func (s *stack[T]) size() int   { return len(s.items) }
func (s *stack[T]) empty() bool { return len(s.items) == 0 }

func (s *stack[T]) pop() T {
	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return v
}

// Scheduler reorders infix tokens into postfix order.
type Scheduler struct {
	trace trace.Sink
}

// NewScheduler creates a scheduler reporting to sink.
func NewScheduler(sink trace.Sink) *Scheduler {
	if sink == nil {
		sink = trace.Discard
	}
	return &Scheduler{trace: sink}
}

// Shunt runs the shunting-yard algorithm over tokens. Operands go straight
// to the output; an incoming operator first pops every stacked operator of
// greater or equal precedence, so equal precedence associates left.
func (s *Scheduler) Shunt(tokens []Token) *Queue {
	var ops stack[Token]
	out := NewQueue()

	for _, tok := range tokens {
		if !tok.IsOperator() {
			trace.Record(s.trace, trace.KindMoveToOutputQueue, "Token value -> %s", tok)
			out.Push(tok)
			continue
		}

		trace.Record(s.trace, trace.KindOperatorToOperatorStack, "operator %c", tok.Op().Symbol())
		for !ops.empty() && ops.top().Precedence() >= tok.Precedence() {
			trace.Record(s.trace, trace.KindHigherPrecedence, "%s <= %s", tok.Precedence(), ops.top().Precedence())
			out.Push(ops.pop())
		}

		trace.Record(s.trace, trace.KindPrecedenceOK, "moving operator %c to operator stack", tok.Op().Symbol())
		ops.push(tok)
	}

	trace.Record(s.trace, trace.KindAllTokensAnalyzed, "")
	for !ops.empty() {
		trace.Record(s.trace, trace.KindOpStackToOutputQueue, "operator %c", ops.top().Op().Symbol())
		out.Push(ops.pop())
	}
	return out
}

package calc

import (
	"math/big"
	"strings"

	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// Diagnostic words returned in place of a number.
const (
	WordError     = "ERROR"
	WordOverflow  = "OVERFLOW"
	WordUnderflow = "UNDERFLOW"
)

// Evaluator reduces a postfix queue to its textual result.
type Evaluator struct {
	trace trace.Sink
	arith *Arithmetic
}

// NewEvaluator creates an evaluator reporting to sink.
func NewEvaluator(sink trace.Sink) *Evaluator {
	if sink == nil {
		sink = trace.Discard
	}
	return &Evaluator{trace: sink, arith: NewArithmetic(sink)}
}

// Evaluate drains q onto an operand stack and returns either the trimmed
// decimal result or one of WordError, WordOverflow and WordUnderflow. The
// first sentinel met ends the evaluation.
func (e *Evaluator) Evaluate(q *Queue) string {
	var operands stack[Token]

	for !q.Empty() {
		front := q.Front()

		if word, stop := e.checkFront(front); stop {
			return word
		}

		if !front.IsOperator() {
			trace.Record(e.trace, trace.KindNumberToOperandStack, "%s", front)
			operands.push(front)
			q.Pop()
			continue
		}

		trace.Record(e.trace, trace.KindOperatorFound, "operator %c", front.Op().Symbol())
		n := front.Arity()
		trace.Record(e.trace, trace.KindCheckingAvailableOperands, "%d needed", n)
		if operands.size() < n {
			trace.Record(e.trace, trace.KindErrorFound, "only %d operands available", operands.size())
			return WordError
		}
		trace.Record(e.trace, trace.KindFoundSufficientOperands, "%d available", operands.size())

		// Popped in reverse, stored in source order.
		args := make([]Token, n)
		for i := n - 1; i >= 0; i-- {
			trace.Record(e.trace, trace.KindPullingOperand, "%s", operands.top())
			args[i] = operands.pop()
		}

		result := e.arith.Apply(front.Op(), args)
		if word, stop := e.checkResult(result); stop {
			return word
		}

		operands.push(result)
		q.Pop()
	}

	single := operands.size() == 1
	trace.Record(e.trace, trace.KindExpectOneToken, "%t", single)
	if !single {
		return WordError
	}
	return e.trim(operands.top().Value())
}

// checkFront inspects the token at the front of the queue.
func (e *Evaluator) checkFront(t Token) (string, bool) {
	invalid := t.Kind() == KindInvalid
	trace.Record(e.trace, trace.KindEvalCheckForError, "%t", invalid)
	overflow := t.Kind() == KindOverflow
	trace.Record(e.trace, trace.KindCheckOverflowFlag, "%t", overflow)
	underflow := t.Kind() == KindUnderflow
	trace.Record(e.trace, trace.KindCheckUnderflowFlag, "%t", underflow)
	divByZero := t.Kind() == KindDivideByZero
	trace.Record(e.trace, trace.KindCheckDivideByZeroFlag, "%t", divByZero)

	switch t.Kind() {
	case KindInvalid, KindDivideByZero:
		return WordError, true
	case KindOverflow:
		return WordOverflow, true
	case KindUnderflow:
		return WordUnderflow, true
	case KindValue, KindPercent, KindOperator:
		return "", false
	default:
		return WordError, true
	}
}

// checkResult inspects a token produced by the arithmetic core.
func (e *Evaluator) checkResult(t Token) (string, bool) {
	var word string
	switch t.Kind() {
	case KindValue:
	case KindPercent, KindInvalid, KindDivideByZero, KindOperator:
		word = WordError
	case KindOverflow:
		word = WordOverflow
	case KindUnderflow:
		word = WordUnderflow
	default:
		word = WordError
	}

	trace.Record(e.trace, trace.KindEvalCheckForError, "%t", word == WordError)
	trace.Record(e.trace, trace.KindCheckOverflow, "Found? -> %t", word == WordOverflow)
	trace.Record(e.trace, trace.KindCheckUnderflow, "Found? -> %t", word == WordUnderflow)
	return word, word != ""
}

// trim renders x with six fractional digits, then drops trailing zeros and
// a trailing decimal point.
func (e *Evaluator) trim(x *big.Float) string {
	answer := x.Text('f', fractionDigits)

	for strings.HasSuffix(answer, "0") && strings.Contains(answer, ".") {
		answer = answer[:len(answer)-1]
		trace.Record(e.trace, trace.KindTrimZeroes, "%s", answer)
	}

	whole := strings.HasSuffix(answer, ".")
	trace.Record(e.trace, trace.KindCheckWholeNumber, "%t", whole)
	if whole {
		answer = answer[:len(answer)-1]
		trace.Record(e.trace, trace.KindTrimDecimal, "%s", answer)
	}
	return answer
}

package calc

import (
	"github.com/google/uuid"

	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// Outcome classifies a textual result.
type Outcome string

const (
	OutcomeValue     Outcome = "VALUE"
	OutcomeError     Outcome = "ERROR"
	OutcomeOverflow  Outcome = "OVERFLOW"
	OutcomeUnderflow Outcome = "UNDERFLOW"
)

// Classify returns the outcome of a result produced by Calculate.
func Classify(result string) Outcome {
	switch result {
	case WordError:
		return OutcomeError
	case WordOverflow:
		return OutcomeOverflow
	case WordUnderflow:
		return OutcomeUnderflow
	default:
		return OutcomeValue
	}
}

// Calculator runs the whole pipeline: tokenize, lex, shunt, evaluate. It
// holds no state between calls and may be shared by goroutines as long as
// its sink is safe for concurrent use.
type Calculator struct {
	sink trace.Sink
}

// New creates a calculator reporting to sink. A nil sink discards events.
func New(sink trace.Sink) *Calculator {
	if sink == nil {
		sink = trace.Discard
	}
	return &Calculator{sink: sink}
}

// Calculate evaluates expression and returns the trimmed decimal result or
// one of WordError, WordOverflow and WordUnderflow.
func (c *Calculator) Calculate(expression string) string {
	sink := c.sink
	if sink.Enabled() {
		sink = trace.WithEvalID(sink, uuid.NewString())
	}

	tokenizer := NewTokenizer(sink)
	tokens := tokenizer.Lex(tokenizer.Tokenize(expression))

	trace.Record(sink, trace.KindSendForShunting, "%d tokens", len(tokens))
	queue := NewScheduler(sink).Shunt(tokens)
	trace.Record(sink, trace.KindShuntingComplete, "%d tokens", queue.Len())

	return NewEvaluator(sink).Evaluate(queue)
}

// Calculate evaluates expression without tracing.
func Calculate(expression string) string {
	return New(trace.Discard).Calculate(expression)
}

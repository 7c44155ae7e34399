package calc

import (
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// Tokenizer turns an expression string into tokens.
type Tokenizer struct {
	trace trace.Sink
	arith *Arithmetic
}

// NewTokenizer creates a tokenizer reporting to sink.
func NewTokenizer(sink trace.Sink) *Tokenizer {
	if sink == nil {
		sink = trace.Discard
	}
	return &Tokenizer{trace: sink, arith: NewArithmetic(sink)}
}

// Tokenize scans expression left to right. Every operator character becomes
// an operator token; each run of other characters between operators becomes
// one operand token, or an invalid sentinel when the run is not a number.
// Scanning never stops early.
func (t *Tokenizer) Tokenize(expression string) []Token {
	var tokens []Token
	start := -1

	for pos := 0; pos < len(expression); pos++ {
		c := expression[pos]
		op, isOp := opFor(c)
		trace.Record(t.trace, trace.KindIsCharacterOperator, "%t", isOp)

		if !isOp {
			trace.Record(t.trace, trace.KindFoundNumberComponent, "%c", c)
			if start < 0 {
				start = pos
			}
			continue
		}

		if start >= 0 {
			tokens = append(tokens, t.number(expression[start:pos]))
			start = -1
		}
		trace.Record(t.trace, trace.KindGenerateOperatorToken, "operator %c", c)
		tokens = append(tokens, Operator(op))
	}

	if start >= 0 {
		tokens = append(tokens, t.number(expression[start:]))
	}

	trace.Record(t.trace, trace.KindTokenizerGenerated, "%d", len(tokens))
	return tokens
}

// number converts a buffered run into an operand token.
func (t *Tokenizer) number(run string) Token {
	x, ok := parseNumber(run)
	if !ok {
		trace.Record(t.trace, trace.KindInvalidNumber, "%s", run)
		return Invalid()
	}
	trace.Record(t.trace, trace.KindGenerateNumberToken, "%s", run)
	return Value(x)
}

// Lex rewrites two local patterns of a tokenized sequence:
//
//   - a number directly followed by % becomes a percent operand holding
//     number/100;
//   - a - that starts the sequence or follows another operator is a unary
//     negation and is folded into the operand after it.
//
// All other tokens pass through in order.
func (t *Tokenizer) Lex(tokens []Token) []Token {
	lexed := make([]Token, 0, len(tokens))

	for pos := 0; pos < len(tokens); {
		tok := tokens[pos]
		var next *Token
		if pos+1 < len(tokens) {
			next = &tokens[pos+1]
		}

		if tok.Kind() == KindValue && next != nil && next.Op() == OpPercent {
			fraction := bound(newFloat().Quo(tok.value, hundred))
			trace.Record(t.trace, trace.KindDetectedPercent,
				"Consumed number token with value %v, percentage %v", tok.value, fraction)
			lexed = append(lexed, Percent(fraction))
			pos += 2
			continue
		}

		if tok.Op() == OpSubtract && (pos == 0 || tokens[pos-1].IsOperator()) &&
			next != nil && next.Kind() == KindValue {
			trace.Record(t.trace, trace.KindDetectedNegative, "Consumed number token with value %v", next.value)
			lexed = append(lexed, t.arith.Negate(*next))
			pos += 2
			continue
		}

		trace.Record(t.trace, trace.KindNoAnalysisNeeded, "%s", tok)
		lexed = append(lexed, tok)
		pos++
	}

	trace.Record(t.trace, trace.KindLexerGenerated, "%d", len(lexed))
	return lexed
}

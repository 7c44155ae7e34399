// Package trace implements the diagnostic collaborator used by the
// calculator: a sink interface the pipeline reports discrete events to, and
// Tracelog, a toggleable sink that keeps an in-memory panel and persists
// every event to a file.
package trace

import "fmt"

// Kind identifies a discrete diagnostic event.
type Kind int

const (
	// Keypad
	KindButtonPressed Kind = iota
	KindKeyPressed
	KindClearInvalidWarning
	KindSendExpression
	KindCalcCheckForError
	KindDisplayError
	KindDisplayAnswer

	// Tokenizer
	KindIsCharacterOperator
	KindGenerateOperatorToken
	KindFoundNumberComponent
	KindGenerateNumberToken
	KindInvalidNumber
	KindTokenizerGenerated

	// Lexer
	KindDetectedPercent
	KindDetectedNegative
	KindNoAnalysisNeeded
	KindLexerGenerated

	// Scheduler
	KindSendForShunting
	KindMoveToOutputQueue
	KindOperatorToOperatorStack
	KindHigherPrecedence
	KindPrecedenceOK
	KindAllTokensAnalyzed
	KindOpStackToOutputQueue
	KindShuntingComplete

	// Evaluator
	KindNumberToOperandStack
	KindOperatorFound
	KindCheckingAvailableOperands
	KindErrorFound
	KindFoundSufficientOperands
	KindPullingOperand
	KindCallingArithmetic
	KindEvalCheckForError
	KindCheckOverflowFlag
	KindCheckUnderflowFlag
	KindCheckDivideByZeroFlag
	KindExpectOneToken
	KindTrimZeroes
	KindCheckWholeNumber
	KindTrimDecimal

	// Arithmetic
	KindCheckForPercent
	KindPercentArithmetic
	KindCheckOverflow
	KindCheckUnderflow
	KindCheckDivideByZero
	KindPerformArithmetic

	numKinds
)

var kindNames = [numKinds]struct{ component, title string }{
	KindButtonPressed:       {"CalculatorUI", "Button Clicked"},
	KindKeyPressed:          {"CalculatorUI", "Key Pressed"},
	KindClearInvalidWarning: {"CalculatorUI", "Clear Invalid Expression Warning"},
	KindSendExpression:      {"CalculatorUI", "Sending Equation to Tokenizer"},
	KindCalcCheckForError:   {"Calculator", "Check for Error Result"},
	KindDisplayError:        {"Calculator", "Display Error"},
	KindDisplayAnswer:       {"Calculator", "Display Answer"},

	KindIsCharacterOperator:   {"Tokenizer", "Is Character Operator"},
	KindGenerateOperatorToken: {"Tokenizer", "Generate Operator Token"},
	KindFoundNumberComponent:  {"Tokenizer", "Found Number Component"},
	KindGenerateNumberToken:   {"Tokenizer", "Generate Number Token"},
	KindInvalidNumber:         {"Tokenizer", "Invalid Number Found"},
	KindTokenizerGenerated:    {"Tokenizer", "Generated Tokens"},

	KindDetectedPercent:  {"Lexer", "Detected Percent Symbol"},
	KindDetectedNegative: {"Lexer", "Detected Negative Symbol"},
	KindNoAnalysisNeeded: {"Lexer", "No Analysis Needed"},
	KindLexerGenerated:   {"Lexer", "Generated Tokens"},

	KindSendForShunting:         {"Calculator", "Sending Tokens to Shunting Yard Algorithm"},
	KindMoveToOutputQueue:       {"Shunting Yard", "Moving Number Token to Output Queue"},
	KindOperatorToOperatorStack: {"Shunting Yard", "Operator Found, Moving to Operator Stack"},
	KindHigherPrecedence:        {"Shunting Yard", "Operator Stack Has Higher Precedence Operator"},
	KindPrecedenceOK:            {"Shunting Yard", "Operator Precedence OK"},
	KindAllTokensAnalyzed:       {"Shunting Yard", "All Tokens Analyzed"},
	KindOpStackToOutputQueue:    {"Shunting Yard", "Moving Remaining Operators From Operator Stack to Output Queue"},
	KindShuntingComplete:        {"Calculator", "Shunting Complete, Performing Arithmetic Operations On"},

	KindNumberToOperandStack:      {"Evaluator", "Moving Number to Operand Stack"},
	KindOperatorFound:             {"Evaluator", "Operator Found"},
	KindCheckingAvailableOperands: {"Evaluator", "Checking for Available Operands"},
	KindErrorFound:                {"Evaluator", "ERROR!"},
	KindFoundSufficientOperands:   {"Evaluator", "Found Sufficient Operands"},
	KindPullingOperand:            {"Evaluator", "Pulling Operands from Operand Stack"},
	KindCallingArithmetic:         {"Evaluator", "Calling Arithmetic Operation"},
	KindEvalCheckForError:         {"Evaluator", "Check for Error Result"},
	KindCheckOverflowFlag:         {"Evaluator", "Check for Overflow Flag Set"},
	KindCheckUnderflowFlag:        {"Evaluator", "Check for Underflow Flag Set"},
	KindCheckDivideByZeroFlag:     {"Evaluator", "Check for Divide by Zero Flag Set"},
	KindExpectOneToken:            {"Evaluator", "Expect Stack to Have One Token Remaining"},
	KindTrimZeroes:                {"Evaluator", "Trimming Extra Zeroes"},
	KindCheckWholeNumber:          {"Evaluator", "Checking for Whole Number"},
	KindTrimDecimal:               {"Evaluator", "Trimming Decimal"},

	KindCheckForPercent:   {"Arithmetic", "Check for Percent Operator"},
	KindPercentArithmetic: {"Arithmetic", "Percent Arithmetic"},
	KindCheckOverflow:     {"Arithmetic", "Check for Overflow"},
	KindCheckUnderflow:    {"Arithmetic", "Check for Underflow"},
	KindCheckDivideByZero: {"Arithmetic", "Check for Divide by Zero"},
	KindPerformArithmetic: {"Arithmetic", "Perform Arithmetic"},
}

// Component returns the pipeline stage that reports the event.
func (k Kind) Component() string {
	if k < 0 || k >= numKinds {
		return "Unknown"
	}
	return kindNames[k].component
}

// Title returns the human-readable event name without the component.
func (k Kind) Title() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k].title
}

// String returns "Component::Title".
func (k Kind) String() string {
	return k.Component() + "::" + k.Title()
}

// Event is one diagnostic record.
type Event struct {
	Kind   Kind
	EvalID string // evaluation the event belongs to, empty outside one
	Detail string
}

// Sink receives diagnostic events. Implementations must never fail or block
// the caller; errors are theirs to swallow.
type Sink interface {
	Record(e Event)
	Enabled() bool
}

// CounterResetter is implemented by sinks that keep per-kind counters.
type CounterResetter interface {
	ResetCounters()
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Event) {}
func (discard) Enabled() bool { return false }

// Record formats and records an event on s. Formatting is skipped entirely
// when s is nil or disabled.
func Record(s Sink, kind Kind, format string, args ...interface{}) {
	if s == nil || !s.Enabled() {
		return
	}
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	s.Record(Event{Kind: kind, Detail: detail})
}

// WithEvalID returns a sink that stamps id onto every event before handing it
// to s.
func WithEvalID(s Sink, id string) Sink {
	if s == nil {
		return Discard
	}
	return &stamped{next: s, id: id}
}

type stamped struct {
	next Sink
	id   string
}

func (s *stamped) Record(e Event) {
	e.EvalID = s.id
	s.next.Record(e)
}

func (s *stamped) Enabled() bool { return s.next.Enabled() }

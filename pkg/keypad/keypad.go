// Package keypad models the calculator's display and the keys that edit it.
package keypad

import (
	"strings"

	"github.com/lemonberrylabs/five-function-calculator/pkg/calc"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// InvalidPrefix is put in front of an expression that evaluated to ERROR.
const InvalidPrefix = "INVALID: "

// Key is a keypad button.
type Key rune

const (
	KeyDecimal    Key = '.'
	KeyAdd        Key = '+'
	KeySubtract   Key = '-'
	KeyMultiply   Key = '*'
	KeyDivide     Key = '/'
	KeyPercent    Key = '%'
	KeyEquals     Key = '='
	KeyClear      Key = 'C'
	KeyClearEntry Key = '<'
	KeyTrace      Key = 'T'
)

// IsDigit reports whether k is one of 0-9.
func (k Key) IsDigit() bool { return k >= '0' && k <= '9' }

func (k Key) isOperator() bool {
	switch k {
	case KeyAdd, KeySubtract, KeyMultiply, KeyDivide, KeyPercent:
		return true
	}
	return false
}

// Valid reports whether k is a known button.
func (k Key) Valid() bool {
	switch {
	case k.IsDigit(), k.isOperator():
		return true
	}
	switch k {
	case KeyDecimal, KeyEquals, KeyClear, KeyClearEntry, KeyTrace:
		return true
	}
	return false
}

// Keystroke maps a text keystroke to a key. Enter evaluates, Escape clears
// and Backspace or Delete drops the last character. Letters c and t are
// accepted for clear and trace.
func Keystroke(r rune) (Key, bool) {
	switch r {
	case '\n', '\r':
		return KeyEquals, true
	case '\x1b', 'c':
		return KeyClear, true
	case '\b', '\x7f':
		return KeyClearEntry, true
	case 't':
		return KeyTrace, true
	}
	k := Key(r)
	return k, k.Valid()
}

// Toggler is implemented by sinks that can be switched on and off.
type Toggler interface {
	Toggle() bool
}

// State is a snapshot of a display.
type State struct {
	Text             string `json:"display"`
	ClearOnNextDigit bool   `json:"clearOnNextDigit"`
	LastResult       string `json:"lastResult,omitempty"`
	Outcome          string `json:"outcome,omitempty"`
}

// Display is the calculator screen together with the editing rules applied
// by each key. It is not safe for concurrent use.
type Display struct {
	calc *calc.Calculator
	sink trace.Sink

	text             string
	clearOnNextDigit bool
	lastResult       string
}

// New creates an empty display evaluating with a calculator that reports to
// sink. If sink implements Toggler the trace key switches it; if it
// implements trace.CounterResetter its counters are reset after an ERROR.
func New(sink trace.Sink) *Display {
	if sink == nil {
		sink = trace.Discard
	}
	return &Display{calc: calc.New(sink), sink: sink}
}

// Text returns what the display currently shows.
func (d *Display) Text() string { return d.text }

// State returns a snapshot of the display.
func (d *Display) State() State {
	s := State{
		Text:             d.text,
		ClearOnNextDigit: d.clearOnNextDigit,
		LastResult:       d.lastResult,
	}
	if d.lastResult != "" {
		s.Outcome = string(calc.Classify(d.lastResult))
	}
	return s
}

// Press handles a button click. Unknown keys only clear a pending invalid
// expression warning.
func (d *Display) Press(k Key) {
	trace.Record(d.sink, trace.KindButtonPressed, "%c", rune(k))
	d.handle(k)
}

// Type handles text keystrokes one rune at a time. Runes that map to no key
// are ignored.
func (d *Display) Type(keys string) {
	for _, r := range keys {
		trace.Record(d.sink, trace.KindKeyPressed, "%q", r)
		k, ok := Keystroke(r)
		if !ok {
			d.clearInvalidWarning()
			continue
		}
		d.handle(k)
	}
}

func (d *Display) handle(k Key) {
	d.clearInvalidWarning()

	switch {
	case k.IsDigit(), k == KeyDecimal:
		if d.clearOnNextDigit {
			d.text = ""
			d.clearOnNextDigit = false
		}
		d.text += string(rune(k))
	case k.isOperator():
		d.text += string(rune(k))
		d.clearOnNextDigit = false
	case k == KeyClear:
		d.text = ""
		d.clearOnNextDigit = false
	case k == KeyClearEntry:
		if d.text != "" {
			d.text = d.text[:len(d.text)-1]
		}
		d.clearOnNextDigit = false
	case k == KeyEquals:
		d.clearOnNextDigit = true
		d.equals()
	case k == KeyTrace:
		if t, ok := d.sink.(Toggler); ok {
			t.Toggle()
		}
	}
}

func (d *Display) clearInvalidWarning() {
	if !strings.Contains(d.text, InvalidPrefix) {
		return
	}
	d.text = strings.ReplaceAll(d.text, InvalidPrefix, "")
	trace.Record(d.sink, trace.KindClearInvalidWarning, "%s", d.text)
}

func (d *Display) equals() {
	expression := d.text
	trace.Record(d.sink, trace.KindSendExpression, "%s", expression)

	answer := d.calc.Calculate(expression)
	d.lastResult = answer
	outcome := calc.Classify(answer)
	trace.Record(d.sink, trace.KindCalcCheckForError, "%t", outcome != calc.OutcomeValue)

	if outcome != calc.OutcomeError {
		d.text = answer
		trace.Record(d.sink, trace.KindDisplayAnswer, "%s", answer)
		return
	}

	d.text = InvalidPrefix + expression
	trace.Record(d.sink, trace.KindDisplayError, "%s", d.text)
	if r, ok := d.sink.(trace.CounterResetter); ok {
		r.ResetCounters()
	}
}

package trace

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultPanelSize is the number of lines the in-memory panel keeps.
const DefaultPanelSize = 1000

// unableToOpen is shown in the panel when the trace file cannot be used.
const unableToOpen = "UNABLE TO OPEN LOG FILE!"

// Options configures a Tracelog.
type Options struct {
	// Path of the trace file. Empty disables persistence.
	Path string
	// PanelSize bounds the in-memory panel; 0 means DefaultPanelSize.
	PanelSize int
	// Disabled starts the tracelog switched off.
	Disabled bool
}

// Tracelog is a Sink that keeps the most recent events as formatted lines
// and appends every event to a JSON-lines file. It is safe for concurrent
// use.
type Tracelog struct {
	mu        sync.Mutex
	enabled   bool
	counts    [numKinds]int
	panel     []string
	panelSize int

	file   *os.File
	logger zerolog.Logger
	warned bool
}

// Open creates a Tracelog. An existing trace file is truncated. Open never
// fails: if the file cannot be created the problem is reported in the panel
// and the tracelog keeps working without persistence.
func Open(opts Options) *Tracelog {
	size := opts.PanelSize
	if size <= 0 {
		size = DefaultPanelSize
	}
	t := &Tracelog{
		enabled:   !opts.Disabled,
		panelSize: size,
		logger:    zerolog.Nop(),
	}

	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			t.warn()
		} else {
			t.file = f
			t.logger = zerolog.New(&fileWriter{t: t, w: f}).With().Timestamp().Logger()
		}
	}
	return t
}

// Record implements Sink.
func (t *Tracelog) Record(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled || e.Kind < 0 || e.Kind >= numKinds {
		return
	}
	t.counts[e.Kind]++
	count := t.counts[e.Kind]

	line := fmt.Sprintf("%s\n  (count: %d)", e.Kind, count)
	if e.Detail != "" {
		line += " -> " + e.Detail
	}
	t.appendLine(line)

	ev := t.logger.Info().
		Str("component", e.Kind.Component()).
		Str("event", e.Kind.Title()).
		Int("count", count)
	if e.EvalID != "" {
		ev = ev.Str("eval", e.EvalID)
	}
	ev.Msg(e.Detail)
}

// Enabled implements Sink.
func (t *Tracelog) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Enable switches recording on.
func (t *Tracelog) Enable() {
	t.mu.Lock()
	t.enabled = true
	t.mu.Unlock()
}

// Disable switches recording off.
func (t *Tracelog) Disable() {
	t.mu.Lock()
	t.enabled = false
	t.mu.Unlock()
}

// Toggle flips the recording state and returns the new state.
func (t *Tracelog) Toggle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = !t.enabled
	return t.enabled
}

// ResetCounters zeroes the per-kind counters.
func (t *Tracelog) ResetCounters() {
	t.mu.Lock()
	t.counts = [numKinds]int{}
	t.mu.Unlock()
}

// Count returns how many events of kind k were recorded since the last reset.
func (t *Tracelog) Count(k Kind) int {
	if k < 0 || k >= numKinds {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[k]
}

// Lines returns a copy of the panel, oldest first.
func (t *Tracelog) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.panel))
	copy(out, t.panel)
	return out
}

// Clear empties the panel. The trace file is left untouched.
func (t *Tracelog) Clear() {
	t.mu.Lock()
	t.panel = nil
	t.mu.Unlock()
}

// Close releases the trace file.
func (t *Tracelog) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	t.logger = zerolog.Nop()
	return err
}

// appendLine must be called with mu held.
func (t *Tracelog) appendLine(line string) {
	if len(t.panel) >= t.panelSize {
		copy(t.panel, t.panel[1:])
		t.panel = t.panel[:len(t.panel)-1]
	}
	t.panel = append(t.panel, line)
}

// warn must be called with mu held or before t is shared.
func (t *Tracelog) warn() {
	if t.warned {
		return
	}
	t.warned = true
	t.appendLine(unableToOpen)
}

// fileWriter swallows write errors so a broken trace file never reaches the
// caller. It is only invoked from Record, which holds the tracelog lock.
type fileWriter struct {
	t *Tracelog
	w io.Writer
}

func (fw *fileWriter) Write(p []byte) (int, error) {
	if _, err := fw.w.Write(p); err != nil {
		fw.t.warn()
	}
	return len(p), nil
}

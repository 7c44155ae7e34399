// Package web provides the embedded web UI of the calculator server: a
// keypad page, the trace panel and a list of batch operations.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/five-function-calculator/pkg/keypad"
	"github.com/lemonberrylabs/five-function-calculator/pkg/store"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

//go:embed templates/*.html
var templateFS embed.FS

// sessionCookie holds the keypad session of a browser.
const sessionCookie = "calc_session"

// Tracelog is the part of trace.Tracelog the UI shows and controls.
type Tracelog interface {
	trace.Sink
	Lines() []string
	Toggle() bool
	Clear()
}

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	trace   Tracelog
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive    string
	TraceEnabled bool
	Data         interface{}
}

// New creates a new web UI handler.
func New(s *store.Store, tl Tracelog) *Handler {
	return &Handler{
		store: s,
		trace: tl,
		funcMap: template.FuncMap{
			"timeAgo":      timeAgo,
			"formatTime":   formatTime,
			"duration":     duration,
			"outcomeClass": outcomeClass,
			"stateClass":   stateClass,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive:    navActive,
		TraceEnabled: h.trace.Enabled(),
		Data:         data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.calculator)
	app.Post("/ui/press", h.press)
	app.Get("/ui/trace", h.tracePanel)
	app.Post("/ui/trace\\:toggle", h.toggleTrace)
	app.Post("/ui/trace\\:clear", h.clearTrace)
	app.Get("/ui/operations", h.operations)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type calculatorContent struct {
	Session *store.Session
	Rows    [][]button
}

type button struct {
	Label string
	Key   string
	Class string
}

// keypadRows is the button layout of the calculator page.
var keypadRows = [][]button{
	{{"C", "C", "clear"}, {"CE", "<", "clear"}, {"%", "%", "op"}, {"/", "/", "op"}},
	{{"7", "7", ""}, {"8", "8", ""}, {"9", "9", ""}, {"*", "*", "op"}},
	{{"4", "4", ""}, {"5", "5", ""}, {"6", "6", ""}, {"-", "-", "op"}},
	{{"1", "1", ""}, {"2", "2", ""}, {"3", "3", ""}, {"+", "+", "op"}},
	{{"0", "0", ""}, {".", ".", ""}, {"=", "=", "equals"}},
}

type traceContent struct {
	Lines []string
}

type operationsContent struct {
	Batches []*store.Batch
}

// --- Page Handlers ---

func (h *Handler) calculator(c *fiber.Ctx) error {
	sess := h.session(c)
	return h.render(c, "calculator.html", "calculator", calculatorContent{
		Session: sess,
		Rows:    keypadRows,
	})
}

func (h *Handler) press(c *fiber.Ctx) error {
	sess := h.session(c)

	var err error
	if key := c.FormValue("key"); key != "" {
		r, size := utf8.DecodeRuneInString(key)
		k := keypad.Key(r)
		if size != len(key) || !k.Valid() {
			return c.Status(400).SendString(fmt.Sprintf("unknown key %q", key))
		}
		_, err = h.store.PressButton(sess.ID, k)
	} else if keys := c.FormValue("keys"); keys != "" {
		_, err = h.store.PressKeys(sess.ID, keys)
	}
	if errors.Is(err, store.ErrNotFound) {
		// Deleted through the API between the two calls; start over.
		c.ClearCookie(sessionCookie)
	}
	return c.Redirect("/ui")
}

func (h *Handler) tracePanel(c *fiber.Ctx) error {
	return h.render(c, "trace.html", "trace", traceContent{Lines: h.trace.Lines()})
}

func (h *Handler) toggleTrace(c *fiber.Ctx) error {
	h.trace.Toggle()
	return c.Redirect(redirectTarget(c))
}

func (h *Handler) clearTrace(c *fiber.Ctx) error {
	h.trace.Clear()
	return c.Redirect("/ui/trace")
}

func (h *Handler) operations(c *fiber.Ctx) error {
	batches := h.store.ListBatches()
	// newest first
	for i, j := 0, len(batches)-1; i < j; i, j = i+1, j-1 {
		batches[i], batches[j] = batches[j], batches[i]
	}
	return h.render(c, "operations.html", "operations", operationsContent{Batches: batches})
}

// session returns the browser's keypad session, creating one and setting the
// cookie when needed.
func (h *Handler) session(c *fiber.Ctx) *store.Session {
	if id := c.Cookies(sessionCookie); id != "" {
		if sess, err := h.store.GetSession(id); err == nil {
			return sess
		}
	}
	sess := h.store.CreateSession()
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/ui",
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return sess
}

func redirectTarget(c *fiber.Ctx) string {
	switch c.FormValue("back") {
	case "trace":
		return "/ui/trace"
	default:
		return "/ui"
	}
}

// --- Template Helpers ---

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	default:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func duration(start, end time.Time) string {
	if end.IsZero() {
		return fmt.Sprintf("%s (running)", formatDuration(time.Since(start)))
	}
	return formatDuration(end.Sub(start))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func outcomeClass(outcome string) string {
	switch outcome {
	case "VALUE":
		return "outcome-value"
	case "ERROR":
		return "outcome-error"
	case "OVERFLOW", "UNDERFLOW":
		return "outcome-range"
	default:
		return ""
	}
}

func stateClass(state store.BatchState) string {
	switch state {
	case store.BatchRunning:
		return "state-active"
	case store.BatchSucceeded:
		return "state-succeeded"
	case store.BatchCancelled:
		return "state-cancelled"
	default:
		return ""
	}
}

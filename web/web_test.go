package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/five-function-calculator/pkg/store"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

func setupTestApp(t *testing.T) (*fiber.App, *store.Store, *trace.Tracelog) {
	t.Helper()
	tl := trace.Open(trace.Options{PanelSize: 100})
	s := store.New(tl)
	h := New(s, tl)
	app := fiber.New()
	h.Register(app)
	return app, s, tl
}

func get(t *testing.T, app *fiber.App, path string, cookie *http.Cookie) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func post(t *testing.T, app *fiber.App, path string, form url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func sessionFrom(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestCalculatorPage(t *testing.T) {
	app, s, _ := setupTestApp(t)

	req := httptest.NewRequest("GET", "/ui", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	body, _ := io.ReadAll(resp.Body)
	html := string(body)

	for _, want := range []string{`id="display"`, `value="="`, `value="&lt;"`, "Trace ON"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
	sessionFrom(t, resp)
	if n := len(s.ListSessions()); n != 1 {
		t.Errorf("expected one session, got %d", n)
	}
}

func TestRootRedirect(t *testing.T) {
	app, _, _ := setupTestApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 302 || resp.Header.Get("Location") != "/ui" {
		t.Errorf("expected redirect to /ui, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestPressKeys(t *testing.T) {
	app, s, _ := setupTestApp(t)

	resp := post(t, app, "/ui/press", url.Values{"key": {"7"}}, nil)
	if resp.StatusCode != 302 {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	cookie := sessionFrom(t, resp)

	for _, k := range []string{"*", "6", "="} {
		post(t, app, "/ui/press", url.Values{"key": {k}}, cookie)
	}
	sess, err := s.GetSession(cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State.Text != "42" {
		t.Errorf("display: got %q, want 42", sess.State.Text)
	}

	post(t, app, "/ui/press", url.Values{"keys": {"+8="}}, cookie)
	_, html := get(t, app, "/ui", cookie)
	if !strings.Contains(html, ">50</div>") {
		t.Errorf("expected display 50 in page")
	}
	if !strings.Contains(html, "outcome-value") {
		t.Error("expected outcome class for last result")
	}
}

func TestPressErrorShowsInvalidPrefix(t *testing.T) {
	app, s, _ := setupTestApp(t)
	// html/template escapes '+', so the expression avoids it.
	cookie := sessionFrom(t, post(t, app, "/ui/press", url.Values{"keys": {"5/0="}}, nil))

	sess, _ := s.GetSession(cookie.Value)
	if sess.State.Text != "INVALID: 5/0" {
		t.Errorf("display: got %q", sess.State.Text)
	}
	_, html := get(t, app, "/ui", cookie)
	if !strings.Contains(html, "INVALID: 5/0") || !strings.Contains(html, "outcome-error") {
		t.Error("expected invalid expression on page")
	}
}

func TestPressUnknownKey(t *testing.T) {
	app, _, _ := setupTestApp(t)
	for _, k := range []string{"x", "12"} {
		resp := post(t, app, "/ui/press", url.Values{"key": {k}}, nil)
		if resp.StatusCode != 400 {
			t.Errorf("key %q: expected 400, got %d", k, resp.StatusCode)
		}
	}
}

func TestStaleSessionCookie(t *testing.T) {
	app, s, _ := setupTestApp(t)
	stale := &http.Cookie{Name: sessionCookie, Value: "gone"}
	code, _ := get(t, app, "/ui", stale)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(s.ListSessions()) != 1 {
		t.Error("expected a fresh session for a stale cookie")
	}
}

func TestTracePage(t *testing.T) {
	app, _, tl := setupTestApp(t)

	_, html := get(t, app, "/ui/trace", nil)
	if !strings.Contains(html, "No trace events recorded") {
		t.Error("expected empty state message")
	}

	post(t, app, "/ui/press", url.Values{"keys": {"1+2="}}, nil)
	_, html = get(t, app, "/ui/trace", nil)
	if !strings.Contains(html, "Tokenizer::Generate Number Token") {
		t.Error("expected tokenizer events in trace panel")
	}

	resp := post(t, app, "/ui/trace:toggle", url.Values{"back": {"trace"}}, nil)
	if resp.Header.Get("Location") != "/ui/trace" || tl.Enabled() {
		t.Errorf("toggle: location %q, enabled %v", resp.Header.Get("Location"), tl.Enabled())
	}
	_, html = get(t, app, "/ui/trace", nil)
	if !strings.Contains(html, "Trace OFF") {
		t.Error("expected Trace OFF in nav")
	}

	post(t, app, "/ui/trace:clear", nil, nil)
	if len(tl.Lines()) != 0 {
		t.Error("clear left lines in the panel")
	}
}

func TestOperationsPage(t *testing.T) {
	app, s, _ := setupTestApp(t)

	_, html := get(t, app, "/ui/operations", nil)
	if !strings.Contains(html, "No batch operations yet") {
		t.Error("expected empty state message")
	}

	b := s.CreateBatch([]string{"1", "2"})
	s.AppendBatchResult(b.Name, store.BatchResult{Expression: "1", Result: "1", Outcome: "VALUE"})
	_, html = get(t, app, "/ui/operations", nil)
	if !strings.Contains(html, b.Name) || !strings.Contains(html, "1 / 2") {
		t.Error("expected running batch with progress")
	}
	if !strings.Contains(html, "state-active") || !strings.Contains(html, "(running)") {
		t.Error("expected running state")
	}
}

func TestHelpers(t *testing.T) {
	if got := outcomeClass("OVERFLOW"); got != "outcome-range" {
		t.Errorf("outcomeClass: %q", got)
	}
	if got := stateClass(store.BatchCancelled); got != "state-cancelled" {
		t.Errorf("stateClass: %q", got)
	}
	if got := formatDuration(1500 * 1e6); got != "1.5s" {
		t.Errorf("formatDuration: %q", got)
	}
}

package integration

import (
	"net/http"
	"testing"
)

func createSession(t *testing.T) string {
	t.Helper()
	code, out := doJSON(t, "POST", "sessions", nil)
	if code != http.StatusCreated {
		t.Fatalf("create session: status %d: %v", code, out)
	}
	id, _ := out["id"].(string)
	if id == "" {
		t.Fatalf("create session: no id in %v", out)
	}
	t.Cleanup(func() { doJSON(t, "DELETE", "sessions/"+id, nil) })
	return id
}

func press(t *testing.T, id, keys string) map[string]interface{} {
	t.Helper()
	code, out := doJSON(t, "POST", "sessions/"+id+":press", map[string]string{"keys": keys})
	if code != http.StatusOK {
		t.Fatalf("press %q: status %d: %v", keys, code, out)
	}
	state, _ := out["state"].(map[string]interface{})
	return state
}

func TestSessionKeypad(t *testing.T) {
	requireHTTPServer(t)
	id := createSession(t)

	tests := []struct {
		keys    string
		display string
	}{
		{"12+3", "12+3"},
		{"=", "15"},
		{"*2=", "30"},
		{"7", "7"},
		{"+=", "INVALID: 7+"},
		{"\b", "7"},
		{"\x1b", ""},
	}
	for _, tt := range tests {
		state := press(t, id, tt.keys)
		if state["display"] != tt.display {
			t.Fatalf("after %q: display %v, want %q", tt.keys, state["display"], tt.display)
		}
	}
}

func TestSessionNotFound(t *testing.T) {
	requireHTTPServer(t)

	code, out := doJSON(t, "GET", "sessions/does-not-exist", nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	e, _ := out["error"].(map[string]interface{})
	if e["status"] != "NOT_FOUND" {
		t.Errorf("unexpected error envelope: %v", out)
	}
}

func TestSessionListed(t *testing.T) {
	requireHTTPServer(t)
	id := createSession(t)

	_, out := doJSON(t, "GET", "sessions", nil)
	sessions, _ := out["sessions"].([]interface{})
	for _, s := range sessions {
		if s.(map[string]interface{})["id"] == id {
			return
		}
	}
	t.Errorf("session %s not listed", id)
}

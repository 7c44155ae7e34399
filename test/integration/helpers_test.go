// Package integration exercises a running calc server over HTTP and gRPC.
// Start one with `calc serve` and point CALC_URL / CALC_GRPC_ENDPOINT at it;
// the tests skip when nothing is listening.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

// testServer holds the base URL of a running calc server for tests.
var testServer string

func init() {
	testServer = os.Getenv("CALC_URL")
	if testServer == "" {
		testServer = "http://localhost:8787"
	}
	// Ensure the URL has a scheme.
	if !strings.HasPrefix(testServer, "http://") && !strings.HasPrefix(testServer, "https://") {
		testServer = "http://" + testServer
	}
}

// requireServer skips the test when addr (host:port) is not accepting
// connections.
func requireServer(t *testing.T, addr string) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		t.Skipf("calc server not reachable at %s: %v", addr, err)
	}
	conn.Close()
}

func requireHTTPServer(t *testing.T) {
	t.Helper()
	u, err := url.Parse(testServer)
	if err != nil {
		t.Fatalf("invalid CALC_URL %q: %v", testServer, err)
	}
	requireServer(t, u.Host)
}

// apiURL builds a full URL for the given API path.
func apiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/v1/" + path
}

// doJSON sends body (if not nil) as JSON and decodes a JSON object response.
func doJSON(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, apiURL(path), r)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, data, err)
		}
	}
	return resp.StatusCode, out
}

// evaluate posts one expression and returns the result and outcome.
func evaluate(t *testing.T, expression string) (string, string) {
	t.Helper()
	code, out := doJSON(t, "POST", "evaluate", map[string]string{"expression": expression})
	if code != http.StatusOK {
		t.Fatalf("evaluate(%q): status %d: %v", expression, code, out)
	}
	result, _ := out["result"].(string)
	outcome, _ := out["outcome"].(string)
	return result, outcome
}

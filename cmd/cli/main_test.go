package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func TestPrintSyncStatus(t *testing.T) {
	out := captureOutput(t, func() {
		printSyncStatus(map[string]any{"online": true, "pendingCount": float64(3)})
	})

	if !strings.Contains(out, "Online: true") || !strings.Contains(out, "Pending: 3") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPrintQueue(t *testing.T) {
	out := captureOutput(t, func() {
		printQueue(map[string]any{
			"items": []any{
				map[string]any{
					"id":         "q1",
					"operation":  "create",
					"entityType": "transaction",
					"entityId":   "t1",
					"attempts":   float64(2),
					"lastError":  "api error: 503",
				},
			},
		})
	})

	if !strings.Contains(out, "Items: 1") || !strings.Contains(out, "q1") || !strings.Contains(out, `lastError="api error: 503"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sync/status" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"online":false,"pendingCount":7}`))
	}))
	defer server.Close()

	origURL := baseURL
	baseURL = server.URL
	defer func() { baseURL = origURL }()

	out := captureOutput(t, func() {
		getJSON("/api/v1/sync/status", printSyncStatus)
	})

	if !strings.Contains(out, "Online: false") || !strings.Contains(out, "Pending: 7") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

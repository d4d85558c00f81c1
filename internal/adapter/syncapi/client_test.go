package syncapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/khula/khulasync/internal/domain"
)

func TestClientCreate(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"t1","amount":50}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.Create(context.Background(), domain.EntityTypeTransaction, json.RawMessage(`{"amount":50}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/transactions" {
		t.Errorf("expected POST /transactions, got %s %s", gotMethod, gotPath)
	}
	if gotBody != `{"amount":50}` {
		t.Errorf("unexpected body: %s", gotBody)
	}

	var record map[string]any
	if err := json.Unmarshal(resp, &record); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if record["id"] != "t1" {
		t.Errorf("expected server record, got %v", record)
	}
}

func TestClientUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/accounts/a1" {
			t.Errorf("expected PUT /accounts/a1, got %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id":"a1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Update(context.Background(), domain.EntityTypeAccount, "a1", json.RawMessage(`{"name":"Savings"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/loans/l1" {
			t.Errorf("expected DELETE /loans/l1, got %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if err := client.Delete(context.Background(), domain.EntityTypeLoan, "l1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientEntityPaths(t *testing.T) {
	tests := []struct {
		entityType domain.EntityType
		wantPath   string
	}{
		{domain.EntityTypeTransaction, "/transactions"},
		{domain.EntityTypeAccount, "/accounts"},
		{domain.EntityTypeLoan, "/loans"},
		{domain.EntityTypeInvestment, "/investments"},
		// The user profile endpoint is singular, not "userProfiles".
		{domain.EntityTypeUserProfile, "/userProfile"},
	}

	for _, tt := range tests {
		t.Run(string(tt.entityType), func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			client := NewClient(srv.URL)
			if _, err := client.Create(context.Background(), tt.entityType, json.RawMessage(`{}`)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotPath != tt.wantPath {
				t.Errorf("expected path %s, got %s", tt.wantPath, gotPath)
			}
		})
	}
}

func TestClientNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"validation failed"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Create(context.Background(), domain.EntityTypeTransaction, json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
	if !strings.Contains(err.Error(), "status 422") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestClientSendsAuthToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithAuthToken("sekrit"))
	if _, err := client.Create(context.Background(), domain.EntityTypeTransaction, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

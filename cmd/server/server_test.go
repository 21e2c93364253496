package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/codr1/courtsync/internal/app"
	"github.com/codr1/courtsync/internal/config"
)

func TestServerRoutes(t *testing.T) {
	cfg, err := config.Parse([]byte(`
app:
  name: courtsync
  environment: test
  port: 8080
database:
  driver: sqlite
  filename: ` + filepath.Join(t.TempDir(), "server.db") + `
calendar:
  provider: memory
features:
  enable_metrics: true
`))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	handler := newServer(cfg, a).Handler

	tests := []struct {
		name   string
		method string
		path   string
		userID string
		role   string
		status int
	}{
		{"health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"status anonymous", http.MethodGet, "/api/v1/sync/status", "", "", http.StatusUnauthorized},
		{"status member", http.MethodGet, "/api/v1/sync/status", "5", "member", http.StatusForbidden},
		{"status admin", http.MethodGet, "/api/v1/sync/status", "1", "admin", http.StatusOK},
		{"missing reservation", http.MethodGet, "/api/v1/reservations/42", "1", "admin", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.userID != "" {
				req.Header.Set("X-User-ID", tc.userID)
				req.Header.Set("X-User-Role", tc.role)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatalf("missing X-Request-ID")
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	req.Header.Set("X-User-ID", "1")
	req.Header.Set("X-User-Role", "admin")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var counts map[string]int64
	if err := json.NewDecoder(rec.Body).Decode(&counts); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if _, ok := counts["total"]; !ok {
		t.Fatalf("status body = %v", counts)
	}
}

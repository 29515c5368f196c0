package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func staticLookup(ctx context.Context, apiKey string) (string, error) {
	if apiKey == "valid-key" {
		return "billing", nil
	}
	return "", ErrUnknownKey
}

func TestBearerAuth_ValidKey(t *testing.T) {
	var client string
	handler := BearerAuth(staticLookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client = ClientFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/send", nil)
	req.Header.Set("Authorization", "bearer valid-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if client != "billing" {
		t.Errorf("ClientFromContext() = %q, want billing", client)
	}
}

func TestBearerAuth_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"missing header", "", "authorization header required"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "invalid authorization format, expected Bearer <token>"},
		{"no token", "Bearer", "invalid authorization format, expected Bearer <token>"},
		{"blank token", "Bearer   ", "empty API key"},
		{"unknown key", "Bearer other-key", "invalid API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuth(staticLookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/send", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("expected JSON body: %v", err)
			}
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %q, want %q", body["error"], tt.wantMsg)
			}
		})
	}
}

func TestClientFromContext_NoClient(t *testing.T) {
	if name := ClientFromContext(context.Background()); name != "" {
		t.Errorf("ClientFromContext() = %q, want empty", name)
	}
}

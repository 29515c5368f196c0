package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sungwon/mailchannels-relay/internal/logger"
)

func TestRequestContext_GeneratesID(t *testing.T) {
	var buf bytes.Buffer
	var capturedID string

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = logger.CorrelationIDFromContext(r.Context())
		log := logger.FromContext(r.Context())
		log.Info().Msg("inside handler")
	})

	rec := httptest.NewRecorder()
	RequestContext(zerolog.New(&buf))(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if capturedID == "" {
		t.Fatal("expected correlation ID to be generated")
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != capturedID {
		t.Errorf("expected response header %s to match context ID %s", got, capturedID)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("handler did not log through the request logger: %v", err)
	}
	if entry["correlation_id"] != capturedID {
		t.Errorf("expected handler log tagged with %s, got %v", capturedID, entry["correlation_id"])
	}
}

func TestRequestContext_UsesExistingID(t *testing.T) {
	var capturedID string

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = logger.CorrelationIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Correlation-ID", "test-correlation-123")
	RequestContext(zerolog.Nop())(inner).ServeHTTP(httptest.NewRecorder(), req)

	if capturedID != "test-correlation-123" {
		t.Errorf("expected correlation ID test-correlation-123, got %s", capturedID)
	}
}

func TestObserve_LogsRequest(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"accepted", http.StatusAccepted, "info"},
		{"bad request", http.StatusBadRequest, "warn"},
		{"bad gateway", http.StatusBadGateway, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("ok"))
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/send", nil)
			Observe(zerolog.New(&buf))(inner).ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log output: %v", err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("expected level %s, got %v", tt.wantLevel, entry["level"])
			}
			if entry["method"] != "POST" || entry["path"] != "/api/v1/send" {
				t.Errorf("unexpected request fields %v", entry)
			}
			if status, ok := entry["status"].(float64); !ok || int(status) != tt.status {
				t.Errorf("expected status %d, got %v", tt.status, entry["status"])
			}
			if n, ok := entry["bytes"].(float64); !ok || int(n) != 2 {
				t.Errorf("expected 2 bytes, got %v", entry["bytes"])
			}
		})
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	var buf bytes.Buffer

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	Recover(zerolog.New(&buf))(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func TestResponseRecorder_FirstStatusWins(t *testing.T) {
	rw := &responseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	rw.Write([]byte("abc"))

	if rw.status != http.StatusNotFound {
		t.Errorf("expected captured status 404, got %d", rw.status)
	}
	if rw.bytes != 3 {
		t.Errorf("expected 3 bytes counted, got %d", rw.bytes)
	}
}

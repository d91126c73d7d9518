package httpx

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChainOrder(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls = append(calls, "handler")
	}), mark("a"), mark("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(calls, ",") != "a,b,handler" {
		t.Fatalf("unexpected order: %v", calls)
	}
}

func TestWithRequestIDKeepsValidAndReplacesInvalid(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "req-123" || rw.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("expected propagated id, got %q / %q", seen, rw.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "has space")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "has space" || len(seen) != 32 {
		t.Fatalf("expected generated id, got %q", seen)
	}
}

func TestAccessLogRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), WithRequestID, WithAccessLog(logger))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil))
	out := buf.String()
	if !strings.Contains(out, `"status":418`) || !strings.Contains(out, `"path":"/api/v1/public/slots"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}

	if do() != http.StatusOK || do() != http.StatusOK {
		t.Fatal("expected first two requests to pass")
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	now = now.Add(time.Minute)
	if code := do(); code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", code)
	}
}

func TestOnlyScopesMiddleware(t *testing.T) {
	block := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	}
	h := Only(block, "/api/v1/public/slots")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil))
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected scoped middleware to run, got %d", rw.Code)
	}
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/api/v1/events/troubleshoot", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rw.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://book.example"},
		AllowedMethods: []string{"GET", "POST"},
		MaxAge:         10 * time.Minute,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/slots", nil)
	req.Header.Set("Origin", "https://book.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://book.example" {
		t.Fatalf("unexpected allow origin %q", rw.Header().Get("Access-Control-Allow-Origin"))
	}
	if rw.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("unexpected max age %q", rw.Header().Get("Access-Control-Max-Age"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS headers for unknown origin")
	}
}

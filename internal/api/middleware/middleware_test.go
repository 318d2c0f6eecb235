package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"/rooms", "/rooms"},
		{"/rooms/abc-123", "/rooms/:id"},
		{"/rooms/abc-123/messages", "/rooms/:id/messages"},
		{"/online", "/online"},
		{"/find", "/find"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc.in); got != tc.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoggerEmitsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/rooms", nil))

	line := buf.String()
	for _, want := range []string{`"method":"GET"`, `"path":"/rooms"`, `"status":418`, `"bytes":15`, "http request"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/rooms", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame options header")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP header")
	}
}

func TestMaxBodySize(t *testing.T) {
	handler := MaxBodySize(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/rooms", strings.NewReader(strings.Repeat("x", 100)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestValidateRequestContentType(t *testing.T) {
	handler := ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/rooms", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/rooms", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestContainsSuspiciousPatterns(t *testing.T) {
	bad := []string{"/rooms/../etc", "/a//b", "q=<script>alert(1)</script>", "javascript:void(0)"}
	for _, input := range bad {
		if !containsSuspiciousPatterns(input) {
			t.Errorf("expected %q to be flagged", input)
		}
	}

	good := []string{"", "/rooms/abc-123/messages", "q=hello+world"}
	for _, input := range good {
		if containsSuspiciousPatterns(input) {
			t.Errorf("expected %q to pass", input)
		}
	}
}

func TestFindLimitLongestPrefix(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{})

	req := httptest.NewRequest("POST", "/rooms/abc-123/messages", nil)
	limit := rl.findLimit(req)
	if limit == nil {
		t.Fatal("expected a limit for message posting")
	}
	if limit.Window != time.Minute || limit.Requests != 30 {
		t.Fatalf("expected message limit 30/min, got %d/%s", limit.Requests, limit.Window)
	}

	req = httptest.NewRequest("POST", "/rooms", nil)
	limit = rl.findLimit(req)
	if limit == nil {
		t.Fatal("expected a limit for room creation")
	}
	if limit.Window != time.Hour || limit.Requests != 10 {
		t.Fatalf("expected creation limit 10/hour, got %d/%s", limit.Requests, limit.Window)
	}
}

func TestWhitelist(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{
		Whitelist: []string{"10.0.0.1", "192.168.0.0/16"},
	})

	if !rl.isWhitelisted("10.0.0.1") {
		t.Error("exact IP should be whitelisted")
	}
	if !rl.isWhitelisted("192.168.4.7") {
		t.Error("CIDR member should be whitelisted")
	}
	if rl.isWhitelisted("10.0.0.2") {
		t.Error("unlisted IP should not be whitelisted")
	}
}

func TestRealIPHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/rooms", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := RealIP(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded IP, got %q", got)
	}

	req = httptest.NewRequest("GET", "/rooms", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	if got := RealIP(req); got != "127.0.0.1" {
		t.Fatalf("expected remote addr IP, got %q", got)
	}
}

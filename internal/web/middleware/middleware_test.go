package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		want       string
	}{
		{"trusted proxy with X-Real-IP", "10.1.2.3:5000", "203.0.113.7", "", "203.0.113.7"},
		{"trusted proxy with X-Forwarded-For", "10.1.2.3:5000", "", "203.0.113.9, 10.1.2.3", "203.0.113.9"},
		{"trusted bare IP", "192.168.1.1:80", "198.51.100.2", "", "198.51.100.2"},
		{"untrusted client spoofing", "198.51.100.50:4000", "203.0.113.7", "", "198.51.100.50:4000"},
		{"trusted proxy with invalid header", "10.1.2.3:5000", "not-an-ip", "", "10.1.2.3:5000"},
	}

	handler := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.1", "bogus"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	nets := ParseTrustedProxies([]string{"10.0.0.0/8", " 127.0.0.1 ", "::1", "", "nope"})
	if len(nets) != 3 {
		t.Fatalf("got %d networks, want 3", len(nets))
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("ClientIP = %q, want 203.0.113.7", got)
	}
	req.RemoteAddr = "203.0.113.8"
	if got := ClientIP(req); got != "203.0.113.8" {
		t.Errorf("ClientIP = %q, want 203.0.113.8", got)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("gone"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/records", nil))

	out := buf.String()
	for _, want := range []string{"level=WARN", "status=404", "bytes=4", "path=/api/records"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		required bool
		keys     []string
		header   string
		want     int
	}{
		{"disabled", false, nil, "", http.StatusNoContent},
		{"missing", true, []string{"a"}, "", http.StatusUnauthorized},
		{"invalid", true, []string{"a"}, "b", http.StatusForbidden},
		{"second key", true, []string{"a", "b"}, "b", http.StatusNoContent},
		{"required with no keys", true, nil, "a", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/publish", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.required, tt.keys)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

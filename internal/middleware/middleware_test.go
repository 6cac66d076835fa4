package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want %d", rw.statusCode, http.StatusNotFound)
	}

	// Second WriteHeader must not overwrite the first
	rw.WriteHeader(http.StatusOK)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode after second WriteHeader = %d, want %d", rw.statusCode, http.StatusNotFound)
	}
}

func TestResponseWriterCountsBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, err := rw.Write([]byte(" world")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	if rw.bytesWritten != 11 {
		t.Errorf("bytesWritten = %d, want 11", rw.bytesWritten)
	}
	if rw.statusCode != http.StatusOK {
		t.Errorf("implicit statusCode = %d, want 200", rw.statusCode)
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "GET", "GET"},
		{"newline replaced", "a\nb", "a b"},
		{"carriage return replaced", "a\rb", "a b"},
		{"null stripped", "a\x00b", "ab"},
		{"ansi escape stripped", "a\x1b[31mb", "a[31mb"},
		{"tab preserved", "a\tb", "a\tb"},
		{"control chars stripped", "a\x07b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.input); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestShouldSkip(t *testing.T) {
	config := LoggingConfig{
		SkipPaths:       []string{"/internal"},
		LogHealthChecks: false,
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/api/fetch", false},
		{"/internal/debug", true},
		{"/health", true},
		{"/healthz", true},
		{"/livez", true},
		{"/readyz", true},
		{"/", false},
	}

	for _, tt := range tests {
		if got := shouldSkip(tt.path, config); got != tt.want {
			t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	// Health checks logged when enabled
	config.LogHealthChecks = true
	if shouldSkip("/health", config) {
		t.Error("shouldSkip(/health) = true with LogHealthChecks enabled")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:   "remote addr only",
			remote: "192.0.2.1:54321",
			want:   "192.0.2.1",
		},
		{
			name:    "x-forwarded-for single",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:    "203.0.113.7",
		},
		{
			name:    "x-forwarded-for chain takes first",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			want:    "203.0.113.7",
		},
		{
			name:    "x-real-ip",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "198.51.100.3"},
			want:    "198.51.100.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := getClientIP(r); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/fetch/0b6f2c1a-8a44-4a5b-9d29-2f6f8b1c3d4e", "/api/fetch/{id}"},
		{"/api/fetch/0b6f2c1a-8a44-4a5b-9d29-2f6f8b1c3d4e/file", "/api/fetch/{id}/file"},
		{"/api/fetch/abc/thumbnail", "/api/fetch/{id}/thumbnail"},
		{"/api/fetches", "/api/fetches"},
		{"/api/fetch", "/api/fetch"},
		{"/health", "/health"},
		{"/", "/"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLoggerMiddlewarePassesThrough(t *testing.T) {
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		if _, err := w.Write([]byte("short and stout")); err != nil {
			t.Errorf("Write() error: %v", err)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fetches", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fetch", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	// Skipped paths still reach the handler
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("status for skipped path = %d, want %d", rec.Code, http.StatusCreated)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSPreflightAllowedOrigin(t *testing.T) {
	nextCalled := false
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.blog.example"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusTeapot)
	}))

	request := httptest.NewRequest(http.MethodOptions, "/v1/generate", nil)
	request.Header.Set("Origin", "https://app.blog.example")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	request.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}
	if nextCalled {
		t.Fatalf("expected preflight to short-circuit chain")
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://app.blog.example" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
		t.Fatalf("expected POST in allow methods, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(strings.ToLower(got), "authorization") {
		t.Fatalf("expected authorization in allow headers, got %q", got)
	}
}

func TestCORSAllowsActualRequestFromAllowedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.blog.example"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodPost, "/v1/generate", nil)
	request.Header.Set("Origin", "https://app.blog.example")
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://app.blog.example" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
}

func TestCORSIgnoresDisallowedOrigin(t *testing.T) {
	nextCalled := false
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.blog.example"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodOptions, "/v1/generate", nil)
	request.Header.Set("Origin", "https://evil.example")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected passthrough status %d, got %d", http.StatusOK, recorder.Code)
	}
	if !nextCalled {
		t.Fatalf("expected disallowed origin preflight to pass through")
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header for disallowed origin, got %q", got)
	}
}

func TestCORSCredentialsAndExposedHeaders(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins:   []string{"https://app.blog.example"},
		AllowCredentials: true,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	request := httptest.NewRequest(http.MethodPost, "/v1/generate", nil)
	request.Header.Set("Origin", "https://app.blog.example")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if got := recorder.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials header, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Retry-After") {
		t.Fatalf("expected Retry-After to be exposed, got %q", got)
	}
}

func TestCORSWildcardNeverAllowsCredentials(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	request := httptest.NewRequest(http.MethodOptions, "/v1/generate", nil)
	request.Header.Set("Origin", "https://anything.example")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("wildcard origin must not allow credentials, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, OwnerHeader) {
		t.Fatalf("expected owner header to be allowed, got %q", got)
	}
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenRouterClientGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not_found"}`))
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"anthropic/claude-3.5-sonnet",
			"choices":[{"message":{"role":"assistant","content":"# Title\n\nBody text."}}],
			"usage":{"prompt_tokens":123,"completion_tokens":22,"total_tokens":145}
		}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		AppName: "Blog Generator Test",
	})

	result, err := client.Generate(context.Background(), GenerateRequest{
		Model:           "anthropic/claude-3.5-sonnet",
		Instructions:    "Write markdown",
		Input:           "test prompt",
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.Text != "# Title\n\nBody text." {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Usage.TotalTokens != 145 {
		t.Fatalf("expected total tokens 145, got %d", result.Usage.TotalTokens)
	}
}

func TestOpenRouterClientDoesNotRetryRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})
	_, err := client.Generate(context.Background(), GenerateRequest{
		Model:           "anthropic/claude-3.5-sonnet",
		Input:           "test",
		Temperature:     0.7,
		MaxOutputTokens: 200,
	})
	if err == nil {
		t.Fatalf("expected rate limit error")
	}
	if kind := KindOf(err); kind != FailureRateLimit {
		t.Fatalf("expected rate_limit kind, got %q", kind)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 call, got %d", got)
	}
}

func TestOpenRouterClientServerErrorIsProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterClientConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x", MaxOutputTokens: 10})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.Kind != FailureProvider || providerErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected provider error %+v", providerErr)
	}
}

func TestOpenRouterClientMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"m","choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterClientConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x", MaxOutputTokens: 10})
	if kind := KindOf(err); kind != FailureMalformedResponse {
		t.Fatalf("expected malformed_response, got %q (err=%v)", kind, err)
	}
}

func TestOpenRouterClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x", MaxOutputTokens: 10})
	if kind := KindOf(err); kind != FailureTimeout {
		t.Fatalf("expected timeout kind, got %q (err=%v)", kind, err)
	}
}

func TestOpenRouterClientParsesArrayContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"anthropic/claude-3.5-sonnet",
			"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"line 1"},{"type":"text","text":"line 2"}]}}],
			"usage":{"prompt_tokens":5,"completion_tokens":5,"total_tokens":10}
		}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})
	result, err := client.Generate(context.Background(), GenerateRequest{
		Model:           "anthropic/claude-3.5-sonnet",
		Input:           "test",
		Temperature:     0.7,
		MaxOutputTokens: 200,
	})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if got := result.Text; got != "line 1\nline 2" {
		t.Fatalf("unexpected parsed text: %q", got)
	}
}

func TestOpenRouterClientUnavailableWithoutKey(t *testing.T) {
	client := NewOpenRouterClient(OpenRouterClientConfig{
		APIKey: "",
	})
	_, err := client.Generate(context.Background(), GenerateRequest{
		Model:           "anthropic/claude-3.5-sonnet",
		Input:           "test",
		MaxOutputTokens: 200,
	})
	if err == nil {
		t.Fatalf("expected unavailable error")
	}
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestOpenRouterClientSendsOptionalHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("HTTP-Referer"); got != "https://example.com" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(fmt.Sprintf(`{"error":"unexpected referer %q"}`, got)))
			return
		}
		if got := r.Header.Get("X-Title"); got != "Blog Generator" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(fmt.Sprintf(`{"error":"unexpected title %q"}`, got)))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"anthropic/claude-3.5-sonnet",
			"choices":[{"message":{"role":"assistant","content":"ok"}}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}
		}`))
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		SiteURL: "https://example.com",
	})
	_, err := client.Generate(context.Background(), GenerateRequest{
		Model:           "anthropic/claude-3.5-sonnet",
		Input:           "test",
		MaxOutputTokens: 200,
	})
	if err != nil {
		t.Fatalf("expected success with optional headers, got err=%v", err)
	}
}

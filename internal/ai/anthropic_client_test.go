package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnthropicClientGenerateSuccess(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"error"}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"claude-3-5-sonnet-latest",
			"content":[{"type":"text","text":"# Remote Work\n\nStay focused."}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":40,"output_tokens":12}
		}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})
	result, err := client.Generate(context.Background(), GenerateRequest{
		Model:           "claude-3-5-sonnet-latest",
		Instructions:    "You are a writer",
		Input:           "Write about remote work",
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.Text != "# Remote Work\n\nStay focused." {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Usage.TotalTokens != 52 {
		t.Fatalf("expected 52 total tokens, got %d", result.Usage.TotalTokens)
	}
	if captured["system"] != "You are a writer" {
		t.Fatalf("expected system prompt in payload, got %v", captured["system"])
	}
	if captured["max_tokens"] != float64(4096) {
		t.Fatalf("expected max_tokens 4096, got %v", captured["max_tokens"])
	}
}

func TestAnthropicClientRejectsNonTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"m","content":[{"type":"tool_use","id":"x"}]}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicClientConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x", MaxOutputTokens: 10})
	if kind := KindOf(err); kind != FailureMalformedResponse {
		t.Fatalf("expected malformed_response, got %q (err=%v)", kind, err)
	}
}

func TestAnthropicClientRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicClientConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x", MaxOutputTokens: 10})
	if kind := KindOf(err); kind != FailureRateLimit {
		t.Fatalf("expected rate_limit, got %q (err=%v)", kind, err)
	}
}

func TestAnthropicClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewAnthropicClient(AnthropicClientConfig{APIKey: "test-key", BaseURL: baseURL})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x", MaxOutputTokens: 10})
	if kind := KindOf(err); kind != FailureTransport {
		t.Fatalf("expected transport kind, got %q (err=%v)", kind, err)
	}
}

func TestAnthropicClientUnavailableWithoutKey(t *testing.T) {
	client := NewAnthropicClient(AnthropicClientConfig{})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestModelRouterProfiles(t *testing.T) {
	router := NewModelRouter(ModelRouterConfig{ArticlePrimary: "custom-model"})

	article := router.Select(TaskArticle)
	if article.PrimaryModel != "custom-model" || article.MaxOutputTokens != 4096 || article.Temperature != 0.7 {
		t.Fatalf("unexpected article profile %+v", article)
	}
	keywords := router.Select(TaskKeywords)
	if keywords.MaxOutputTokens != 512 || keywords.Temperature != 0.3 {
		t.Fatalf("unexpected keywords profile %+v", keywords)
	}
	if router.Select(TaskRewrite).MaxOutputTokens != 2048 {
		t.Fatalf("unexpected rewrite token budget")
	}
}

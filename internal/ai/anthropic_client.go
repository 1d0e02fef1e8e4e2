package ai

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicProvider   = "anthropic"
	anthropicAPIVersion = "2023-06-01"
)

type AnthropicClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// AnthropicClient calls the Messages API.
type AnthropicClient struct {
	endpoint jsonEndpoint
	apiKey   string
	url      string
}

func NewAnthropicClient(config AnthropicClientConfig) *AnthropicClient {
	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &AnthropicClient{
		endpoint: jsonEndpoint{provider: anthropicProvider, httpClient: config.HTTPClient, timeout: config.Timeout},
		apiKey:   strings.TrimSpace(config.APIKey),
		url:      strings.TrimSuffix(baseURL, "/") + "/messages",
	}
}

func (c *AnthropicClient) Available() bool {
	return c.apiKey != ""
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *AnthropicClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrProviderUnavailable
	}
	if err := validateRequest(request); err != nil {
		return GenerateResult{}, err
	}

	body := messagesRequest{
		Model:       request.Model,
		MaxTokens:   request.MaxOutputTokens,
		Temperature: request.Temperature,
		System:      strings.TrimSpace(request.Instructions),
		Messages:    []chatMessage{{Role: "user", Content: request.Input}},
	}

	headers := http.Header{}
	headers.Set("x-api-key", c.apiKey)
	headers.Set("anthropic-version", anthropicAPIVersion)

	var response messagesResponse
	if err := c.endpoint.post(ctx, c.url, headers, body, &response); err != nil {
		return GenerateResult{}, err
	}

	// Only a leading text block is accepted; tool_use or empty content is malformed.
	if len(response.Content) == 0 || response.Content[0].Type != "text" || strings.TrimSpace(response.Content[0].Text) == "" {
		return GenerateResult{}, malformed(anthropicProvider, "unexpected response format", nil)
	}

	return GenerateResult{
		Text:    strings.TrimSpace(response.Content[0].Text),
		ModelID: firstNonEmpty(response.Model, request.Model),
		Usage: TokenUsage{
			InputTokens:  response.Usage.InputTokens,
			OutputTokens: response.Usage.OutputTokens,
			TotalTokens:  response.Usage.InputTokens + response.Usage.OutputTokens,
		},
	}, nil
}

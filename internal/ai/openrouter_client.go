package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const openRouterProvider = "openrouter"

type OpenRouterClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// SiteURL and AppName feed OpenRouter's attribution headers.
	SiteURL string
	AppName string
}

// OpenRouterClient talks to the OpenAI-compatible chat completions endpoint.
type OpenRouterClient struct {
	endpoint jsonEndpoint
	apiKey   string
	url      string
	siteURL  string
	appName  string
}

func NewOpenRouterClient(config OpenRouterClientConfig) *OpenRouterClient {
	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	appName := strings.TrimSpace(config.AppName)
	if appName == "" {
		appName = "Blog Generator"
	}

	return &OpenRouterClient{
		endpoint: jsonEndpoint{provider: openRouterProvider, httpClient: config.HTTPClient, timeout: config.Timeout},
		apiKey:   strings.TrimSpace(config.APIKey),
		url:      strings.TrimSuffix(baseURL, "/") + "/chat/completions",
		siteURL:  strings.TrimSpace(config.SiteURL),
		appName:  appName,
	}
}

func (c *OpenRouterClient) Available() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *OpenRouterClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrProviderUnavailable
	}
	if err := validateRequest(request); err != nil {
		return GenerateResult{}, err
	}

	body := chatCompletionRequest{
		Model:       request.Model,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxOutputTokens,
	}
	if system := strings.TrimSpace(request.Instructions); system != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: system})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: request.Input})

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.apiKey)
	if c.siteURL != "" {
		headers.Set("HTTP-Referer", c.siteURL)
	}
	headers.Set("X-Title", c.appName)

	var response chatCompletionResponse
	if err := c.endpoint.post(ctx, c.url, headers, body, &response); err != nil {
		return GenerateResult{}, err
	}

	text := response.text()
	if text == "" {
		return GenerateResult{}, malformed(openRouterProvider, "response without text output", nil)
	}
	return GenerateResult{
		Text:    text,
		ModelID: firstNonEmpty(response.Model, request.Model),
		Usage: TokenUsage{
			InputTokens:  response.Usage.PromptTokens,
			OutputTokens: response.Usage.CompletionTokens,
			TotalTokens:  response.Usage.TotalTokens,
		},
	}, nil
}

// text reads the first choice, whose content is either a string or a list of
// typed parts.
func (r chatCompletionResponse) text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	raw := r.Choices[0].Message.Content

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	fragments := make([]string, 0, len(parts))
	for _, part := range parts {
		if text := strings.TrimSpace(part.Text); text != "" {
			fragments = append(fragments, text)
		}
	}
	return strings.Join(fragments, "\n")
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrProviderUnavailable = errors.New("generation provider unavailable")

type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type GenerateRequest struct {
	Model           string
	Instructions    string
	Input           string
	Temperature     float64
	MaxOutputTokens int
}

type GenerateResult struct {
	Text    string
	ModelID string
	Usage   TokenUsage
}

// TextGenerator is the opaque remote call that turns a prompt into text.
// Implementations do not retry.
type TextGenerator interface {
	Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error)
	Available() bool
}

type FailureKind string

const (
	FailureRateLimit         FailureKind = "rate_limit"
	FailureMalformedResponse FailureKind = "malformed_response"
	FailureTransport         FailureKind = "transport"
	FailureTimeout           FailureKind = "timeout"
	FailureProvider          FailureKind = "provider"
)

// ProviderError is the typed failure returned by every provider client.
type ProviderError struct {
	Provider   string
	Kind       FailureKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("%s %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Kind, e.Message)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf reports the failure kind of err, or "" when err is not a ProviderError.
func KindOf(err error) FailureKind {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Kind
	}
	return ""
}

func statusError(provider string, statusCode int, body []byte) *ProviderError {
	message := strings.TrimSpace(string(body))
	if len(message) > 700 {
		message = message[:700]
	}
	kind := FailureProvider
	if statusCode == http.StatusTooManyRequests {
		kind = FailureRateLimit
	}
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
	}
}

func malformed(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: FailureMalformedResponse, Message: message, Err: err}
}

func validateRequest(request GenerateRequest) error {
	if strings.TrimSpace(request.Model) == "" {
		return errors.New("model is required")
	}
	if strings.TrimSpace(request.Input) == "" {
		return errors.New("input is required")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// jsonEndpoint is the shared request/response cycle of the provider clients:
// one POST, no retry, every remote failure typed as a *ProviderError.
type jsonEndpoint struct {
	provider   string
	httpClient *http.Client
	timeout    time.Duration
}

func (e jsonEndpoint) post(ctx context.Context, url string, headers http.Header, payload, target any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", e.provider, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create %s request: %w", e.provider, err)
	}
	for key, values := range headers {
		httpRequest.Header[key] = values
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")

	httpResponse, err := e.httpClient.Do(httpRequest)
	if err != nil {
		kind := FailureTransport
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = FailureTimeout
		}
		return &ProviderError{Provider: e.provider, Kind: kind, Err: err}
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return &ProviderError{Provider: e.provider, Kind: FailureTransport, Err: err}
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return statusError(e.provider, httpResponse.StatusCode, body)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return malformed(e.provider, "decode response", err)
	}
	return nil
}

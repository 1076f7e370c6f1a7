package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/skald-ai/skald/internal/logging"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Anthropic streams completions from the Anthropic Messages API.
type Anthropic struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAnthropic(opts Options) *Anthropic {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &Anthropic{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  opts.httpClient(),
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Models() []string {
	return []string{
		"claude-opus-4-20250514",
		"claude-sonnet-4-20250514",
		"claude-3-7-sonnet-20250219",
		"claude-3-5-haiku-20241022",
	}
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Anthropic) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	payload := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Messages:    req.Messages,
		System:      req.System,
		Temperature: req.Temperature,
		Stream:      true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := doWithRetry(ctx, a.client, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("x-api-key", a.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}, a.Name())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var sb strings.Builder
	sse := newSSEScanner(resp.Body)
	for {
		data, ok := sse.Next()
		if !ok {
			break
		}
		var event anthropicEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			logging.Debug().Str("data", data).Msg("skipping unparseable stream event")
			continue
		}
		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				sb.WriteString(event.Delta.Text)
				if onDelta != nil {
					onDelta(event.Delta.Text)
				}
			}
		case "error":
			return sb.String(), fmt.Errorf("anthropic stream error: %s", event.Error.Message)
		case "message_stop":
			return sb.String(), nil
		}
	}
	if err := sse.Err(); err != nil {
		return sb.String(), fmt.Errorf("stream read failed: %w", err)
	}
	return sb.String(), nil
}

// doWithRetry issues the request, retrying transient failures with
// exponential backoff. The request body must be rebuildable, hence the
// factory.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error), providerName string) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		httpReq, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err = client.Do(httpReq) //nolint:bodyclose // closed by caller or below
		if err != nil {
			return err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		apiErr := &APIError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
		resp.Body.Close()
		if apiErr.retryable() {
			logging.Warn().Int("status", apiErr.StatusCode).Str("provider", providerName).Msg("retrying request")
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return resp, nil
}

// readErrorMessage extracts a human-readable message from an error
// response body, falling back to the raw body.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 8*1024))
	if err != nil {
		return "unreadable error response"
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

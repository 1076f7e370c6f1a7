// Package provider contains the LLM backends and routes models to them.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Message is one turn sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request. Messages must not include the
// system prompt; it travels in System and each backend places it where
// its API wants it.
type Request struct {
	Model       string
	Messages    []Message
	System      string
	Temperature float64
	MaxTokens   int
}

// Provider streams chat completions from one LLM backend.
type Provider interface {
	Name() string
	Models() []string
	// Stream sends the request and calls onDelta for each text fragment
	// as it arrives. It returns the assembled response text.
	Stream(ctx context.Context, req Request, onDelta func(string)) (string, error)
}

// Options configures a backend client.
type Options struct {
	APIKey  string
	BaseURL string       // override for tests, empty means the public API
	Client  *http.Client // nil means a default client
}

func (o Options) httpClient() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	// Streaming responses can stay open for minutes; the per-request
	// context carries the real deadline.
	return &http.Client{Timeout: 10 * time.Minute}
}

// ForModel routes a model name to its provider name.
func ForModel(model string) (string, bool) {
	switch {
	case strings.HasPrefix(model, "claude-"):
		return "anthropic", true
	case strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return "openai", true
	case strings.HasPrefix(model, "gemini-"):
		return "gemini", true
	}
	return "", false
}

// New builds the named provider.
func New(name string, opts Options) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropic(opts), nil
	case "openai":
		return NewOpenAI(opts), nil
	case "gemini":
		return NewGemini(opts), nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// APIError is a non-2xx response from a backend.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// retryable reports whether the request may succeed on another attempt.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// Gemini streams completions from the Google Generative Language API.
// The streamGenerateContent endpoint returns a JSON array of chunks
// rather than SSE, so the response is read whole and delivered as the
// chunks decode.
type Gemini struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGemini(opts Options) *Gemini {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &Gemini{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  opts.httpClient(),
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Models() []string {
	return []string{
		"gemini-2.0-flash",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiChunk struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// geminiContents maps the request onto Gemini's roles: the API has no
// system role and calls the assistant "model", so the system prompt
// becomes a leading user turn.
func geminiContents(req Request) []geminiContent {
	var contents []geminiContent
	if req.System != "" {
		contents = append(contents, geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: req.System}},
		})
	}
	for _, msg := range req.Messages {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	return contents
}

func (g *Gemini) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	payload := geminiRequest{Contents: geminiContents(req)}
	payload.GenerationConfig.Temperature = req.Temperature
	payload.GenerationConfig.MaxOutputTokens = maxTokens

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?key=%s",
		g.baseURL, url.PathEscape(req.Model), url.QueryEscape(g.apiKey))

	resp, err := doWithRetry(ctx, g.client, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}, g.Name())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("stream read failed: %w", err)
	}

	var chunks []geminiChunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		// Some error responses come back as a single object.
		var single geminiChunk
		if jerr := json.Unmarshal(raw, &single); jerr != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		chunks = []geminiChunk{single}
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		if chunk.Error.Message != "" {
			return sb.String(), fmt.Errorf("gemini stream error: %s", chunk.Error.Message)
		}
		for _, cand := range chunk.Candidates {
			for _, part := range cand.Content.Parts {
				if part.Text == "" {
					continue
				}
				sb.WriteString(part.Text)
				if onDelta != nil {
					onDelta(part.Text)
				}
			}
			break // only the first candidate matters
		}
	}
	return sb.String(), nil
}

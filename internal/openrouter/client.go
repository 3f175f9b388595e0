package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reflectbot/reflectbot/internal/core"
)

const BaseURL = "https://openrouter.ai/api/v1"

// Message represents a chat message (OpenRouter/OpenAI format).
type Message = core.Message

// ChatRequest is the request body for chat completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatResponse is the response from chat completions.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Role    string          `json:"role"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client calls the OpenRouter API.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: BaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ChatCompletion sends messages to OpenRouter and returns the assistant reply
// content. Retries transient failures (network, 429, 5xx) with exponential
// backoff; anything still failing after that surfaces as an error, which
// callers treat as a transient analysis error.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("openrouter: API key not set")
	}
	if c.Model == "" {
		return "", fmt.Errorf("openrouter: model not set")
	}
	body := ChatRequest{Model: c.Model, Messages: messages, MaxTokens: maxTokens, Temperature: temperature}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	var resp *http.Response
	var errDo error
	maxRetries := 3
	backoff := 1 * time.Second

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
		}
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(raw))
		if reqErr != nil {
			return "", reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.APIKey)

		resp, errDo = c.HTTP.Do(req)
		if errDo != nil {
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			resp = nil
			continue
		}
		break
	}
	if errDo != nil {
		return "", errDo
	}
	if resp == nil {
		return "", fmt.Errorf("openrouter: request failed after retries")
	}

	defer resp.Body.Close()
	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openrouter: HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var out ChatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return "", fmt.Errorf("openrouter: decode: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openrouter: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openrouter: no choices in response")
	}
	return strings.TrimSpace(parseContent(out.Choices[0].Message.Content)), nil
}

// parseContent parses API content that may be string, null, or an array of
// parts (e.g. [{"type":"text","text":"..."}]).
func parseContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []map[string]interface{}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p["text"].(string); ok {
			b.WriteString(t)
		}
	}
	return b.String()
}

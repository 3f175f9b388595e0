package core

import "context"

// LLMClient abstracts the low-level analysis API client (OpenRouter, local LLM, etc).
// maxTokens and temperature are passed per call because each prompt kind uses
// its own settings (analysis 1000/0.9, journal 400/0.3, stats 400/0.2).
type LLMClient interface {
	ChatCompletion(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error)
}

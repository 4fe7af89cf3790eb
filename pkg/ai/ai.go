// Package ai defines the model client surface used for embeddings and
// analysis chat. Two backends implement it: ai/openai for OpenAI-compatible
// HTTP APIs and ai/ollama for locally hosted models.
package ai

import (
	"context"
	"math"
)

// ChatMessage is one turn of a conversation. Role is "user" for caller
// input and "assistant" for model output.
type ChatMessage struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// GenerateOptions collects the per-request knobs a backend honors. The
// zero value uses the client's configured chat model, temperature 0 and
// the backend's default response length.
type GenerateOptions struct {
	Model         string
	SystemPrompts []string
	Temperature   float64
	MaxTokens     int
	Thinking      string
}

// GenerateOption mutates GenerateOptions; pass any number to a generate
// call.
type GenerateOption func(*GenerateOptions)

// WithModel overrides the client's configured chat model for one request.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts prepends system messages to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature sets the sampling temperature, 0 for deterministic
// output up to 2 for maximum variety.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens caps the response length. Zero leaves the backend default.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithThinking enables extended reasoning. The value is backend specific,
// a reasoning effort level for OpenAI-compatible APIs and a think level
// for Ollama.
func WithThinking(thinking string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Thinking = thinking
	}
}

// ModelMetrics accumulates token and timing counters across requests
// until ResetMetrics is called.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// Add folds delta into m and refreshes the cumulative tokens-per-second
// rate, rounded to two decimals. Not safe for concurrent use; callers hold
// their own lock.
func (m *ModelMetrics) Add(delta ModelMetrics) {
	m.InputTokens += delta.InputTokens
	m.OutputTokens += delta.OutputTokens
	m.TotalTokens += delta.TotalTokens
	m.DurationMs += delta.DurationMs
	if m.DurationMs > 0 {
		rate := float64(m.TotalTokens) * 1000 / float64(m.DurationMs)
		m.TokenPerSecond = float32(math.Round(rate*100) / 100)
	}
}

// Client is the interface for model operations used by the similarity
// provider and the insights service.
type Client interface {
	GenerateChat(
		ctx context.Context,
		messages []ChatMessage,
		opts ...GenerateOption,
	) (string, error)
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error

	GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}

// Package insights answers questions about analysis results through a chat
// model and produces structured result summaries. The heavy lifting stays in
// PrepareContext, which compresses a result into a prompt small enough to
// keep per-message cost low.
package insights

import (
	"context"
	"errors"
	"fmt"

	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"

	"github.com/pkoukk/tiktoken-go"
)

// maxHistoryMessages bounds how much conversation history is replayed to the
// model per request (6 exchanges).
const maxHistoryMessages = 12

const systemPromptFormat = `You are an expert in semantic network analysis and text analysis.
You're helping analyze comparison data between groups based on word frequencies and network metrics.

Be concise and insightful. Focus on:
- Patterns and differences between groups
- Key themes and concepts
- Actionable insights

Here is the analysis data:

%s

Answer questions about this data. Be specific and reference actual words/numbers from the data.`

// ErrNotConfigured is returned when no chat model client is installed.
var ErrNotConfigured = errors.New("insights chat is not configured")

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	Response   string           `json:"response"`
	History    []ai.ChatMessage `json:"history"`
	TokensUsed int              `json:"tokens_used"`
}

// Service runs analysis chat and summaries against a model client.
//
// A Service should be created using NewService.
type Service struct {
	client ai.Client

	temperature float64
	maxTokens   int
}

// NewServiceParams defines the configuration for creating a Service.
//
// Client may be nil, in which case the service reports unavailable and every
// call returns ErrNotConfigured. Temperature and MaxTokens apply to chat
// replies; zero means the defaults (0.7 and 500).
type NewServiceParams struct {
	Client ai.Client

	Temperature float64
	MaxTokens   int
}

// NewService creates a Service configured with the provided parameters.
func NewService(params NewServiceParams) *Service {
	temperature := params.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	return &Service{
		client:      params.Client,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Available reports whether a model client is installed.
func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

// Chat sends one user message about an analysis, with the prepared context
// as the system prompt and the last 6 exchanges of history replayed. It
// returns the reply, the updated history, and the tokens consumed. When the
// backend reports no usage the token figure is an o200k_base estimate.
func (s *Service) Chat(ctx context.Context, message string, analysisContext string, history []ai.ChatMessage) (*ChatResult, error) {
	if !s.Available() {
		return nil, ErrNotConfigured
	}

	systemPrompt := fmt.Sprintf(systemPromptFormat, analysisContext)

	messages := trimHistory(history, maxHistoryMessages)
	messages = append(messages, ai.ChatMessage{Role: "user", Message: message})

	// Counters are process wide; concurrent chats fold into the same diff.
	before := s.client.GetMetrics()
	reply, err := s.client.GenerateChat(ctx, messages,
		ai.WithSystemPrompts(systemPrompt),
		ai.WithTemperature(s.temperature),
		ai.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		return nil, err
	}
	after := s.client.GetMetrics()

	tokens := after.TotalTokens - before.TotalTokens
	if tokens <= 0 {
		texts := []string{systemPrompt, reply}
		for _, m := range messages {
			texts = append(texts, m.Message)
		}
		tokens = estimateTokens(texts...)
	}

	updated := make([]ai.ChatMessage, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		ai.ChatMessage{Role: "user", Message: message},
		ai.ChatMessage{Role: "assistant", Message: reply},
	)

	return &ChatResult{
		Response:   reply,
		History:    updated,
		TokensUsed: tokens,
	}, nil
}

// trimHistory keeps the most recent max messages.
func trimHistory(history []ai.ChatMessage, max int) []ai.ChatMessage {
	if len(history) > max {
		history = history[len(history)-max:]
	}
	out := make([]ai.ChatMessage, len(history))
	copy(out, history)
	return out
}

// estimateTokens approximates the token footprint of the given texts with
// the o200k_base encoding, falling back to a character heuristic when the
// encoding cannot be loaded.
func estimateTokens(texts ...string) int {
	enc, err := tiktoken.GetEncoding("o200k_base")
	total := 0
	for _, text := range texts {
		if err != nil {
			total += len(text)/4 + 1
			continue
		}
		total += len(enc.Encode(text, nil, nil))
	}
	return total
}

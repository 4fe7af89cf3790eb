package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

// GenerateChat runs a multi-turn conversation and returns the assistant's
// reply.
func (c *Client) GenerateChat(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.2,
	}
	for _, o := range opts {
		o(&options)
	}

	var prompt strings.Builder
	msgs := make([]api.Message, 0, len(options.SystemPrompts)+len(messages))
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
		prompt.WriteString(sp)
	}
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Message})
		prompt.WriteString(m.Message)
	}

	req := newChatRequest(options, msgs)
	c.bumpContextWindow(req, prompt.String())

	res, err := c.chat(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Message.Content, nil
}

// GenerateCompletionWithFormat constrains the reply to out's JSON schema
// and unmarshals into it.
func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	if rv := reflect.ValueOf(out); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	format, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return err
	}

	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	req := newChatRequest(options, msgs)
	req.Format = json.RawMessage(format)
	c.bumpContextWindow(req, prompt)

	res, err := c.chat(ctx, req)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(res.Message.Content, out)
}

// newChatRequest builds a non-streaming request with the options applied.
func newChatRequest(options ai.GenerateOptions, msgs []api.Message) *api.ChatRequest {
	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}
	if options.MaxTokens > 0 {
		req.Options["num_predict"] = options.MaxTokens
	}
	if options.Thinking != "" {
		req.Think = &api.ThinkValue{Value: options.Thinking}
	}
	return req
}

// chat runs the request under the client's timeout and concurrency gate,
// reassembles the streamed chunks and records token metrics.
func (c *Client) chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	var res api.ChatResponse
	err := c.Client.Chat(rCtx, req, func(cr api.ChatResponse) error {
		res.Message.Content += cr.Message.Content
		if cr.Done {
			res.Done = true
			res.Metrics = cr.Metrics
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  res.Metrics.PromptEvalCount,
		OutputTokens: res.Metrics.EvalCount,
		TotalTokens:  res.Metrics.PromptEvalCount + res.Metrics.EvalCount,
		DurationMs:   res.Metrics.TotalDuration.Milliseconds(),
	})
	return &res, nil
}

// bumpContextWindow raises num_ctx above the 4096 default when the prompt
// alone would not fit. Counts use the o200k_base encoding with 200 tokens
// of headroom; if the encoding is unavailable the default window stays.
func (c *Client) bumpContextWindow(req *api.ChatRequest, prompt string) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return
	}
	if tokens := 200 + len(enc.Encode(prompt, nil, nil)); tokens > 4096 {
		req.Options["num_ctx"] = tokens
	}
}

// Package openai implements the ai.Client interface against OpenAI-compatible
// HTTP APIs. Chat and embeddings can point at different endpoints so a hosted
// chat model can be combined with a self-hosted embedding server.
package openai

import (
	"sync"

	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeoutMin            = 5
	defaultMaxConcurrentRequests = 4
)

var _ ai.Client = (*Client)(nil)

// Client is an ai.Client backed by OpenAI-compatible APIs. It manages
// separate API clients for embeddings and chat.
//
// A Client should be created using NewClient.
type Client struct {
	chatModel      string
	embeddingModel string

	chatURL      string
	chatKey      string
	embeddingURL string
	embeddingKey string

	timeoutMin int
	reqLock    *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams defines the configuration for creating a Client.
//
// ChatModel and EmbeddingModel select the default models. ChatURL/ChatKey and
// EmbeddingURL/EmbeddingKey configure the two endpoints; an empty URL means
// the public OpenAI API, an empty key disables that half of the client.
type NewClientParams struct {
	ChatModel      string
	EmbeddingModel string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	// TimeoutMin bounds a single request in minutes. Zero means the default.
	TimeoutMin int
	// MaxConcurrentRequests bounds in-flight requests. Zero means the default.
	MaxConcurrentRequests int64
}

// NewClient creates a Client configured with the provided parameters.
//
// Example:
//
//	client := openai.NewClient(openai.NewClientParams{
//		ChatModel:      "gpt-4o-mini",
//		EmbeddingModel: "text-embedding-3-small",
//		ChatKey:        os.Getenv("OPENAI_API_KEY"),
//		EmbeddingKey:   os.Getenv("OPENAI_API_KEY"),
//	})
func NewClient(params NewClientParams) *Client {
	c := &Client{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,

		timeoutMin: params.TimeoutMin,

		ChatClient:      newAPIClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newAPIClient(params.EmbeddingURL, params.EmbeddingKey),
	}
	if c.timeoutMin <= 0 {
		c.timeoutMin = defaultTimeoutMin
	}

	concurrent := params.MaxConcurrentRequests
	if concurrent <= 0 {
		concurrent = defaultMaxConcurrentRequests
	}
	c.reqLock = semaphore.NewWeighted(concurrent)

	return c
}

// newAPIClient returns nil when no key is configured, which disables that
// half of the client.
func newAPIClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(options...)
	return &client
}

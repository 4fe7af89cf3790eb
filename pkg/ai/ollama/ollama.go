// Package ollama implements the ai.Client interface against a locally or
// remotely hosted Ollama server.
package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeoutMin            = 10
	defaultMaxConcurrentRequests = 2
)

var _ ai.Client = (*Client)(nil)

// Client is an ai.Client backed by an Ollama server. It supports chat,
// structured output, and embeddings via locally hosted models.
type Client struct {
	chatModel      string
	embeddingModel string

	timeoutMin int
	reqLock    *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewClientParams contains configuration options for creating a Client.
type NewClientParams struct {
	ChatModel      string
	EmbeddingModel string

	BaseURL string
	ApiKey  string

	// TimeoutMin bounds a single request in minutes. Zero means the default.
	TimeoutMin int
	// MaxConcurrentRequests bounds in-flight requests. Zero means the default.
	MaxConcurrentRequests int64
}

// headerTransport injects default headers into every outgoing request,
// leaving headers the caller already set untouched. The original request
// is never modified.
type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient creates a client for the Ollama server at BaseURL, or the
// default local server when BaseURL is empty.
func NewClient(params NewClientParams) (*Client, error) {
	base := &url.URL{Scheme: "http", Host: "127.0.0.1:11434"}
	if params.BaseURL != "" {
		parsed, err := url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
		base = parsed
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{"Authorization": "Bearer " + params.ApiKey},
			rt:      http.DefaultTransport,
		},
	}

	c := &Client{
		chatModel:      params.ChatModel,
		embeddingModel: params.EmbeddingModel,

		timeoutMin: params.TimeoutMin,

		baseURL:    base,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: api.NewClient(base, httpClient),
	}
	if c.timeoutMin <= 0 {
		c.timeoutMin = defaultTimeoutMin
	}

	concurrent := params.MaxConcurrentRequests
	if concurrent <= 0 {
		concurrent = defaultMaxConcurrentRequests
	}
	c.reqLock = semaphore.NewWeighted(concurrent)

	return c, nil
}

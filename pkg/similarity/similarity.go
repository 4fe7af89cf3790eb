// Package similarity derives semantic edges between words from vector
// embeddings. An edge is emitted for every word pair whose cosine similarity
// meets the threshold, which the network layer can fold into a co-occurrence
// graph as semantic augmentation.
package similarity

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/logger"
	"github.com/chenraccah/semantic-network-analyzer/pkg/network"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultThreshold is the minimum cosine similarity for an edge when the
	// caller passes no threshold.
	DefaultThreshold = 0.5

	defaultBatchSize   = 32
	defaultTokenBudget = 8192
	embedAttempts      = 3
)

// Embedder produces one vector per input string, in input order. Both
// ai/openai and ai/ollama clients satisfy this.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// Cache persists word vectors between analyses so repeated runs over the
// same vocabulary skip the embedding model. The model string namespaces
// entries; vectors from different models never mix.
type Cache interface {
	CachedEmbeddings(ctx context.Context, model string, words []string) (map[string][]float32, error)
	StoreEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error
}

// Provider computes semantic similarity edges for word lists. It batches
// embedding requests and optionally caches vectors through a Cache.
//
// A Provider should be created using NewProvider.
type Provider struct {
	embedder Embedder
	cache    Cache
	model    string

	batchSize   int
	tokenBudget int

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// NewProviderParams defines the configuration for creating a Provider.
//
// Embedder is required. Cache is optional; when set, Model namespaces the
// cached vectors and should match the embedding model in use. BatchSize and
// TokenBudget bound one embedding request; zero means the default.
type NewProviderParams struct {
	Embedder Embedder
	Cache    Cache
	Model    string

	BatchSize   int
	TokenBudget int
}

// NewProvider creates a Provider configured with the provided parameters.
func NewProvider(params NewProviderParams) *Provider {
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	tokenBudget := params.TokenBudget
	if tokenBudget <= 0 {
		tokenBudget = defaultTokenBudget
	}

	return &Provider{
		embedder: params.Embedder,
		cache:    params.Cache,
		model:    params.Model,

		batchSize:   batchSize,
		tokenBudget: tokenBudget,
	}
}

// SimilarEdges returns an edge for every word pair whose cosine similarity
// is at least threshold. Pairs come from the upper triangle of the
// similarity matrix, so each unordered pair appears once and there are no
// self loops. Similarities are rounded to 4 decimal places. A threshold of 0
// or less falls back to DefaultThreshold, and fewer than 2 words yields no
// edges without touching the embedding model.
func (p *Provider) SimilarEdges(ctx context.Context, words []string, threshold float64) ([]network.SimilarityEdge, error) {
	if len(words) < 2 {
		return nil, nil
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	vectors, err := p.embeddings(ctx, words)
	if err != nil {
		return nil, err
	}

	edges := make([]network.SimilarityEdge, 0)
	for i := 0; i < len(words); i++ {
		for j := i + 1; j < len(words); j++ {
			sim := roundSimilarity(dot(vectors[i], vectors[j]))
			if sim >= threshold {
				edges = append(edges, network.SimilarityEdge{
					From:       words[i],
					To:         words[j],
					Similarity: sim,
				})
			}
		}
	}
	return edges, nil
}

// embeddings resolves a unit-normalized vector for every word, serving from
// the cache where possible and batching the rest through the embedder. The
// returned slice is aligned with words.
func (p *Provider) embeddings(ctx context.Context, words []string) ([][]float32, error) {
	vectors := make(map[string][]float32, len(words))

	if p.cache != nil {
		cached, err := p.cache.CachedEmbeddings(ctx, p.model, words)
		if err != nil {
			logger.Warn("[Similarity] Embedding cache read failed", "error", err)
		} else {
			for word, vec := range cached {
				vectors[word] = normalize(vec)
			}
		}
	}

	missing := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, word := range words {
		if _, ok := vectors[word]; ok || seen[word] {
			continue
		}
		seen[word] = true
		missing = append(missing, word)
	}

	if len(missing) > 0 {
		fresh := make(map[string][]float32, len(missing))
		for _, batch := range batchWords(missing, p.batchSize, p.tokenBudget, p.tokenCount) {
			embedded, err := util.RetryWithContext(ctx, embedAttempts, func(ctx context.Context) ([][]float32, error) {
				return p.embedder.GenerateEmbeddings(ctx, batch)
			})
			if err != nil {
				return nil, err
			}
			if len(embedded) != len(batch) {
				return nil, fmt.Errorf("embedding batch size mismatch: got %d want %d", len(embedded), len(batch))
			}
			for i, word := range batch {
				vec := normalize(embedded[i])
				vectors[word] = vec
				fresh[word] = vec
			}
		}

		if p.cache != nil && len(fresh) > 0 {
			if err := p.cache.StoreEmbeddings(ctx, p.model, fresh); err != nil {
				logger.Warn("[Similarity] Embedding cache write failed", "error", err)
			}
		}
	}

	out := make([][]float32, len(words))
	for i, word := range words {
		vec, ok := vectors[word]
		if !ok {
			return nil, fmt.Errorf("missing embedding for %q", word)
		}
		out[i] = vec
	}
	return out, nil
}

// tokenCount estimates the token footprint of one word with the o200k_base
// encoding, falling back to a character heuristic when the encoding cannot
// be loaded.
func (p *Provider) tokenCount(word string) int {
	p.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("o200k_base")
		if err != nil {
			logger.Warn("[Similarity] Token encoding unavailable, estimating", "error", err)
			return
		}
		p.enc = enc
	})
	if p.enc == nil {
		return len(word)/4 + 1
	}
	return len(p.enc.Encode(word, nil, nil))
}

// batchWords splits words into embedding batches. A batch closes when it
// reaches batchSize words or when adding the next word would push it past
// tokenBudget. Every batch holds at least one word, so a single oversized
// word still gets sent.
func batchWords(words []string, batchSize, tokenBudget int, count func(string) int) [][]string {
	batches := make([][]string, 0)
	current := make([]string, 0, batchSize)
	tokens := 0

	for _, word := range words {
		n := count(word)
		if len(current) > 0 && (len(current) >= batchSize || tokens+n > tokenBudget) {
			batches = append(batches, current)
			current = make([]string, 0, batchSize)
			tokens = 0
		}
		current = append(current, word)
		tokens += n
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// normalize scales a vector to unit length so cosine similarity reduces to
// a dot product. Zero vectors pass through unchanged.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func roundSimilarity(sim float64) float64 {
	return math.Round(sim*10000) / 10000
}

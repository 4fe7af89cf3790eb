package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"

	"github.com/openai/openai-go/v3"
)

const defaultDimensions = 4096

// GenerateEmbeddings creates vector embeddings for the given inputs using
// the configured embedding model. The result has one vector per input, in
// input order. Blank inputs embed to zero vectors without a model call.
//
// Example:
//
//	vectors, err := client.GenerateEmbeddings(ctx, []string{"climate", "energy"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Vector length:", len(vectors[0]))
func (c *Client) GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if c.EmbeddingClient == nil {
		return nil, fmt.Errorf("embedding endpoint not configured")
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	dim := int(util.GetEnvNumeric("AI_EMBED_DIM", defaultDimensions))

	idx, present, out := splitBlankInputs(inputs, dim)
	if len(present) == 0 {
		return out, nil
	}

	vectors, err := c.embedBatch(ctx, present, dim)
	if err != nil {
		return nil, err
	}
	for i, vec := range vectors {
		out[idx[i]] = vec
	}
	return out, nil
}

// splitBlankInputs separates embeddable inputs from blanks, which map
// straight to zero vectors of the configured dimension. idx holds the
// original position of each entry in present.
func splitBlankInputs(inputs []string, dim int) (idx []int, present []string, out [][]float32) {
	out = make([][]float32, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			out[i] = make([]float32, dim)
			continue
		}
		idx = append(idx, i)
		present = append(present, in)
	}
	return idx, present, out
}

// clampVector converts to float32 and truncates to at most dim entries.
func clampVector(values []float64, dim int) []float32 {
	if len(values) > dim {
		values = values[:dim]
	}
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	return vec
}

// embedBatch sends one embedding request for all inputs and returns the
// vectors in input order, reassembled from the response's index field.
func (c *Client) embedBatch(ctx context.Context, inputs []string, dim int) ([][]float32, error) {
	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: openai.EmbeddingModel(c.embeddingModel),
	}

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(rCtx, body)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for _, item := range response.Data {
		pos := int(item.Index)
		if pos < 0 || pos >= len(out) {
			return nil, fmt.Errorf("embedding index out of range: %d", item.Index)
		}
		out[pos] = clampVector(item.Embedding, dim)
	}
	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}
	return out, nil
}

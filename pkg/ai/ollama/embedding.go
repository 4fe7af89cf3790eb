package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chenraccah/semantic-network-analyzer/internal/util"
	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"

	"github.com/ollama/ollama/api"
)

const defaultDimensions = 4096

// GenerateEmbeddings creates vector embeddings for the given inputs using
// the configured embedding model on Ollama. The result has one vector per
// input, in input order. Blank inputs embed to zero vectors without a model
// call.
func (c *Client) GenerateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	dim := int(util.GetEnvNumeric("AI_EMBED_DIM", defaultDimensions))

	idx, present, out := splitBlankInputs(inputs, dim)
	if len(present) == 0 {
		return out, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: present,
	})
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	if len(res.Embeddings) != len(present) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(res.Embeddings), len(present))
	}
	for i, embedding := range res.Embeddings {
		out[idx[i]] = clampVector(embedding, dim)
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

// clampVector copies at most dim entries so the response buffer is not
// retained.
func clampVector(values []float32, dim int) []float32 {
	if len(values) > dim {
		values = values[:dim]
	}
	vec := make([]float32, len(values))
	copy(vec, values)
	return vec
}

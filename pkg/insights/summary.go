package insights

import (
	"context"
	"strings"

	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/ai"
)

// GroupThemes names the dominant themes of one group's vocabulary.
type GroupThemes struct {
	Group  string   `json:"group"`
	Themes []string `json:"themes"`
}

// Summary is a structured model-written interpretation of an analysis.
type Summary struct {
	Overview    string        `json:"overview"`
	Themes      []GroupThemes `json:"themes"`
	Contrasts   []string      `json:"contrasts"`
	BridgeTerms []string      `json:"bridge_terms"`
}

const summarizePrompt = `Summarize the semantic network analysis below.

%ANALYSIS%

Respond with:
- overview: two or three sentences on what the vocabulary shows overall
- themes: for each group, the 3-5 dominant themes in its vocabulary
- contrasts: the clearest differences between groups (empty for a single group)
- bridge_terms: words that connect otherwise separate topic areas

Ground every statement in the words and numbers above; do not invent terms.`

// Summarize asks the model for a structured interpretation of the result:
// per-group themes, the sharpest contrasts, and bridge terms. The response
// is schema-enforced and repaired before unmarshalling.
func (s *Service) Summarize(ctx context.Context, result *analysis.Result) (*Summary, error) {
	if !s.Available() {
		return nil, ErrNotConfigured
	}

	prompt := buildSummarizePrompt(result)

	var out Summary
	err := s.client.GenerateCompletionWithFormat(
		ctx,
		"analysis_summary",
		"Structured summary of a semantic network analysis",
		prompt,
		&out,
		ai.WithTemperature(0.2),
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func buildSummarizePrompt(result *analysis.Result) string {
	analysisContext := PrepareContext(result, DefaultMaxContextWords)
	return strings.ReplaceAll(summarizePrompt, "%ANALYSIS%", analysisContext)
}

package queue

import (
	"fmt"

	"github.com/chenraccah/semantic-network-analyzer/pkg/analysis"
	"github.com/chenraccah/semantic-network-analyzer/pkg/textproc"
)

// AnalysisJob is the payload published for one queued analysis run. The
// request part is also persisted as the analysis row's params, so a stale
// job can be rebuilt from the record and republished.
type AnalysisJob struct {
	AnalysisID string     `json:"analysis_id"`
	UserID     string     `json:"user_id"`
	Request    JobRequest `json:"request"`
}

// JobRequest describes what to analyze: the uploaded objects, the group
// layout, and the run options.
type JobRequest struct {
	GroupNames []string   `json:"group_names"`
	Files      []JobFile  `json:"files"`
	Options    JobOptions `json:"options"`
}

// JobFile points at one staged upload. Group is the index into the
// request's group names; TextColumn selects the text column for tabular
// formats.
type JobFile struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Group      int    `json:"group"`
	TextColumn int    `json:"text_column"`
}

// JobOptions carries the analysis knobs of a submitted job. Zero values
// fall back to the analyzer defaults.
type JobOptions struct {
	MinFrequency        int               `json:"min_frequency,omitempty"`
	MinEdgeWeight       int               `json:"min_edge_weight,omitempty"`
	MinScoreThreshold   float64           `json:"min_score_threshold,omitempty"`
	PerGroupThresholds  []float64         `json:"per_group_thresholds,omitempty"`
	ClusterMethod       string            `json:"cluster_method,omitempty"`
	TargetClusters      int               `json:"target_clusters,omitempty"`
	Resolution          float64           `json:"resolution,omitempty"`
	Semantic            bool              `json:"semantic,omitempty"`
	SimilarityThreshold float64           `json:"similarity_threshold,omitempty"`
	WordMappings        map[string]string `json:"word_mappings,omitempty"`
	DeleteWords         []string          `json:"delete_words,omitempty"`
	ExtraStopwords      []string          `json:"extra_stopwords,omitempty"`
}

// Validate checks the request's internal consistency before it is queued
// or processed.
func (r JobRequest) Validate() error {
	if len(r.GroupNames) == 0 {
		return fmt.Errorf("job has no groups")
	}
	if len(r.Files) == 0 {
		return fmt.Errorf("job has no files")
	}
	for i, file := range r.Files {
		if file.Key == "" {
			return fmt.Errorf("file %d has no object key", i)
		}
		if file.Group < 0 || file.Group >= len(r.GroupNames) {
			return fmt.Errorf("file %d references group %d, job has %d groups", i, file.Group, len(r.GroupNames))
		}
	}
	return nil
}

// AnalysisOptions maps the job options onto the analyzer's option set,
// filling unset knobs with the defaults.
func (o JobOptions) AnalysisOptions() analysis.Options {
	opts := analysis.DefaultOptions()
	if o.MinFrequency > 0 {
		opts.MinFrequency = o.MinFrequency
	}
	if o.MinEdgeWeight > 0 {
		opts.MinEdgeWeight = o.MinEdgeWeight
	}
	if o.MinScoreThreshold > 0 {
		opts.MinScoreThreshold = o.MinScoreThreshold
	}
	if len(o.PerGroupThresholds) > 0 {
		opts.PerGroupThresholds = o.PerGroupThresholds
	}
	if o.ClusterMethod != "" {
		opts.ClusterMethod = o.ClusterMethod
	}
	if o.TargetClusters > 0 {
		opts.TargetClusters = o.TargetClusters
	}
	if o.Resolution > 0 {
		opts.Resolution = o.Resolution
	}
	opts.Semantic = o.Semantic
	if o.SimilarityThreshold > 0 {
		opts.SimilarityThreshold = o.SimilarityThreshold
	}
	return opts
}

// BuildProcessor creates the text processor for a job, applying the
// submitted word mappings, deletions, and extra stopwords on top of the
// defaults.
func (o JobOptions) BuildProcessor() *textproc.Processor {
	opts := make([]textproc.Option, 0, 3)
	if len(o.WordMappings) > 0 {
		opts = append(opts, textproc.WithMappings(o.WordMappings))
	}
	if len(o.DeleteWords) > 0 {
		opts = append(opts, textproc.WithDeleteWords(o.DeleteWords...))
	}
	if len(o.ExtraStopwords) > 0 {
		opts = append(opts, textproc.WithExtraStopwords(o.ExtraStopwords...))
	}
	return textproc.New(opts...)
}

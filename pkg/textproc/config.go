package textproc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape of an on-disk processing configuration.
// Absent fields keep their defaults, so a file can override just the
// mappings or just the stopword list.
type FileConfig struct {
	// Stopwords replaces the default stopword set when non-empty.
	Stopwords []string `yaml:"stopwords"`
	// ExtraStopwords extends the active stopword set.
	ExtraStopwords []string `yaml:"extra_stopwords"`
	// DeleteWords lists words removed by surface or canonical form.
	DeleteWords []string `yaml:"delete_words"`
	// Mappings holds explicit source -> canonical replacements.
	Mappings map[string]string `yaml:"mappings"`
	// MinWordLength overrides the minimum token length when >= 1.
	MinWordLength int `yaml:"min_word_length"`
	// UnifyPlurals toggles singularization; nil keeps the default (on).
	UnifyPlurals *bool `yaml:"unify_plurals"`
}

// Options converts a file configuration into Processor options.
func (c FileConfig) Options() []Option {
	var opts []Option
	if len(c.Stopwords) > 0 {
		opts = append(opts, WithStopwords(c.Stopwords))
	}
	if len(c.ExtraStopwords) > 0 {
		opts = append(opts, WithExtraStopwords(c.ExtraStopwords...))
	}
	if len(c.DeleteWords) > 0 {
		opts = append(opts, WithDeleteWords(c.DeleteWords...))
	}
	if len(c.Mappings) > 0 {
		opts = append(opts, WithMappings(c.Mappings))
	}
	if c.MinWordLength >= 1 {
		opts = append(opts, WithMinWordLength(c.MinWordLength))
	}
	if c.UnifyPlurals != nil {
		opts = append(opts, WithPluralUnification(*c.UnifyPlurals))
	}
	return opts
}

// LoadFileConfig reads a YAML processing configuration from path.
func LoadFileConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

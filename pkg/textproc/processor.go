// Package textproc normalizes raw survey and document text into a controlled
// vocabulary of canonical tokens. A Processor applies, in order: cleaning,
// minimum-length and stopword filtering, explicit word mappings, plural
// unification, and a second deletion check on the transformed token.
package textproc

import (
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

// nonWordPattern matches every rune that is neither a word character
// (letter, digit, underscore) nor whitespace.
var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Processor holds an immutable-per-run text processing configuration.
// It is stateless across calls: Normalize and ProcessTexts never retain
// anything between invocations, so a single Processor can be shared by
// every group of one analysis run.
type Processor struct {
	stopwords     map[string]struct{}
	deleteWords   map[string]struct{}
	mappings      map[string]string
	minWordLength int
	unifyPlurals  bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithStopwords replaces the default stopword set.
func WithStopwords(words []string) Option {
	return func(p *Processor) {
		p.stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			p.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithExtraStopwords adds words on top of the current stopword set.
func WithExtraStopwords(words ...string) Option {
	return func(p *Processor) {
		for _, w := range words {
			p.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithDeleteWords adds words to the deletion set. Deletion is checked twice,
// once on the cleaned surface form and once after mapping and plural
// unification, so a word can be removed by either spelling.
func WithDeleteWords(words ...string) Option {
	return func(p *Processor) {
		for _, w := range words {
			p.deleteWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithMappings adds explicit source -> canonical replacements. Lookups use
// the cleaned surface form of a token, before plural unification.
func WithMappings(mappings map[string]string) Option {
	return func(p *Processor) {
		for source, target := range mappings {
			p.mappings[strings.ToLower(source)] = strings.ToLower(target)
		}
	}
}

// WithMinWordLength sets the minimum token length. Values below 1 are ignored.
func WithMinWordLength(n int) Option {
	return func(p *Processor) {
		if n >= 1 {
			p.minWordLength = n
		}
	}
}

// WithPluralUnification toggles the singularization step.
func WithPluralUnification(enabled bool) Option {
	return func(p *Processor) {
		p.unifyPlurals = enabled
	}
}

// New creates a Processor with the default stopword set, a minimum word
// length of 2, and plural unification enabled.
func New(opts ...Option) *Processor {
	p := &Processor{
		stopwords:     make(map[string]struct{}, len(defaultStopwords)),
		deleteWords:   make(map[string]struct{}),
		mappings:      make(map[string]string),
		minWordLength: 2,
		unifyPlurals:  true,
	}
	for _, w := range defaultStopwords {
		p.stopwords[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddMapping registers a source -> canonical replacement. Both sides are
// lowercased.
func (p *Processor) AddMapping(source, target string) {
	p.mappings[strings.ToLower(source)] = strings.ToLower(target)
}

// AddDeleteWords adds words to the deletion set.
func (p *Processor) AddDeleteWords(words ...string) {
	for _, w := range words {
		p.deleteWords[strings.ToLower(w)] = struct{}{}
	}
}

// AddStopwords adds words to the stopword set.
func (p *Processor) AddStopwords(words ...string) {
	for _, w := range words {
		p.stopwords[strings.ToLower(w)] = struct{}{}
	}
}

// MinWordLength reports the configured minimum token length.
func (p *Processor) MinWordLength() int {
	return p.minWordLength
}

// Clean lowercases text, trims surrounding whitespace, and removes every
// rune that is not a word character or whitespace.
func Clean(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return nonWordPattern.ReplaceAllString(text, "")
}

// Singularize applies ordered suffix rules to reduce a plural form to its
// singular. Rules, first match wins:
//
//  1. "ies" with length > 4 becomes "y" ("studies" -> "study")
//  2. "es" with length > 3 drops "es" when the base ends in s/x/z/ch/sh
//     ("boxes" -> "box"), otherwise drops only the trailing "s"
//  3. trailing "s" with length > 2 and not "ss" is dropped ("cats" -> "cat")
//  4. anything else is returned unchanged
func Singularize(word string) string {
	n := utf8.RuneCountInString(word)
	switch {
	case strings.HasSuffix(word, "ies") && n > 4:
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "es") && n > 3:
		base := strings.TrimSuffix(word, "es")
		if strings.HasSuffix(base, "s") || strings.HasSuffix(base, "x") ||
			strings.HasSuffix(base, "z") || strings.HasSuffix(base, "ch") ||
			strings.HasSuffix(base, "sh") {
			return base
		}
		return strings.TrimSuffix(word, "s")
	case strings.HasSuffix(word, "s") && n > 2 && !strings.HasSuffix(word, "ss"):
		return strings.TrimSuffix(word, "s")
	default:
		return word
	}
}

// processWord runs a single cleaned token through the filter and transform
// chain. It returns the canonical token and whether the token survived.
func (p *Processor) processWord(word string) (string, bool) {
	if utf8.RuneCountInString(word) < p.minWordLength {
		return "", false
	}
	if _, ok := p.stopwords[word]; ok {
		return "", false
	}
	if _, ok := p.deleteWords[word]; ok {
		return "", false
	}
	if mapped, ok := p.mappings[word]; ok {
		word = mapped
	}
	if p.unifyPlurals {
		if singular := Singularize(word); singular != word &&
			utf8.RuneCountInString(singular) >= p.minWordLength {
			word = singular
		}
	}
	if _, ok := p.deleteWords[word]; ok {
		return "", false
	}
	return word, true
}

// Tokens returns a lazy, restartable sequence of canonical tokens for the
// given text. Malformed or empty input yields an empty sequence, never an
// error.
func (p *Processor) Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, field := range strings.Fields(Clean(text)) {
			if token, ok := p.processWord(field); ok {
				if !yield(token) {
					return
				}
			}
		}
	}
}

// Normalize returns the canonical tokens of text as a slice.
func (p *Processor) Normalize(text string) []string {
	var tokens []string
	for token := range p.Tokens(text) {
		tokens = append(tokens, token)
	}
	return tokens
}

// TextStats aggregates the outcome of normalizing one group's documents.
type TextStats struct {
	// WordCounts maps each canonical word to its total occurrence count
	// across all documents.
	WordCounts map[string]int
	// Documents holds the canonical token sequence of each input text, in
	// input order. A document that produced no tokens is an empty slice.
	Documents [][]string
	// TotalWords is the number of tokens emitted across all documents.
	TotalWords int
	// UniqueWords is the number of distinct canonical words.
	UniqueWords int
}

// ProcessTexts normalizes every text in a group and accumulates word counts.
func (p *Processor) ProcessTexts(texts []string) TextStats {
	stats := TextStats{
		WordCounts: make(map[string]int),
		Documents:  make([][]string, 0, len(texts)),
	}
	for _, text := range texts {
		tokens := p.Normalize(text)
		if tokens == nil {
			tokens = []string{}
		}
		stats.Documents = append(stats.Documents, tokens)
		for _, token := range tokens {
			stats.WordCounts[token]++
			stats.TotalWords++
		}
	}
	stats.UniqueWords = len(stats.WordCounts)
	return stats
}

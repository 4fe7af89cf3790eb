// Package doc extracts text documents from word-processor and plain-text
// files. Each non-empty paragraph becomes one document, so a free-text file
// feeds the analyzer the way one response row of a spreadsheet does.
package doc

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"

	"golang.org/x/sync/singleflight"
)

const docXMLMax = 50 << 20

// DocColumnLoader extracts paragraphs from .docx, .txt and .md files.
type DocColumnLoader struct {
	bytes loader.ByteLoader

	cache   map[string][]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewDocColumnLoader creates a new DocColumnLoader reading raw bytes from
// the given byte loader.
func NewDocColumnLoader(bytes loader.ByteLoader) *DocColumnLoader {
	return &DocColumnLoader{
		bytes: bytes,
		cache: make(map[string][]string),
	}
}

// GetDocuments extracts the file's text and returns its non-empty
// paragraphs. Results are cached per source.
func (l *DocColumnLoader) GetDocuments(ctx context.Context, src loader.TextSource) ([]string, error) {
	key := loader.CacheKey(src)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		content, err := l.bytes.GetFileBytes(ctx, src)
		if err != nil {
			return nil, err
		}

		var text []byte
		if strings.EqualFold(filepath.Ext(src.Path), ".docx") {
			text, err = parseDocx(content)
			if err != nil {
				return nil, err
			}
		} else {
			text = content
		}

		docs := SplitParagraphs(string(text))

		l.cacheMu.Lock()
		l.cache[key] = docs
		l.cacheMu.Unlock()

		return docs, nil
	})

	if err != nil {
		return nil, err
	}

	return result.([]string), nil
}

// SplitParagraphs splits text into paragraphs at blank lines. Single line
// breaks inside a paragraph are folded into spaces and blank paragraphs
// are dropped.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var docs []string
	for _, block := range strings.Split(text, "\n\n") {
		lines := strings.Split(block, "\n")
		parts := make([]string, 0, len(lines))
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line != "" {
				parts = append(parts, line)
			}
		}
		if len(parts) > 0 {
			docs = append(docs, strings.Join(parts, " "))
		}
	}
	return docs
}

// Package csv extracts text documents from delimited files. The first row
// is treated as the header; every following row contributes the cell of the
// configured text column, with empty cells dropped.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// ErrColumnOutOfRange is returned when the requested text column does not
// exist in the file's header.
var ErrColumnOutOfRange = errors.New("text column out of range")

// CSVColumnLoader parses delimited files and extracts the text column.
type CSVColumnLoader struct {
	bytes loader.ByteLoader

	cache   map[string][]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewCSVColumnLoader creates a new CSVColumnLoader reading raw bytes from
// the given byte loader.
func NewCSVColumnLoader(bytes loader.ByteLoader) *CSVColumnLoader {
	return &CSVColumnLoader{
		bytes: bytes,
		cache: make(map[string][]string),
	}
}

// GetDocuments retrieves the file and returns the non-empty cells of the
// source's text column, one document per row. Results are cached per source.
func (l *CSVColumnLoader) GetDocuments(ctx context.Context, src loader.TextSource) ([]string, error) {
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

		docs, err := ParseColumn(content, src.Column, CommaFor(src.Path))
		if err != nil {
			return nil, err
		}

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

// GetPreview parses the file's header and first rows for column selection.
func (l *CSVColumnLoader) GetPreview(ctx context.Context, src loader.TextSource, rows int) (*loader.Preview, error) {
	content, err := l.bytes.GetFileBytes(ctx, src)
	if err != nil {
		return nil, err
	}
	return ParsePreview(content, src.Column, rows, CommaFor(src.Path))
}

// CommaFor returns the field delimiter for a path, tab for .tsv files and
// comma otherwise.
func CommaFor(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func newReader(content []byte, comma rune) *csv.Reader {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = comma
	return reader
}

// ParseColumn extracts the text column from delimited content. The first
// row is the header; the column index is validated against it. Rows whose
// cell is missing or blank are skipped.
func ParseColumn(content []byte, column int, comma rune) ([]string, error) {
	if column < 0 {
		return nil, fmt.Errorf("%w: column %d", ErrColumnOutOfRange, column)
	}

	reader := newReader(content, comma)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if column >= len(header) {
		return nil, fmt.Errorf("%w: column %d not found, file has %d columns", ErrColumnOutOfRange, column, len(header))
	}

	var docs []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if column >= len(record) {
			continue
		}
		cell := strings.TrimSpace(record[column])
		if cell == "" {
			continue
		}
		docs = append(docs, cell)
	}

	return docs, nil
}

// ParsePreview reads the header and up to rows data rows. The column
// preview is empty rather than an error when the column is out of range,
// so a preview with a wrong column still shows the file's structure.
func ParsePreview(content []byte, column int, rows int, comma rune) (*loader.Preview, error) {
	if rows <= 0 {
		rows = 5
	}

	reader := newReader(content, comma)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	preview := &loader.Preview{Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(preview.Rows) < rows {
			row := make([]string, len(header))
			copy(row, record)
			preview.Rows = append(preview.Rows, row)
		}
		preview.TotalRows++
	}

	if column >= 0 && column < len(header) {
		for _, row := range preview.Rows {
			preview.ColumnPreview = append(preview.ColumnPreview, row[column])
		}
	}

	return preview, nil
}

// Package excel extracts text documents from Excel workbooks (.xlsx, .xls)
// by converting them to CSV with unoconv and reading the text column of the
// first sheet, matching how uploaded spreadsheets are read elsewhere.
package excel

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"
	"github.com/chenraccah/semantic-network-analyzer/pkg/loader/csv"

	"golang.org/x/sync/singleflight"
)

// ExcelColumnLoader converts workbooks to CSV and extracts the text column.
type ExcelColumnLoader struct {
	bytes loader.ByteLoader

	cache   map[string][]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewExcelColumnLoader creates a new ExcelColumnLoader reading raw bytes
// from the given byte loader.
func NewExcelColumnLoader(bytes loader.ByteLoader) *ExcelColumnLoader {
	return &ExcelColumnLoader{
		bytes: bytes,
		cache: make(map[string][]string),
	}
}

// GetDocuments converts the workbook and returns the non-empty cells of the
// source's text column from the first sheet. Results are cached per source.
func (l *ExcelColumnLoader) GetDocuments(ctx context.Context, src loader.TextSource) ([]string, error) {
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

		sheet, err := l.firstSheet(ctx, src)
		if err != nil {
			return nil, err
		}

		docs, err := csv.ParseColumn(sheet, src.Column, ',')
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

// GetPreview converts the workbook and previews the first sheet.
func (l *ExcelColumnLoader) GetPreview(ctx context.Context, src loader.TextSource, rows int) (*loader.Preview, error) {
	sheet, err := l.firstSheet(ctx, src)
	if err != nil {
		return nil, err
	}
	return csv.ParsePreview(sheet, src.Column, rows, ',')
}

// firstSheet converts the workbook and returns the first sheet's CSV in
// sheet-name order, so repeated conversions pick the same sheet.
func (l *ExcelColumnLoader) firstSheet(ctx context.Context, src loader.TextSource) ([]byte, error) {
	content, err := l.bytes.GetFileBytes(ctx, src)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(src.Path)
	ext = strings.ReplaceAll(ext, ".", "")
	ext = strings.ToLower(ext)

	sheets, err := loader.TransformExcelToCsv(content, ext)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	sort.Strings(names)

	return sheets[names[0]], nil
}

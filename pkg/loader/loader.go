package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

type SourceType string

const (
	SourceTypeCSV   SourceType = "csv"
	SourceTypeExcel SourceType = "excel"
	SourceTypeDoc   SourceType = "doc"
	SourceTypeWeb   SourceType = "web"
)

// DefaultTextColumn is the 0-indexed column read from tabular sources when
// the caller does not pick one. Column 0 is usually an identifier.
const DefaultTextColumn = 1

// TextSource points at one group's raw material: an uploaded file, an object
// key, or a URL. Column selects the text column for tabular sources and is
// ignored by document and web sources.
//
// The documents themselves are produced by the associated ColumnLoader.
type TextSource struct {
	ID     string
	Path   string
	Type   SourceType
	Column int
	Loader ColumnLoader
}

// NewTextSourceParams defines the input parameters for creating a TextSource.
// It is used by the constructor functions to initialize sources with
// consistent metadata and loader configuration.
type NewTextSourceParams struct {
	ID     string
	Path   string
	Column int
	Loader ColumnLoader
}

// NewCSVSource creates a TextSource of type SourceTypeCSV. Tab-separated
// files (.tsv) also use this type; the CSV loader switches the delimiter
// by extension.
func NewCSVSource(params NewTextSourceParams) TextSource {
	return TextSource{
		ID:     params.ID,
		Path:   params.Path,
		Type:   SourceTypeCSV,
		Column: params.Column,
		Loader: params.Loader,
	}
}

// NewExcelSource creates a TextSource of type SourceTypeExcel for .xlsx and
// .xls workbooks.
func NewExcelSource(params NewTextSourceParams) TextSource {
	return TextSource{
		ID:     params.ID,
		Path:   params.Path,
		Type:   SourceTypeExcel,
		Column: params.Column,
		Loader: params.Loader,
	}
}

// NewDocSource creates a TextSource of type SourceTypeDoc. Document sources
// yield one document per paragraph instead of reading a column.
func NewDocSource(params NewTextSourceParams) TextSource {
	return TextSource{
		ID:     params.ID,
		Path:   params.Path,
		Type:   SourceTypeDoc,
		Loader: params.Loader,
	}
}

// NewWebSource creates a TextSource of type SourceTypeWeb whose Path is a URL.
func NewWebSource(params NewTextSourceParams) TextSource {
	return TextSource{
		ID:     params.ID,
		Path:   params.Path,
		Type:   SourceTypeWeb,
		Loader: params.Loader,
	}
}

// Documents retrieves the extracted documents of the source using its Loader.
//
// Example:
//
//	docs, err := src.Documents(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(len(docs))
func (s *TextSource) Documents(ctx context.Context) ([]string, error) {
	if s.Loader == nil {
		return nil, fmt.Errorf("source %s has no loader", s.ID)
	}
	return s.Loader.GetDocuments(ctx, *s)
}

// ColumnLoader defines the interface for extracting the documents of a
// TextSource. Implementations parse a format and, for tabular formats,
// select the configured text column.
type ColumnLoader interface {
	GetDocuments(ctx context.Context, src TextSource) ([]string, error)
}

// ByteLoader fetches the raw bytes of a source. Implementations may read
// from disk, object storage, or other backends.
type ByteLoader interface {
	GetFileBytes(ctx context.Context, src TextSource) ([]byte, error)
}

// Preview describes the tabular structure of a source for column selection.
type Preview struct {
	Columns       []string   `json:"columns"`
	Rows          [][]string `json:"rows"`
	TotalRows     int        `json:"total_rows"`
	ColumnPreview []string   `json:"column_preview"`
}

// Previewer is implemented by loaders that can show a source's tabular
// structure without running a full extraction.
type Previewer interface {
	GetPreview(ctx context.Context, src TextSource, rows int) (*Preview, error)
}

func CacheKey(src TextSource) string {
	return src.ID + ":" + src.Path
}

// TypeForFile maps a filename to the source type that handles it.
func TypeForFile(name string) (SourceType, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv":
		return SourceTypeCSV, nil
	case ".xlsx", ".xls":
		return SourceTypeExcel, nil
	case ".docx", ".txt", ".md":
		return SourceTypeDoc, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(name))
	}
}

package doc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// docxText walks word/document.xml and renders visible text: one line per
// paragraph, table rows as tab-separated lines, tracked deletions skipped.
type docxText struct {
	out     strings.Builder
	inRun   bool
	deleted int
	inTable bool
	cell    int
}

func parseDocx(content []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}

	body, err := documentXML(zr)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	dec := xml.NewDecoder(io.LimitReader(body, int64(docXMLMax)))
	w := &docxText{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t.Name.Local)
		case xml.EndElement:
			w.end(t.Name.Local)
		case xml.CharData:
			if w.inRun && w.deleted == 0 {
				w.out.Write(t)
			}
		}
	}
	return w.render(), nil
}

// documentXML locates the main document part and guards its size.
func documentXML(zr *zip.Reader) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		if f.UncompressedSize64 > docXMLMax {
			return nil, fmt.Errorf("document.xml too large: %d bytes", f.UncompressedSize64)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document.xml: %w", err)
		}
		return rc, nil
	}
	return nil, fmt.Errorf("document.xml not found in docx")
}

func (w *docxText) start(name string) {
	switch name {
	case "del":
		w.deleted++
	case "t":
		w.inRun = true
	case "tab":
		w.emit("\t")
	case "br", "cr":
		w.emit("\n")
	case "noBreakHyphen":
		w.emit("-")
	case "tbl":
		w.inTable = true
		w.cell = 0
		w.breakLine()
	case "tr":
		w.cell = 0
	case "tc":
		if w.inTable && w.deleted == 0 {
			if w.cell > 0 {
				w.out.WriteByte('\t')
			}
			w.cell++
		}
	}
}

func (w *docxText) end(name string) {
	switch name {
	case "t":
		w.inRun = false
	case "p", "tr":
		w.emit("\n")
	case "tbl":
		w.inTable = false
		w.emit("\n")
	case "del":
		if w.deleted > 0 {
			w.deleted--
		}
	}
}

func (w *docxText) emit(s string) {
	if w.deleted == 0 {
		w.out.WriteString(s)
	}
}

// breakLine terminates the current line, if any text has been written yet.
func (w *docxText) breakLine() {
	s := w.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		w.out.WriteByte('\n')
	}
}

// render trims the result, collapses runs of blank lines to a single blank
// line, and keeps a trailing newline.
func (w *docxText) render() []byte {
	text := strings.TrimSpace(w.out.String())
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	if text != "" {
		text += "\n"
	}
	return []byte(text)
}

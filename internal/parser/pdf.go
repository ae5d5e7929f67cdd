package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/extractproof/internal/document"
)

// PDFParser handles PDF files. Each page with text is one section, read
// from the same text layer the locator searches.
type PDFParser struct{}

func (p *PDFParser) Parse(r io.Reader, filename string) (*Outline, error) {
	// The PDF reader needs a file, so spool to a temp file.
	tmp, err := os.CreateTemp("", "extractproof-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	return ParsePDFFile(tmpPath, filename)
}

// ParsePDFFile reads the outline of a PDF already on disk.
func ParsePDFFile(path, filename string) (*Outline, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	o := &Outline{Title: titleFrom(filename, ".pdf")}
	for page := range doc.PageCount() {
		layer, err := doc.TextLayer(page)
		if err != nil {
			return nil, err
		}
		text := layer.String()
		if strings.TrimSpace(text) == "" {
			continue
		}
		o.Sections = append(o.Sections, &Section{Text: text, Page: page})
	}
	return o, nil
}

package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/extractproof/internal/element"
	"github.com/dgallion1/extractproof/internal/parser"
)

// LocalExtractor reads documents in-process instead of calling the
// extraction service. It yields text and table elements but no images.
type LocalExtractor struct{}

func (LocalExtractor) Extract(ctx context.Context, path string) ([]element.RawElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Base(path)

	var outline *parser.Outline
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		o, err := parser.ParsePDFFile(path, name)
		if err != nil {
			return nil, err
		}
		outline = o
	} else {
		p, err := parser.ForFile(name)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
		defer f.Close()
		o, err := p.Parse(f, name)
		if err != nil {
			return nil, err
		}
		outline = o
	}

	return parser.Elements(outline)
}

// Package locate finds where extracted text physically sits on the pages of
// its source document.
package locate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/extractproof/internal/document"
	"github.com/dgallion1/extractproof/internal/geom"
	"golang.org/x/sync/errgroup"
)

// Locator searches page text layers for the lines of a text block.
type Locator struct {
	workers int
	log     *slog.Logger
}

// NewLocator returns a Locator that searches up to workers pages at once.
func NewLocator(workers int, log *slog.Logger) *Locator {
	if workers <= 0 {
		workers = 1
	}
	return &Locator{workers: workers, log: log}
}

// SplitLines breaks text on line boundaries and trims each line. Empty lines
// are dropped since they would match everywhere.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// LocateFile opens path, locates text in it, and closes it again.
func (l *Locator) LocateFile(ctx context.Context, path, text string) (geom.PageHighlights, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return l.Locate(ctx, doc, text)
}

// Locate returns, for every page of doc, the boxes of every occurrence of
// every line of text. Each page has a slot even when nothing matched. Within
// a page, boxes follow line order and then match order.
func (l *Locator) Locate(ctx context.Context, doc *document.Document, text string) (geom.PageHighlights, error) {
	lines := SplitLines(text)
	result := geom.NewPageBoxes[geom.DocBox](doc.PageCount())
	if len(lines) == 0 {
		return result, nil
	}

	// hits[page][i] records whether lines[i] matched on page.
	hits := make([][]bool, doc.PageCount())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for page := range doc.PageCount() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			layer, err := doc.TextLayer(page)
			if err != nil {
				return err
			}
			boxes := []geom.DocBox{}
			hits[page] = make([]bool, len(lines))
			for i, line := range lines {
				found := layer.Find(line)
				hits[page][i] = len(found) > 0
				boxes = append(boxes, found...)
			}
			result[page] = boxes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("locate: %w", err)
	}

	matched := 0
	for i := range lines {
		for page := range hits {
			if hits[page][i] {
				matched++
				break
			}
		}
	}
	l.log.Debug("located text", "pages", doc.PageCount(), "lines", len(lines), "lines_matched", matched, "boxes", result.Total())
	return result, nil
}

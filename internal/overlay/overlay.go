// Package overlay renders a proof-of-extraction PDF: every source page
// copied onto a same-sized page with bounding rectangles drawn over it.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/extractproof/internal/document"
	"github.com/dgallion1/extractproof/internal/geom"
	"github.com/signintech/gopdf"
)

// ErrRender is wrapped by every failure to produce the output document.
var ErrRender = errors.New("render failed")

// Style controls how overlays are stroked.
type Style struct {
	TextColor  color.RGBA
	ImageColor color.RGBA
	LineWidth  float64
}

// DefaultStyle strokes text in yellow and images in red, 2pt wide.
var DefaultStyle = Style{
	TextColor:  color.RGBA{R: 255, G: 255, B: 0, A: 255},
	ImageColor: color.RGBA{R: 255, G: 0, B: 0, A: 255},
	LineWidth:  2,
}

// Stroke is one rectangle to draw on a page, already in document space.
type Stroke struct {
	Box   geom.DocBox
	Color color.RGBA
}

// Artifact describes a rendered output document.
type Artifact struct {
	Path       string `json:"path"`
	Pages      int    `json:"pages"`
	TextBoxes  int    `json:"text_boxes"`
	ImageBoxes int    `json:"image_boxes"`
}

// Renderer composites overlays onto copies of source pages.
type Renderer struct {
	style Style
	log   *slog.Logger
}

func NewRenderer(style Style, log *slog.Logger) *Renderer {
	if style.LineWidth <= 0 {
		style.LineWidth = DefaultStyle.LineWidth
	}
	return &Renderer{style: style, log: log}
}

// PlanPage lays out the strokes for one page of the given size. Image boxes
// are flipped into document space; everything is clipped to the page.
func (r *Renderer) PlanPage(text []geom.DocBox, images []geom.ImageBox, width, height float64) []Stroke {
	strokes := make([]Stroke, 0, len(text)+len(images))
	for _, b := range text {
		strokes = append(strokes, Stroke{
			Box:   geom.DocBox(b.Rect().Clip(width, height)),
			Color: r.style.TextColor,
		})
	}
	for _, b := range images {
		strokes = append(strokes, Stroke{
			Box:   geom.DocBox(b.ToDocument(height).Rect().Clip(width, height)),
			Color: r.style.ImageColor,
		})
	}
	return strokes
}

// Render writes a new document to out with the same page count and page
// sizes as src. src is only read. out is replaced atomically, so a failed
// render leaves whatever was at out before.
func (r *Renderer) Render(ctx context.Context, src string, highlights geom.PageHighlights, images geom.PageImageBoxes, out string) (art *Artifact, err error) {
	doc, err := document.Open(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	pageCount := doc.PageCount()
	media := make([]geom.Rect, pageCount)
	for i := range pageCount {
		media[i] = doc.MediaBox(i)
	}
	doc.Close()

	if len(highlights) > pageCount || len(images) > pageCount {
		return nil, fmt.Errorf("%w: overlays for %d/%d pages, document has %d",
			ErrRender, len(highlights), len(images), pageCount)
	}

	// The importer panics on sources it cannot parse.
	defer func() {
		if p := recover(); p != nil {
			art = nil
			err = fmt.Errorf("%w: %s: %v", ErrRender, src, p)
		}
	}()

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		Unit:     gopdf.UnitPT,
		PageSize: gopdf.Rect{W: media[0].Width(), H: media[0].Height()},
	})

	art = &Artifact{Path: out, Pages: pageCount}
	for i := range pageCount {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRender, err)
		}
		w, h := media[i].Width(), media[i].Height()

		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: w, H: h}})
		tpl := pdf.ImportPage(src, i+1, "/MediaBox")
		pdf.UseImportedTemplate(tpl, 0, 0, w, h)

		strokes := r.PlanPage(highlights.Page(i), images.Page(i), w, h)
		pdf.SetLineWidth(r.style.LineWidth)
		for _, s := range strokes {
			pdf.SetStrokeColor(s.Color.R, s.Color.G, s.Color.B)
			b := s.Box.Rect()
			pdf.RectFromUpperLeftWithStyle(b.X0, b.Y0, b.Width(), b.Height(), "D")
		}
		art.TextBoxes += len(highlights.Page(i))
		art.ImageBoxes += len(images.Page(i))
	}

	if err := writeAtomic(pdf, out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	r.log.Debug("rendered overlay", "src", src, "out", out, "pages", art.Pages,
		"text_boxes", art.TextBoxes, "image_boxes", art.ImageBoxes)
	return art, nil
}

func writeAtomic(pdf *gopdf.GoPdf, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), ".overlay-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := pdf.WritePdf(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := os.Rename(tmpPath, out); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

package document

import (
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/extractproof/internal/geom"
	pdflib "github.com/ledongthuc/pdf"
)

// Glyph metrics relative to font size. The pdf library reports baselines
// only, so the box above and below the baseline is approximated.
const (
	ascentRatio  = 0.8
	descentRatio = 0.2

	// Horizontal gap, as a fraction of font size, read as a word break.
	wordGapRatio = 0.25
	// Baseline difference, as a fraction of font size, still on one line.
	baselineTolerance = 0.3
)

// TextLayer is the searchable text of one page, organized into visual lines.
type TextLayer struct {
	Lines []TextLine
}

// TextLine is one visual line of text. Offsets[i] is the index into Boxes of
// the glyph that produced byte i of Text, or -1 for synthesized spaces.
type TextLine struct {
	Text    string
	Offsets []int
	Boxes   []geom.DocBox
}

type glyph struct {
	s        string
	x, y, w  float64
	fontSize float64
}

// BuildTextLayer groups positioned glyphs into lines, top to bottom, each
// read left to right. Boxes are converted to document space against media.
func BuildTextLayer(texts []pdflib.Text, media geom.Rect) *TextLayer {
	glyphs := make([]glyph, 0, len(texts))
	for _, t := range texts {
		if t.S == "" || strings.ContainsAny(t.S, "\r\n") {
			continue
		}
		fs := t.FontSize
		if fs <= 0 {
			fs = 1
		}
		glyphs = append(glyphs, glyph{s: t.S, x: t.X, y: t.Y, w: t.W, fontSize: fs})
	}

	rows := groupRows(glyphs)
	layer := &TextLayer{Lines: make([]TextLine, 0, len(rows))}
	for _, row := range rows {
		if line := buildLine(row, media); strings.TrimSpace(line.Text) != "" {
			layer.Lines = append(layer.Lines, line)
		}
	}
	return layer
}

// groupRows buckets glyphs by baseline. Buckets are returned top of page
// first, with glyphs sorted by x.
func groupRows(glyphs []glyph) [][]glyph {
	type bucket struct {
		y      float64
		glyphs []glyph
	}
	var buckets []*bucket

	for _, g := range glyphs {
		var hit *bucket
		for _, b := range buckets {
			if math.Abs(g.y-b.y) <= baselineTolerance*g.fontSize {
				hit = b
				break
			}
		}
		if hit == nil {
			hit = &bucket{y: g.y}
			buckets = append(buckets, hit)
		}
		hit.glyphs = append(hit.glyphs, g)
	}

	// PDF user space grows upward, so the top line has the largest y.
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].y > buckets[j].y })

	rows := make([][]glyph, len(buckets))
	for i, b := range buckets {
		sort.SliceStable(b.glyphs, func(x, y int) bool { return b.glyphs[x].x < b.glyphs[y].x })
		rows[i] = b.glyphs
	}
	return rows
}

func buildLine(row []glyph, media geom.Rect) TextLine {
	var sb strings.Builder
	line := TextLine{}
	var prev *glyph

	for i := range row {
		g := &row[i]
		// Fake-bold text repeats each glyph at a tiny offset.
		if prev != nil && prev.s == g.s && math.Abs(prev.x-g.x) < 0.05*g.fontSize {
			continue
		}
		if prev != nil {
			gap := g.x - (prev.x + prev.w)
			if gap > wordGapRatio*g.fontSize && !endsWithSpace(prev.s) && !startsWithSpace(g.s) {
				sb.WriteByte(' ')
				line.Offsets = append(line.Offsets, -1)
			}
		}

		idx := len(line.Boxes)
		line.Boxes = append(line.Boxes, glyphBox(*g, media))
		sb.WriteString(g.s)
		for range len(g.s) {
			line.Offsets = append(line.Offsets, idx)
		}
		prev = g
	}

	line.Text = sb.String()
	return line
}

func glyphBox(g glyph, media geom.Rect) geom.DocBox {
	top := g.y + ascentRatio*g.fontSize
	bottom := g.y - descentRatio*g.fontSize
	return geom.DocBox(geom.Rect{
		X0: g.x - media.X0,
		Y0: media.Y1 - top,
		X1: g.x + g.w - media.X0,
		Y1: media.Y1 - bottom,
	}.Normalize())
}

func endsWithSpace(s string) bool   { return strings.HasSuffix(s, " ") }
func startsWithSpace(s string) bool { return strings.HasPrefix(s, " ") }

// Find returns a box for every non-overlapping occurrence of needle on the
// line, in left-to-right order.
func (l TextLine) Find(needle string) []geom.DocBox {
	if needle == "" {
		return nil
	}
	var out []geom.DocBox
	for off := 0; off < len(l.Text); {
		i := strings.Index(l.Text[off:], needle)
		if i < 0 {
			break
		}
		start := off + i
		end := start + len(needle)
		if box, ok := l.span(start, end); ok {
			out = append(out, box)
		}
		off = end
	}
	return out
}

// span unions the glyph boxes covering bytes [start, end).
func (l TextLine) span(start, end int) (geom.DocBox, bool) {
	var r geom.Rect
	found := false
	last := -1
	for _, idx := range l.Offsets[start:end] {
		if idx < 0 || idx == last {
			continue
		}
		last = idx
		b := l.Boxes[idx].Rect()
		if !found {
			r = b
			found = true
			continue
		}
		r = r.Union(b)
	}
	return geom.DocBox(r), found
}

// Find searches every line of the layer for needle, top to bottom.
func (t *TextLayer) Find(needle string) []geom.DocBox {
	var out []geom.DocBox
	for _, line := range t.Lines {
		out = append(out, line.Find(needle)...)
	}
	return out
}

// String joins the layer's lines with newlines.
func (t *TextLayer) String() string {
	lines := make([]string, len(t.Lines))
	for i, l := range t.Lines {
		lines[i] = l.Text
	}
	return strings.Join(lines, "\n")
}

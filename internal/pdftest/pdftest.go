// Package pdftest writes small PDF fixtures with exactly known text geometry.
// Every printable ASCII glyph is 500/1000 em wide, so a run of n characters
// at font size s spans n*s/2 points.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// GlyphWidth is the advance of every glyph, in thousandths of an em.
const GlyphWidth = 500

// Run is a string drawn with its baseline origin at (X, Y) in PDF user
// space (origin bottom-left).
type Run struct {
	X, Y float64
	Size float64
	Text string
}

// Page is one fixture page.
type Page struct {
	Width, Height float64
	Runs          []Run
}

// Build returns the bytes of a PDF containing pages.
func Build(pages []Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1: catalog, 2: page tree, 3: font, then (page, contents) pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	widths := make([]string, 0, 95)
	for range 95 {
		widths = append(widths, fmt.Sprint(GlyphWidth))
	}
	obj(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " ")))

	for i, p := range pages {
		var content strings.Builder
		for _, r := range p.Runs {
			fmt.Fprintf(&content, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n", num(r.Size), num(r.X), num(r.Y), escape(r.Text))
		}
		stream := content.String()
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			num(p.Width), num(p.Height), 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Write builds the PDF into a file under t.TempDir and returns its path.
func Write(t testing.TB, name string, pages []Page) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, Build(pages), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// Width returns the advance of s at the given font size.
func Width(s string, size float64) float64 {
	return float64(len(s)) * GlyphWidth / 1000 * size
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Package report summarizes an analysis outcome as Markdown, HTML or a Word
// document.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dgallion1/extractproof/internal/pipeline"
	"github.com/fumiama/go-docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown builds the summary shown next to the proof document.
func Markdown(o *pipeline.Outcome, filename string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Extraction proof: %s\n\n", filename)
	sb.WriteString(o.ExtractionTiming() + "\n\n")
	sb.WriteString(o.HighlightTiming() + "\n\n")

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Text elements | Tables | Images |\n| --- | --- | --- |\n")
	fmt.Fprintf(&sb, "| %d | %d | %d |\n\n", o.Counts.Text, o.Counts.Tables, o.Counts.Images)

	if o.Highlights != nil {
		sb.WriteString("## Boxes per page\n\n")
		sb.WriteString("| Page | Text boxes | Image boxes |\n| --- | --- | --- |\n")
		for i, text := range o.Highlights.Counts() {
			fmt.Fprintf(&sb, "| %d | %d | %d |\n", i+1, text, len(o.ImageBoxes.Page(i)))
		}
		sb.WriteString("\n")
	}

	if len(o.Tables) > 0 {
		sb.WriteString("## Tables\n\n")
		for i, t := range o.Tables {
			fmt.Fprintf(&sb, "### Table %d\n\n%s\n\n", i+1, strings.TrimSpace(t))
		}
	}

	if len(o.Images) > 0 {
		sb.WriteString("## Images\n\n")
		for i, img := range o.Images {
			uri, err := img.DataURI()
			if err != nil {
				fmt.Fprintf(&sb, "Image %d could not be encoded: %v\n\n", i+1, err)
				continue
			}
			fmt.Fprintf(&sb, "![Image %d](%s)\n\n", i+1, uri)
		}
	}

	sb.WriteString("## Extracted text\n\n")
	fence := codeFence(o.FullText)
	sb.WriteString(fence + "text\n" + o.FullText)
	if !strings.HasSuffix(o.FullText, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(fence + "\n")
	return sb.String()
}

// codeFence returns a backtick fence longer than any run inside s.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
{{.Body}}</body></html>
`))

// HTML renders markdown as a standalone page.
func HTML(title, markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body.String())})
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return out.String(), nil
}

// WriteDOCX writes the full text and tables of o as a Word document.
func WriteDOCX(w io.Writer, o *pipeline.Outcome, filename string) error {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText("Extraction proof: " + filename).Bold().Size("32")
	doc.AddParagraph().AddText(strings.ReplaceAll(o.ExtractionTiming(), "**", ""))
	doc.AddParagraph().AddText(strings.ReplaceAll(o.HighlightTiming(), "**", ""))
	doc.AddParagraph().AddText(fmt.Sprintf("Text elements: %d, tables: %d, images: %d",
		o.Counts.Text, o.Counts.Tables, o.Counts.Images))

	if len(o.Tables) > 0 {
		doc.AddParagraph().AddText("Tables").Bold().Size("28")
		for i, t := range o.Tables {
			doc.AddParagraph().AddText(fmt.Sprintf("Table %d", i+1)).Bold()
			for _, line := range strings.Split(strings.TrimSpace(t), "\n") {
				doc.AddParagraph().AddText(line)
			}
		}
	}

	doc.AddParagraph().AddText("Extracted text").Bold().Size("28")
	for _, line := range strings.Split(strings.TrimRight(o.FullText, "\n"), "\n") {
		doc.AddParagraph().AddText(line)
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

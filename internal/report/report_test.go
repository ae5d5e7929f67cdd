package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dgallion1/extractproof/internal/geom"
	"github.com/dgallion1/extractproof/internal/pipeline"
	"github.com/dgallion1/extractproof/internal/reconcile"
	"github.com/fumiama/go-docx"
)

func sampleOutcome() *pipeline.Outcome {
	highlights := geom.NewPageBoxes[geom.DocBox](2)
	highlights[0] = append(highlights[0], geom.DocBox{X0: 1, Y0: 1, X1: 2, Y1: 2})
	images := geom.NewPageBoxes[geom.ImageBox](2)
	images[1] = append(images[1], geom.ImageBox{X0: 1, Y0: 1, X1: 2, Y1: 2})
	return &pipeline.Outcome{
		FullText:         "Revenue increased 12%\nSee ```code```\n",
		Tables:           []string{"| Q | Rev |\n| --- | --- |\n| Q1 | 10 |\n"},
		Counts:           reconcile.Counts{Text: 1, Tables: 1},
		Highlights:       highlights,
		ImageBoxes:       images,
		ExtractSeconds:   1.5,
		HighlightSeconds: 0.25,
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleOutcome(), "q4.pdf")
	for _, want := range []string{
		"# Extraction proof: q4.pdf",
		"**Time taken for extracting:** 1.50 (s)",
		"**Time taken for highlighting:** 0.25 (s)",
		"| 1 | 1 | 0 |",
		"| 2 | 0 | 1 |",
		"### Table 1",
		"````text\nRevenue increased 12%\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}
}

func TestMarkdown_NoHighlightSection(t *testing.T) {
	o := sampleOutcome()
	o.Highlights, o.ImageBoxes = nil, nil
	if strings.Contains(Markdown(o, "a.txt"), "Boxes per page") {
		t.Error("expected no per-page section without highlighting")
	}
}

func TestHTML_RendersTables(t *testing.T) {
	out, err := HTML("q4.pdf", Markdown(sampleOutcome(), "q4.pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<table>") {
		t.Error("expected GFM table rendered as <table>")
	}
	if !strings.Contains(out, "<title>q4.pdf</title>") {
		t.Error("expected escaped title")
	}
	if !strings.Contains(out, "<strong>Time taken for extracting:</strong>") {
		t.Error("expected bold timing label")
	}
}

func TestWriteDOCX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDOCX(&buf, sampleOutcome(), "q4.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := docx.Parse(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("expected a readable docx: %v", err)
	}
	var texts []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var sb strings.Builder
		for _, child := range para.Children {
			if run, ok := child.(*docx.Run); ok {
				for _, rc := range run.Children {
					if t, ok := rc.(*docx.Text); ok {
						sb.WriteString(t.Text)
					}
				}
			}
		}
		texts = append(texts, sb.String())
	}
	joined := strings.Join(texts, "\n")
	for _, want := range []string{"Extraction proof: q4.pdf", "Time taken for extracting: 1.50 (s)", "| Q1 | 10 |", "Revenue increased 12%"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected document to contain %q, got %q", want, joined)
		}
	}
}

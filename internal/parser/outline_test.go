package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/extractproof/internal/pdftest"
	"github.com/dgallion1/extractproof/internal/reconcile"
)

func TestHTMLParser_SectionsAndTables(t *testing.T) {
	input := `<html><head><title>Annual Report</title></head><body>
<nav>skip me</nav>
<h1>Overview</h1><p>Revenue grew.</p>
<table><tr><th>Q</th><th>Rev</th></tr><tr><td>Q1</td><td>10</td></tr></table>
<h2>Outlook</h2><ul><li>Stable</li></ul>
<script>var x = 1;</script>
</body></html>`
	o, err := (&HTMLParser{}).Parse(strings.NewReader(input), "r.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Title != "Annual Report" {
		t.Errorf("expected title from <title>, got %q", o.Title)
	}
	if len(o.Sections) != 1 || o.Sections[0].Heading != "Overview" || o.Sections[0].Text != "Revenue grew." {
		t.Fatalf("unexpected sections %+v", o.Sections)
	}
	if len(o.Sections[0].Children) != 1 || o.Sections[0].Children[0].Text != "Stable" {
		t.Errorf("expected Outlook with Stable, got %+v", o.Sections[0].Children)
	}
	want := "| Q | Rev |\n| --- | --- |\n| Q1 | 10 |\n"
	if len(o.Tables) != 1 || o.Tables[0] != want {
		t.Errorf("expected table %q, got %q", want, o.Tables)
	}
}

func TestCSVParser_SingleTable(t *testing.T) {
	o, err := (&CSVParser{}).Parse(strings.NewReader("a,b\n1,2\n3\n"), "data.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "| a | b |\n| --- | --- |\n| 1 | 2 |\n| 3 |  |\n"
	if len(o.Tables) != 1 || o.Tables[0] != want {
		t.Errorf("expected %q, got %q", want, o.Tables)
	}
	if o.Title != "data" {
		t.Errorf("expected title data, got %q", o.Title)
	}
}

func TestMarkdownTable_EscapesPipes(t *testing.T) {
	got := MarkdownTable([][]string{{"k"}, {"a|b"}})
	if !strings.Contains(got, `a\|b`) {
		t.Errorf("expected escaped pipe, got %q", got)
	}
	if MarkdownTable(nil) != "" {
		t.Error("expected empty table for no rows")
	}
}

func TestElements_ReconcileInOrder(t *testing.T) {
	o := &Outline{
		Sections: []*Section{
			{Heading: "Intro", Text: "Hello.", Children: []*Section{{Heading: "Detail"}}},
			{Text: "Tail."},
		},
		Tables: []string{"| x |\n| --- |\n"},
	}
	raws, err := Elements(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := reconcile.Reconcile(raws)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Intro\nHello.\nDetail\nTail.\n"
	if res.FullText != want {
		t.Errorf("expected %q, got %q", want, res.FullText)
	}
	if len(res.Tables) != 1 || res.Tables[0] != o.Tables[0] {
		t.Errorf("expected the table verbatim, got %q", res.Tables)
	}
}

func TestPDFParser_PageSections(t *testing.T) {
	path := pdftest.Write(t, "p.pdf", []pdftest.Page{
		{Width: 300, Height: 300},
		{Width: 300, Height: 300, Runs: []pdftest.Run{{X: 10, Y: 200, Size: 10, Text: "Second page"}}},
	})
	o, err := ParsePDFFile(path, "p.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.Sections) != 1 || o.Sections[0].Page != 1 || o.Sections[0].Text != "Second page" {
		t.Errorf("expected one section for page 1, got %+v", o.Sections)
	}
	if o.Title != "p" {
		t.Errorf("expected title p, got %q", o.Title)
	}
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.txt", "b.MD", "c.csv", "d.htm", "e.pdf", "f.docx"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("%s: expected supported", name)
		}
	}
	if _, err := ForFile("g.pptx"); err == nil {
		t.Error("expected pptx to be unsupported locally")
	}
}

package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/extractproof/internal/element"
)

// Outline is the parsed structure of a document.
type Outline struct {
	Title    string     // Document title (from metadata or filename)
	Sections []*Section // Top-level sections
	Tables   []string   // Tables rendered as markdown, in document order
}

// Section is a recursive heading-delimited part of a document.
type Section struct {
	Heading  string     // Section heading (empty for leaf text)
	Text     string     // Body text (may be empty for container sections)
	Page     int        // Zero-based source page (0 if N/A)
	Children []*Section // Subsections
}

// outlineBuilder nests sections by heading level as blocks arrive in
// document order.
type outlineBuilder struct {
	root  *Section
	stack []builderEntry
	text  strings.Builder
}

type builderEntry struct {
	section *Section
	level   int
}

func newOutlineBuilder() *outlineBuilder {
	root := &Section{}
	return &outlineBuilder{root: root, stack: []builderEntry{{section: root, level: 0}}}
}

func (b *outlineBuilder) flush() {
	t := strings.TrimSpace(b.text.String())
	if t != "" {
		top := b.stack[len(b.stack)-1].section
		if top.Text != "" {
			top.Text += "\n\n" + t
		} else {
			top.Text = t
		}
	}
	b.text.Reset()
}

// heading opens a section under the nearest shallower heading.
func (b *outlineBuilder) heading(level int, title string) {
	b.flush()
	s := &Section{Heading: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].section
	parent.Children = append(parent.Children, s)
	b.stack = append(b.stack, builderEntry{section: s, level: level})
}

// paragraph appends a block of body text to the open section.
func (b *outlineBuilder) paragraph(t string) {
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

// sections returns the top-level sections. Text before the first heading
// becomes its own leading section.
func (b *outlineBuilder) sections() []*Section {
	b.flush()
	out := b.root.Children
	if b.root.Text != "" {
		out = append([]*Section{{Text: b.root.Text}}, out...)
	}
	return out
}

// MarkdownTable renders rows as a markdown table, the first row being the
// header. Short rows are padded to the widest row.
func MarkdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	var sb strings.Builder
	writeRow := func(r []string) {
		sb.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(r) {
				cell = strings.ReplaceAll(strings.TrimSpace(r[i]), "|", `\|`)
				cell = strings.ReplaceAll(cell, "\n", " ")
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}
	writeRow(rows[0])
	sb.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return sb.String()
}

// Elements converts an outline into extraction elements: one text element
// per non-empty section, depth first, followed by one structured element
// per table.
func Elements(o *Outline) ([]element.RawElement, error) {
	var out []element.RawElement
	var walk func([]*Section) error
	walk = func(sections []*Section) error {
		for _, s := range sections {
			var content strings.Builder
			if s.Heading != "" {
				content.WriteString(s.Heading + "\n")
			}
			if s.Text != "" {
				content.WriteString(s.Text + "\n")
			}
			if content.Len() > 0 {
				raw, err := rawElement(element.KindText, map[string]any{
					"content": content.String(),
					"content_metadata": map[string]any{
						"type":      "text",
						"hierarchy": map[string]any{"page": s.Page},
					},
				})
				if err != nil {
					return err
				}
				out = append(out, raw)
			}
			if err := walk(s.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(o.Sections); err != nil {
		return nil, err
	}

	for _, table := range o.Tables {
		raw, err := rawElement(element.KindStructured, map[string]any{
			"content":        table,
			"table_metadata": map[string]any{"table_content": table},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func rawElement(kind element.Kind, metadata map[string]any) (element.RawElement, error) {
	md, err := json.Marshal(metadata)
	if err != nil {
		return element.RawElement{}, fmt.Errorf("marshal %s element: %w", kind, err)
	}
	return element.RawElement{DocumentType: string(kind), Metadata: md}, nil
}

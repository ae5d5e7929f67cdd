package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files, including text dumped from paged
// documents. Blank lines separate paragraphs and a form feed starts a new
// page. A single line underlined with "===" or "---" is a heading that owns
// the paragraphs after it.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Outline, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	o := &Outline{Title: titleFrom(filename, ".txt")}
	var (
		page    int
		para    []string
		heading *Section
	)

	flush := func() {
		if len(para) == 0 {
			return
		}
		s := &Section{Text: strings.Join(para, "\n"), Page: page}
		para = nil
		if heading != nil {
			heading.Children = append(heading.Children, s)
			return
		}
		o.Sections = append(o.Sections, s)
	}

	line := func(l string) {
		switch {
		case strings.TrimSpace(l) == "":
			flush()
		case len(para) == 1 && isUnderline(l):
			heading = &Section{Heading: strings.TrimSpace(para[0]), Page: page}
			o.Sections = append(o.Sections, heading)
			para = nil
		default:
			para = append(para, l)
		}
	}

	for scanner.Scan() {
		for i, seg := range strings.Split(strings.TrimRight(scanner.Text(), " \t\r"), "\f") {
			if i > 0 {
				flush()
				page++
			}
			line(seg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return o, nil
}

// isUnderline reports whether l is a run of at least three '=' or '-'.
func isUnderline(l string) bool {
	l = strings.TrimSpace(l)
	if len(l) < 3 {
		return false
	}
	return strings.Count(l, "=") == len(l) || strings.Count(l, "-") == len(l)
}

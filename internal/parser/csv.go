package parser

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVParser handles CSV files. The whole file is one table whose first
// record is the header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Outline, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	o := &Outline{Title: titleFrom(filename, ".csv")}
	if len(records) > 0 {
		o.Tables = append(o.Tables, MarkdownTable(records))
	}
	return o, nil
}

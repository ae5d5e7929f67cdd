// Package reconcile splits a mixed extraction result into typed buckets.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/dgallion1/extractproof/internal/element"
	"github.com/dgallion1/extractproof/internal/geom"
)

// Result is the reconciled content of one extraction job.
type Result struct {
	FullText       string
	Tables         []string
	Images         []string // base64 payloads
	ImageLocations geom.ImageLocations
	Counts         Counts
}

// Counts summarizes how many elements of each kind were reconciled.
type Counts struct {
	Text   int `json:"text"`
	Tables int `json:"tables"`
	Images int `json:"images"`
}

// Reconcile decodes raws and partitions them, preserving input order.
// A single malformed element fails the whole result.
func Reconcile(raws []element.RawElement) (*Result, error) {
	elements, err := element.DecodeAll(raws)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return Elements(elements), nil
}

// Elements partitions already-decoded elements.
func Elements(elements []element.Element) *Result {
	res := &Result{
		Tables:         []string{},
		Images:         []string{},
		ImageLocations: geom.ImageLocations{},
	}
	var text strings.Builder

	for _, el := range elements {
		switch e := el.(type) {
		case element.Text:
			text.WriteString(e.Content)
			res.Counts.Text++
		case element.Table:
			res.Tables = append(res.Tables, e.Content)
			res.Counts.Tables++
		case element.Image:
			res.Images = append(res.Images, e.Content)
			res.ImageLocations.Add(e.Page, e.Location)
			res.Counts.Images++
		}
	}

	res.FullText = text.String()
	return res
}

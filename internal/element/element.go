// Package element models the typed results of a multimodal extraction job.
package element

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgallion1/extractproof/internal/geom"
)

// Kind is the document_type tag of an extraction element.
type Kind string

const (
	KindText       Kind = "text"
	KindStructured Kind = "structured"
	KindImage      Kind = "image"
)

// RawElement is one element as returned by the extraction job.
type RawElement struct {
	DocumentType string          `json:"document_type"`
	Metadata     json.RawMessage `json:"metadata"`
}

// Element is a decoded extraction element. The only implementations are
// Text, Table and Image.
type Element interface {
	Kind() Kind
	sealed()
}

// Text is extracted running text.
type Text struct {
	Content string
}

// Table is extracted table or chart content.
type Table struct {
	Content string
}

// Image is an extracted image with its page and location.
type Image struct {
	Content  string // base64
	Page     int
	Location geom.ImageBox
}

func (Text) Kind() Kind  { return KindText }
func (Table) Kind() Kind { return KindStructured }
func (Image) Kind() Kind { return KindImage }

func (Text) sealed()  {}
func (Table) sealed() {}
func (Image) sealed() {}

// ErrMalformedElement is wrapped by every decode failure.
var ErrMalformedElement = errors.New("malformed element")

// MalformedElementError reports which element and field failed to decode.
type MalformedElementError struct {
	Index        int
	DocumentType string
	Field        string
	Err          error
}

func (e *MalformedElementError) Error() string {
	msg := fmt.Sprintf("element %d (%s): missing or invalid %s", e.Index, e.DocumentType, e.Field)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedElementError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedElement, e.Err}
	}
	return []error{ErrMalformedElement}
}

// Wire shapes of the metadata record, one per document_type.
type textMetadata struct {
	Content *string `json:"content"`
}

type structuredMetadata struct {
	TableMetadata *struct {
		TableContent *string `json:"table_content"`
	} `json:"table_metadata"`
}

type imageMetadata struct {
	Content         *string `json:"content"`
	ContentMetadata *struct {
		Hierarchy *struct {
			Page *int `json:"page"`
		} `json:"hierarchy"`
	} `json:"content_metadata"`
	ImageMetadata *struct {
		ImageLocation []float64 `json:"image_location"`
	} `json:"image_metadata"`
}

// Decode validates raw against the fields its document_type requires.
// The returned error's Index is always 0; DecodeAll fills in the position.
func Decode(raw RawElement) (Element, error) {
	malformed := func(field string, err error) error {
		return &MalformedElementError{DocumentType: raw.DocumentType, Field: field, Err: err}
	}
	if len(raw.Metadata) == 0 {
		return nil, malformed("metadata", nil)
	}

	switch Kind(raw.DocumentType) {
	case KindText:
		var md textMetadata
		if err := json.Unmarshal(raw.Metadata, &md); err != nil {
			return nil, malformed("metadata", err)
		}
		if md.Content == nil {
			return nil, malformed("metadata.content", nil)
		}
		return Text{Content: *md.Content}, nil

	case KindStructured:
		var md structuredMetadata
		if err := json.Unmarshal(raw.Metadata, &md); err != nil {
			return nil, malformed("metadata", err)
		}
		if md.TableMetadata == nil || md.TableMetadata.TableContent == nil {
			return nil, malformed("metadata.table_metadata.table_content", nil)
		}
		return Table{Content: *md.TableMetadata.TableContent}, nil

	case KindImage:
		var md imageMetadata
		if err := json.Unmarshal(raw.Metadata, &md); err != nil {
			return nil, malformed("metadata", err)
		}
		if md.Content == nil {
			return nil, malformed("metadata.content", nil)
		}
		if md.ContentMetadata == nil || md.ContentMetadata.Hierarchy == nil || md.ContentMetadata.Hierarchy.Page == nil {
			return nil, malformed("metadata.content_metadata.hierarchy.page", nil)
		}
		if md.ImageMetadata == nil || len(md.ImageMetadata.ImageLocation) != 4 {
			return nil, malformed("metadata.image_metadata.image_location", nil)
		}
		loc := md.ImageMetadata.ImageLocation
		return Image{
			Content:  *md.Content,
			Page:     *md.ContentMetadata.Hierarchy.Page,
			Location: geom.ImageBox(geom.Rect{X0: loc[0], Y0: loc[1], X1: loc[2], Y1: loc[3]}.Normalize()),
		}, nil
	}

	return nil, malformed("document_type", nil)
}

// DecodeAll decodes elements in order and stops at the first malformed one.
func DecodeAll(raws []RawElement) ([]Element, error) {
	out := make([]Element, 0, len(raws))
	for i, raw := range raws {
		el, err := Decode(raw)
		if err != nil {
			var me *MalformedElementError
			if errors.As(err, &me) {
				me.Index = i
			}
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

// ParseResult decodes a serialized job result. Both a flat element list and
// the list-of-lists shape (one list per submitted document) are accepted;
// for the latter the first document's elements are used.
func ParseResult(data []byte) ([]RawElement, error) {
	var flat []RawElement
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}
	var nested [][]RawElement
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("decode job result: %w", err)
	}
	if len(nested) == 0 {
		return []RawElement{}, nil
	}
	return nested[0], nil
}

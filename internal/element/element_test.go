package element

import (
	"encoding/json"
	"errors"
	"testing"
)

func raw(docType, metadata string) RawElement {
	return RawElement{DocumentType: docType, Metadata: json.RawMessage(metadata)}
}

func TestDecode_Text(t *testing.T) {
	el, err := Decode(raw("text", `{"content":"Revenue increased 12%\n"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	txt, ok := el.(Text)
	if !ok {
		t.Fatalf("expected Text, got %T", el)
	}
	if txt.Content != "Revenue increased 12%\n" {
		t.Errorf("expected verbatim content, got %q", txt.Content)
	}
	if el.Kind() != KindText {
		t.Errorf("expected kind %q, got %q", KindText, el.Kind())
	}
}

func TestDecode_Structured(t *testing.T) {
	el, err := Decode(raw("structured", `{"table_metadata":{"table_content":"| a | b |"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tbl, ok := el.(Table)
	if !ok {
		t.Fatalf("expected Table, got %T", el)
	}
	if tbl.Content != "| a | b |" {
		t.Errorf("expected table content, got %q", tbl.Content)
	}
}

func TestDecode_Image(t *testing.T) {
	el, err := Decode(raw("image", `{
		"content":"aGVsbG8=",
		"content_metadata":{"hierarchy":{"page":2}},
		"image_metadata":{"image_location":[10,20,110,120]}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, ok := el.(Image)
	if !ok {
		t.Fatalf("expected Image, got %T", el)
	}
	if img.Page != 2 {
		t.Errorf("expected page 2, got %d", img.Page)
	}
	if img.Location.X0 != 10 || img.Location.Y0 != 20 || img.Location.X1 != 110 || img.Location.Y1 != 120 {
		t.Errorf("unexpected location %+v", img.Location)
	}
	if img.Content != "aGVsbG8=" {
		t.Errorf("expected base64 payload, got %q", img.Content)
	}
}

func TestDecode_EmptyTextIsValid(t *testing.T) {
	// An empty string is present, not absent.
	if _, err := Decode(raw("text", `{"content":""}`)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		el    RawElement
		field string
	}{
		{"text without content", raw("text", `{}`), "metadata.content"},
		{"text with null content", raw("text", `{"content":null}`), "metadata.content"},
		{"structured without table metadata", raw("structured", `{"content":"x"}`), "metadata.table_metadata.table_content"},
		{"image without page", raw("image", `{"content":"x","image_metadata":{"image_location":[0,0,1,1]}}`), "metadata.content_metadata.hierarchy.page"},
		{"image with short location", raw("image", `{"content":"x","content_metadata":{"hierarchy":{"page":0}},"image_metadata":{"image_location":[0,0,1]}}`), "metadata.image_metadata.image_location"},
		{"image without content", raw("image", `{"content_metadata":{"hierarchy":{"page":0}},"image_metadata":{"image_location":[0,0,1,1]}}`), "metadata.content"},
		{"unknown type", raw("audio", `{"content":"x"}`), "document_type"},
		{"missing metadata", RawElement{DocumentType: "text"}, "metadata"},
		{"mistyped content", raw("text", `{"content":42}`), "metadata"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.el)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformedElement) {
				t.Errorf("expected ErrMalformedElement, got %v", err)
			}
			var me *MalformedElementError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedElementError, got %T", err)
			}
			if me.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, me.Field)
			}
		})
	}
}

func TestDecodeAll_StampsIndex(t *testing.T) {
	raws := []RawElement{
		raw("text", `{"content":"a"}`),
		raw("text", `{"content":"b"}`),
		raw("structured", `{}`),
	}
	_, err := DecodeAll(raws)
	var me *MalformedElementError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MalformedElementError, got %v", err)
	}
	if me.Index != 2 {
		t.Errorf("expected index 2, got %d", me.Index)
	}
}

func TestParseResult_Shapes(t *testing.T) {
	flat := `[{"document_type":"text","metadata":{"content":"A"}}]`
	nested := `[[{"document_type":"text","metadata":{"content":"A"}},{"document_type":"text","metadata":{"content":"B"}}]]`

	got, err := ParseResult([]byte(flat))
	if err != nil {
		t.Fatalf("flat: unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("flat: expected 1 element, got %d", len(got))
	}

	got, err = ParseResult([]byte(nested))
	if err != nil {
		t.Fatalf("nested: unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("nested: expected 2 elements, got %d", len(got))
	}

	if _, err := ParseResult([]byte(`{"not":"a list"}`)); err == nil {
		t.Error("expected error for object result")
	}
}

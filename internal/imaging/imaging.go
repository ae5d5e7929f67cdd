// Package imaging turns base64 image payloads from extraction results into
// fixed-size display images.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultWidth and DefaultHeight are the display size images are scaled to.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Decoded is a display-ready image.
type Decoded struct {
	Image        image.Image
	Format       string
	SourceWidth  int
	SourceHeight int
}

// Decoder scales decoded images to a fixed display size.
type Decoder struct {
	Width  int
	Height int
}

// NewDecoder returns a Decoder for the given size, falling back to the
// defaults for non-positive dimensions.
func NewDecoder(width, height int) *Decoder {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Decoder{Width: width, Height: height}
}

// Decode decodes b64, which may carry a data URI prefix, and scales it.
func (d *Decoder) Decode(b64 string) (*Decoded, error) {
	raw, err := base64.StdEncoding.DecodeString(stripDataURI(b64))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, d.Width, d.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	b := src.Bounds()
	return &Decoded{Image: dst, Format: format, SourceWidth: b.Dx(), SourceHeight: b.Dy()}, nil
}

// DecodeAll decodes every payload in order. The first failure aborts.
func (d *Decoder) DecodeAll(payloads []string) ([]*Decoded, error) {
	out := make([]*Decoded, 0, len(payloads))
	for i, p := range payloads {
		img, err := d.Decode(p)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out = append(out, img)
	}
	return out, nil
}

// Decode uses the default display size.
func Decode(b64 string) (*Decoded, error) {
	return NewDecoder(0, 0).Decode(b64)
}

func stripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ";base64,"); i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}

// PNG encodes the display image.
func (d *Decoded) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, d.Image); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI returns the display image as a base64 PNG data URI.
func (d *Decoded) DataURI() (string, error) {
	data, err := d.PNG()
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

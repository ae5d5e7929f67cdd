// Package document opens source PDFs and exposes their page geometry and
// text layer. A Document must be closed by the operation that opened it.
package document

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgallion1/extractproof/internal/geom"
	pdflib "github.com/ledongthuc/pdf"
)

// ErrUnreadable is wrapped by every failure to open or interpret a document.
var ErrUnreadable = errors.New("document unreadable")

// Letter is used when a page tree carries no MediaBox at all.
var Letter = geom.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}

// Document is an open PDF. Text layers of different pages may be built
// concurrently; the reader only issues positioned reads against the file.
type Document struct {
	path   string
	reader *pdflib.Reader
	boxes  []geom.Rect
	pages  []pageSlot

	mu   sync.Mutex // guards file
	file *os.File
}

// pageSlot holds the lazily built text layer of one page.
type pageSlot struct {
	once  sync.Once
	layer *TextLayer
	err   error
}

// Open parses the PDF at path.
func Open(path string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %s: %v", ErrUnreadable, path, r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	n := reader.NumPage()
	if n <= 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s: no pages", ErrUnreadable, path)
	}

	d := &Document{
		path:   path,
		file:   f,
		reader: reader,
		boxes:  make([]geom.Rect, n),
		pages:  make([]pageSlot, n),
	}
	for i := range n {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			f.Close()
			return nil, fmt.Errorf("%w: %s: page %d missing from page tree", ErrUnreadable, path, i)
		}
		d.boxes[i] = mediaBox(page.V)
	}
	return d, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Path returns the file the document was opened from.
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.boxes) }

// PageSize returns the width and height of page idx (zero-based).
func (d *Document) PageSize(idx int) (float64, float64, error) {
	if idx < 0 || idx >= len(d.boxes) {
		return 0, 0, fmt.Errorf("page %d out of range [0,%d)", idx, len(d.boxes))
	}
	b := d.boxes[idx]
	return b.Width(), b.Height(), nil
}

// MediaBox returns the raw media box of page idx in PDF user space.
func (d *Document) MediaBox(idx int) geom.Rect {
	return d.boxes[idx]
}

// TextLayer returns the text layer of page idx, building it on first use.
// Layers, and failures to build them, are cached for the lifetime of the
// Document. Only callers asking for the same page wait on each other.
func (d *Document) TextLayer(idx int) (*TextLayer, error) {
	if idx < 0 || idx >= len(d.boxes) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", idx, len(d.boxes))
	}

	slot := &d.pages[idx]
	slot.once.Do(func() {
		content, err := d.content(idx)
		if err != nil {
			slot.err = err
			return
		}
		slot.layer = BuildTextLayer(content.Text, d.boxes[idx])
	})
	return slot.layer, slot.err
}

// content interprets the page content stream. The pdf library panics on
// malformed streams, so the panic is turned into ErrUnreadable here.
func (d *Document) content(idx int) (c pdflib.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: page %d: %v", ErrUnreadable, d.path, idx, r)
		}
	}()
	d.mu.Lock()
	closed := d.file == nil
	d.mu.Unlock()
	if closed {
		return c, fmt.Errorf("%w: %s: document closed", ErrUnreadable, d.path)
	}
	return d.reader.Page(idx + 1).Content(), nil
}

// mediaBox reads MediaBox from the page or the nearest ancestor that has one.
func mediaBox(v pdflib.Value) geom.Rect {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdflib.Array && box.Len() == 4 {
			r := geom.Rect{
				X0: box.Index(0).Float64(),
				Y0: box.Index(1).Float64(),
				X1: box.Index(2).Float64(),
				Y1: box.Index(3).Float64(),
			}.Normalize()
			if r.Width() > 0 && r.Height() > 0 {
				return r
			}
		}
		v = v.Key("Parent")
	}
	return Letter
}

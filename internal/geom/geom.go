package geom

import "sort"

// Rect is an axis-aligned rectangle given by two corners.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Normalize returns r with x0<=x1 and y0<=y1.
func (r Rect) Normalize() Rect {
	if r.X0 > r.X1 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y0 > r.Y1 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	return r
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Within reports whether r lies inside [0,w] x [0,h].
func (r Rect) Within(w, h float64) bool {
	return r.X0 >= 0 && r.Y0 >= 0 && r.X1 <= w && r.Y1 <= h
}

// Clip clamps r to [0,w] x [0,h].
func (r Rect) Clip(w, h float64) Rect {
	r = r.Normalize()
	r.X0 = clamp(r.X0, 0, w)
	r.X1 = clamp(r.X1, 0, w)
	r.Y0 = clamp(r.Y0, 0, h)
	r.Y1 = clamp(r.Y1, 0, h)
	return r
}

// Array returns the box as [x0, y0, x1, y1].
func (r Rect) Array() [4]float64 {
	return [4]float64{r.X0, r.Y0, r.X1, r.Y1}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DocBox is a box in document space: page-local, origin at the top-left,
// y growing downward. Text search results live here.
type DocBox Rect

// ImageBox is a box in image-metadata space. Its vertical axis runs opposite
// to page draw operations, so it must go through ToDocument before it is
// composited onto a page.
type ImageBox Rect

// Rect drops the coordinate-space marker.
func (b DocBox) Rect() Rect { return Rect(b) }

// Rect drops the coordinate-space marker.
func (b ImageBox) Rect() Rect { return Rect(b) }

// ToDocument flips b vertically against a page of the given height.
func (b ImageBox) ToDocument(pageHeight float64) DocBox {
	return DocBox(Rect{
		X0: b.X0,
		Y0: pageHeight - b.Y1,
		X1: b.X1,
		Y1: pageHeight - b.Y0,
	}.Normalize())
}

// ToImage is the inverse of ImageBox.ToDocument.
func (b DocBox) ToImage(pageHeight float64) ImageBox {
	return ImageBox(Rect{
		X0: b.X0,
		Y0: pageHeight - b.Y1,
		X1: b.X1,
		Y1: pageHeight - b.Y0,
	}.Normalize())
}

// PageBoxes holds one slot per page of a document. Every slot is non-nil,
// so a page with nothing in it is an empty slice rather than a missing key.
type PageBoxes[B DocBox | ImageBox] [][]B

// NewPageBoxes allocates pageCount empty slots.
func NewPageBoxes[B DocBox | ImageBox](pageCount int) PageBoxes[B] {
	if pageCount < 0 {
		pageCount = 0
	}
	p := make(PageBoxes[B], pageCount)
	for i := range p {
		p[i] = []B{}
	}
	return p
}

// Page returns the boxes for page idx, or nil when idx is out of range.
func (p PageBoxes[B]) Page(idx int) []B {
	if idx < 0 || idx >= len(p) {
		return nil
	}
	return p[idx]
}

// Total returns the number of boxes across all pages.
func (p PageBoxes[B]) Total() int {
	n := 0
	for _, s := range p {
		n += len(s)
	}
	return n
}

// Counts returns the number of boxes on each page.
func (p PageBoxes[B]) Counts() []int {
	out := make([]int, len(p))
	for i, s := range p {
		out[i] = len(s)
	}
	return out
}

// PageHighlights are text boxes per page, in document space.
type PageHighlights = PageBoxes[DocBox]

// PageImageBoxes are image boxes per page, in image-metadata space.
type PageImageBoxes = PageBoxes[ImageBox]

// ImageLocations collects image boxes by page number before the page count
// of the source document is known. Order within a page is insertion order.
type ImageLocations map[int][]ImageBox

// Add appends box to page, creating the page entry on first use.
func (l ImageLocations) Add(page int, box ImageBox) {
	l[page] = append(l[page], box)
}

// Pages returns the page numbers present, ascending.
func (l ImageLocations) Pages() []int {
	pages := make([]int, 0, len(l))
	for p := range l {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Slots moves the locations into fixed per-page slots. Pages outside
// [0, pageCount) cannot be drawn and are returned as dropped.
func (l ImageLocations) Slots(pageCount int) (PageImageBoxes, []int) {
	slots := NewPageBoxes[ImageBox](pageCount)
	var dropped []int
	for _, page := range l.Pages() {
		if page < 0 || page >= pageCount {
			dropped = append(dropped, page)
			continue
		}
		slots[page] = append(slots[page], l[page]...)
	}
	return slots, dropped
}

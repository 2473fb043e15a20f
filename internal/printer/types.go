package printer

import "encoding/json"

// PageLayout is one logical page of the resume: a pair of column section-key
// lists (main column first, sidebar second) consumed by the front end.
type PageLayout [2][]string

// CSSBlock carries user-supplied CSS and whether it should be applied.
type CSSBlock struct {
	Visible bool   `json:"visible"`
	Value   string `json:"value"`
}

// Document is the structured resume payload seeded into the rendering
// session's local storage. Sections are opaque to the pipeline; only the
// layout and css fields are read here.
type Document struct {
	Layout   []PageLayout               `json:"layout"`
	CSS      CSSBlock                   `json:"css"`
	Sections map[string]json.RawMessage `json:"sections,omitempty"`
}

// RenderRequest identifies one resume for the duration of a generation
// attempt. It is never mutated by the pipeline.
type RenderRequest struct {
	OwnerID    uint
	Title      string
	DocumentID string
	Data       Document
}

// PageCount returns the number of logical pages in the layout.
func (r RenderRequest) PageCount() int {
	return len(r.Data.Layout)
}

// PageFormat selects a fixed physical page size for the formatted capture
// branch. The zero value requests continuous capture.
type PageFormat string

const (
	FormatNone   PageFormat = ""
	FormatA4     PageFormat = "a4"
	FormatLetter PageFormat = "letter"
)

// dimensions returns the physical paper size in inches.
func (f PageFormat) dimensions() (width, height float64, ok bool) {
	switch f {
	case FormatA4:
		return 8.27, 11.69, true
	case FormatLetter:
		return 8.5, 11.0, true
	default:
		return 0, 0, false
	}
}

// Valid reports whether f names a supported physical format or is unset.
func (f PageFormat) Valid() bool {
	if f == FormatNone {
		return true
	}
	_, _, ok := f.dimensions()
	return ok
}

// mergeLayoutPages collapses every logical page into a single page by
// column-wise concatenation, order preserved. Used by the formatted branch,
// which renders all content as one continuous page broken up by print CSS.
func mergeLayoutPages(doc Document) Document {
	var merged PageLayout
	for _, page := range doc.Layout {
		merged[0] = append(merged[0], page[0]...)
		merged[1] = append(merged[1], page[1]...)
	}
	doc.Layout = []PageLayout{merged}
	return doc
}

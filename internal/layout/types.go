// Package layout turns raw page layout elements into merged, classified,
// reading-order-sorted segments, and handles deglue splitting and
// two-page-spread detection.
package layout

import (
	"sync/atomic"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
)

// ElementType classifies a logical text block. The set is closed so the
// classifier's majority vote stays exhaustive.
type ElementType string

const (
	TypeHeading   ElementType = "heading"
	TypeParagraph ElementType = "paragraph"
	TypeCaption   ElementType = "caption"
	TypeTable     ElementType = "table"
	TypeFigure    ElementType = "figure"
	TypeOther     ElementType = "other"
)

// IsTranslatable reports whether segments of this type carry text that
// should be sent to the translation collaborator.
func (t ElementType) IsTranslatable() bool {
	switch t {
	case TypeHeading, TypeParagraph, TypeCaption, TypeOther:
		return true
	case TypeTable, TypeFigure:
		return false
	default:
		return false
	}
}

// ParseElementType maps an upstream layout-source label onto the closed
// enum. Unknown labels collapse to TypeOther; an empty label means the
// source supplied no hint and stays empty.
func ParseElementType(label string) ElementType {
	switch label {
	case "":
		return ""
	case "Title", "Section header", "section_header", "title", "heading", "Page header", "page_header":
		return TypeHeading
	case "Text", "text", "paragraph", "List item", "list_item":
		return TypeParagraph
	case "Caption", "caption", "Footnote", "footnote":
		return TypeCaption
	case "Table", "table":
		return TypeTable
	case "Picture", "picture", "figure", "Formula", "formula":
		return TypeFigure
	default:
		return TypeOther
	}
}

// RawElement is one unit emitted by the external layout source.
// Immutable; consumed by the refinement engine.
type RawElement struct {
	ID         int         `json:"id"`
	PageIndex  int         `json:"page_index"`
	Box        geom.Box    `json:"box"`
	Text       string      `json:"text"`
	TypeHint   ElementType `json:"type_hint,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
}

// SourceRef records one constituent element of a segment: the provenance
// id plus the geometry and text needed to re-partition the segment
// during deglue.
type SourceRef struct {
	ElementID int      `json:"element_id"`
	Box       geom.Box `json:"box"`
	Text      string   `json:"text"`
}

// Segment is the canonical unit downstream consumers operate on.
// Box is always the minimal enclosing rectangle of all Sources.
type Segment struct {
	ID           int64       `json:"id"`
	PageIndex    int         `json:"page_index"`
	Box          geom.Box    `json:"box"`
	Text         string      `json:"text"`
	Type         ElementType `json:"type"`
	ReadingOrder int         `json:"reading_order"`
	Sources      []SourceRef `json:"sources"`
}

// SourceIDs returns the provenance element ids in source order.
func (s *Segment) SourceIDs() []int {
	ids := make([]int, len(s.Sources))
	for i, src := range s.Sources {
		ids[i] = src.ElementID
	}
	return ids
}

// PageGeometry carries per-page physical metadata. SplitPoint is only
// meaningful when IsSpread is true.
type PageGeometry struct {
	PageIndex  int     `json:"page_index"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	IsSpread   bool    `json:"is_spread"`
	SplitPoint float64 `json:"split_point,omitempty"`
}

// Ratio returns width/height, or 0 for a degenerate page.
func (p PageGeometry) Ratio() float64 {
	if p.Height <= 0 {
		return 0
	}
	return p.Width / p.Height
}

// Warning is a non-fatal data-quality report. A single element's or
// segment's failure never aborts its page.
type Warning struct {
	PageIndex int    `json:"page_index"`
	Stage     string `json:"stage"`
	ElementID int    `json:"element_id,omitempty"`
	SegmentID int64  `json:"segment_id,omitempty"`
	Message   string `json:"message"`
}

// IDAllocator hands out segment ids unique within a document run.
// Safe for concurrent page workers.
type IDAllocator struct {
	next atomic.Int64
}

// Next returns the next id, starting at 1.
func (a *IDAllocator) Next() int64 {
	return a.next.Add(1)
}

package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
)

func newTestRefiner() *Refiner {
	return NewRefiner(RefineConfig{}, &IDAllocator{})
}

func TestRefineTwoColumnPage(t *testing.T) {
	// Two columns of two stacked lines each. Each column must collapse
	// into one segment, ordered left column first.
	elems := []RawElement{
		{ID: 1, Box: geom.Box{X0: 50, Y0: 100, X1: 280, Y1: 112}, Text: "left line one", TypeHint: TypeParagraph},
		{ID: 2, Box: geom.Box{X0: 50, Y0: 116, X1: 280, Y1: 128}, Text: "left line two", TypeHint: TypeParagraph},
		{ID: 3, Box: geom.Box{X0: 320, Y0: 100, X1: 550, Y1: 112}, Text: "right line one", TypeHint: TypeParagraph},
		{ID: 4, Box: geom.Box{X0: 320, Y0: 116, X1: 550, Y1: 128}, Text: "right line two", TypeHint: TypeParagraph},
	}

	segs, warnings := newTestRefiner().Refine(0, elems)
	require.Empty(t, warnings)
	require.Len(t, segs, 2)

	assert.Equal(t, 0, segs[0].ReadingOrder)
	assert.Equal(t, 1, segs[1].ReadingOrder)
	assert.Equal(t, []int{1, 2}, segs[0].SourceIDs())
	assert.Equal(t, []int{3, 4}, segs[1].SourceIDs())
	assert.Equal(t, "left line one\nleft line two", segs[0].Text)
	assert.Equal(t, TypeParagraph, segs[0].Type)
	assert.Equal(t, TypeParagraph, segs[1].Type)
}

func TestRefineSegmentBoxIsSourceUnion(t *testing.T) {
	elems := []RawElement{
		{ID: 1, Box: geom.Box{X0: 10, Y0: 10, X1: 200, Y1: 22}, Text: "a"},
		{ID: 2, Box: geom.Box{X0: 15, Y0: 26, X1: 180, Y1: 38}, Text: "b"},
		{ID: 3, Box: geom.Box{X0: 12, Y0: 42, X1: 210, Y1: 54}, Text: "c"},
	}

	segs, _ := newTestRefiner().Refine(0, elems)
	require.Len(t, segs, 1)

	want := elems[0].Box
	for _, e := range elems[1:] {
		want = geom.Union(want, e.Box)
	}
	assert.Equal(t, want, segs[0].Box)
}

func TestRefineIdempotent(t *testing.T) {
	elems := []RawElement{
		{ID: 1, Box: geom.Box{X0: 50, Y0: 100, X1: 280, Y1: 112}, Text: "one", TypeHint: TypeParagraph},
		{ID: 2, Box: geom.Box{X0: 50, Y0: 116, X1: 280, Y1: 128}, Text: "two", TypeHint: TypeParagraph},
		{ID: 3, Box: geom.Box{X0: 50, Y0: 400, X1: 280, Y1: 412}, Text: "far below", TypeHint: TypeParagraph},
		{ID: 4, Box: geom.Box{X0: 320, Y0: 100, X1: 550, Y1: 140}, Text: "beside", TypeHint: TypeFigure},
	}

	r := newTestRefiner()
	first, _ := r.Refine(0, elems)
	second, _ := r.Refine(0, SegmentsToElements(first))

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Box, second[i].Box)
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].ReadingOrder, second[i].ReadingOrder)
	}
}

func TestRefineDropsMalformedBoxes(t *testing.T) {
	elems := []RawElement{
		{ID: 1, Box: geom.Box{X0: 0, Y0: 0, X1: 100, Y1: 20}, Text: "good"},
		{ID: 2, Box: geom.Box{X0: 100, Y0: 0, X1: 0, Y1: 20}, Text: "inverted"},
	}

	segs, warnings := newTestRefiner().Refine(3, elems)
	require.Len(t, segs, 1)
	assert.Equal(t, []int{1}, segs[0].SourceIDs())

	require.Len(t, warnings, 1)
	assert.Equal(t, 3, warnings[0].PageIndex)
	assert.Equal(t, "refine", warnings[0].Stage)
	assert.Equal(t, 2, warnings[0].ElementID)
}

func TestRefineEmptyPage(t *testing.T) {
	segs, warnings := newTestRefiner().Refine(0, nil)
	assert.Empty(t, segs)
	assert.Empty(t, warnings)
}

func TestVoteType(t *testing.T) {
	tests := []struct {
		name  string
		hints []ElementType
		want  ElementType
	}{
		{name: "no hints", hints: nil, want: TypeOther},
		{name: "unanimous", hints: []ElementType{TypeCaption, TypeCaption}, want: TypeCaption},
		{name: "majority", hints: []ElementType{TypeParagraph, TypeParagraph, TypeHeading}, want: TypeParagraph},
		{name: "tie", hints: []ElementType{TypeParagraph, TypeHeading}, want: TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, voteType(tt.hints))
		})
	}
}

func TestClassifyHeadingOutlier(t *testing.T) {
	// A short, wide, untyped segment above several taller body blocks.
	elems := []RawElement{
		{ID: 1, Box: geom.Box{X0: 50, Y0: 40, X1: 400, Y1: 55}, Text: "Chapter One"},
		{ID: 2, Box: geom.Box{X0: 50, Y0: 120, X1: 400, Y1: 150}, Text: "body", TypeHint: TypeParagraph},
		{ID: 3, Box: geom.Box{X0: 50, Y0: 200, X1: 400, Y1: 230}, Text: "body", TypeHint: TypeParagraph},
		{ID: 4, Box: geom.Box{X0: 50, Y0: 280, X1: 400, Y1: 310}, Text: "body", TypeHint: TypeParagraph},
	}

	segs, _ := newTestRefiner().Refine(0, elems)

	var heading *Segment
	for i := range segs {
		if segs[i].SourceIDs()[0] == 1 {
			heading = &segs[i]
		}
	}
	require.NotNil(t, heading)
	assert.Equal(t, TypeHeading, heading.Type)
}

func TestAssignReadingOrderContiguous(t *testing.T) {
	segs := []Segment{
		{ID: 1, Box: geom.Box{X0: 320, Y0: 100, X1: 550, Y1: 140}},
		{ID: 2, Box: geom.Box{X0: 50, Y0: 300, X1: 280, Y1: 340}},
		{ID: 3, Box: geom.Box{X0: 50, Y0: 100, X1: 280, Y1: 140}},
	}

	out := AssignReadingOrder(segs)
	require.Len(t, out, 3)
	for i, s := range out {
		assert.Equal(t, i, s.ReadingOrder)
	}
	// Left column top-to-bottom, then right column.
	assert.Equal(t, int64(3), out[0].ID)
	assert.Equal(t, int64(2), out[1].ID)
	assert.Equal(t, int64(1), out[2].ID)
}

func TestParseElementType(t *testing.T) {
	assert.Equal(t, TypeHeading, ParseElementType("Section header"))
	assert.Equal(t, TypeParagraph, ParseElementType("Text"))
	assert.Equal(t, TypeFigure, ParseElementType("Formula"))
	assert.Equal(t, TypeOther, ParseElementType("Weird label"))
	assert.Equal(t, ElementType(""), ParseElementType(""))
}

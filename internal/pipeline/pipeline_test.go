package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
)

func portraitPage(index int, texts ...string) PageInput {
	in := PageInput{
		Geometry: layout.PageGeometry{PageIndex: index, Width: 750, Height: 1000},
	}
	y := 100.0
	for i, text := range texts {
		in.Elements = append(in.Elements, layout.RawElement{
			ID:        index*100 + i + 1,
			PageIndex: index,
			Box:       geom.Box{X0: 50, Y0: y, X1: 700, Y1: y + 20},
			Text:      text,
			TypeHint:  layout.TypeParagraph,
		})
		y += 120
	}
	return in
}

func TestProcessPlainDocument(t *testing.T) {
	inputs := []PageInput{
		portraitPage(0, "page zero text"),
		portraitPage(1, "page one text"),
		portraitPage(2, "page two text"),
	}

	result, err := Process(context.Background(), inputs, Options{})
	require.NoError(t, err)
	require.Len(t, result.Pages, 3)

	for i, p := range result.Pages {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, i, p.PhysicalIndex)
		assert.False(t, p.RightHalf)
		require.Len(t, p.Segments, 1)
		assert.Equal(t, i, p.Segments[0].PageIndex)
		assert.Equal(t, 0, p.Segments[0].ReadingOrder)
	}
}

func TestProcessSpreadBecomesTwoPages(t *testing.T) {
	spread := PageInput{
		Geometry: layout.PageGeometry{PageIndex: 1, Width: 2000, Height: 1000},
		Elements: []layout.RawElement{
			{ID: 1, Box: geom.Box{X0: 100, Y0: 100, X1: 900, Y1: 130}, Text: "left side", TypeHint: layout.TypeParagraph},
			{ID: 2, Box: geom.Box{X0: 1100, Y0: 100, X1: 1900, Y1: 130}, Text: "right side", TypeHint: layout.TypeParagraph},
		},
	}
	inputs := []PageInput{
		portraitPage(0, "first"),
		spread,
		portraitPage(2, "last"),
	}

	result, err := Process(context.Background(), inputs, Options{
		Spread: layout.SpreadConfig{Enabled: true, ForceHalf: true},
	})
	require.NoError(t, err)
	require.Len(t, result.Pages, 4)

	// Logical order: page 0, spread-left, spread-right, page 2.
	assert.Equal(t, []int{0, 1, 1, 2}, []int{
		result.Pages[0].PhysicalIndex,
		result.Pages[1].PhysicalIndex,
		result.Pages[2].PhysicalIndex,
		result.Pages[3].PhysicalIndex,
	})
	assert.False(t, result.Pages[1].RightHalf)
	assert.True(t, result.Pages[2].RightHalf)

	rightPage := result.Pages[2]
	assert.True(t, rightPage.Geometry.IsSpread)
	require.Len(t, rightPage.Segments, 1)
	// Remapped into the right page's own coordinates.
	assert.InDelta(t, 100, rightPage.Segments[0].Box.X0, 1e-9)
	assert.Equal(t, 2, rightPage.Segments[0].PageIndex)

	// Logical indices are contiguous.
	for i, p := range result.Pages {
		assert.Equal(t, i, p.Index)
	}
}

func TestProcessSpreadExceptionSkipsSplit(t *testing.T) {
	spread := PageInput{
		Geometry: layout.PageGeometry{PageIndex: 1, Width: 2000, Height: 1000},
		Elements: []layout.RawElement{
			{ID: 1, Box: geom.Box{X0: 100, Y0: 100, X1: 1900, Y1: 130}, Text: "wide", TypeHint: layout.TypeParagraph},
		},
	}
	inputs := []PageInput{portraitPage(0, "first"), spread}

	result, err := Process(context.Background(), inputs, Options{
		Spread: layout.SpreadConfig{
			Enabled:    true,
			Exceptions: map[int]bool{2: true}, // 1-based: physical page 2
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Pages, 2)
	assert.False(t, result.Pages[1].Geometry.IsSpread)
}

func TestProcessPageFilter(t *testing.T) {
	inputs := []PageInput{
		portraitPage(0, "zero"),
		portraitPage(1, "one"),
		portraitPage(2, "two"),
	}

	result, err := Process(context.Background(), inputs, Options{
		Pages: map[int]bool{1: true, 3: true}, // 1-based
	})
	require.NoError(t, err)
	require.Len(t, result.Pages, 2)
	assert.Equal(t, 0, result.Pages[0].PhysicalIndex)
	assert.Equal(t, 2, result.Pages[1].PhysicalIndex)
	// Logical indices stay contiguous after filtering.
	assert.Equal(t, 0, result.Pages[0].Index)
	assert.Equal(t, 1, result.Pages[1].Index)
}

func TestProcessEmptyPageIsValid(t *testing.T) {
	inputs := []PageInput{
		portraitPage(0, "has text"),
		{Geometry: layout.PageGeometry{PageIndex: 1, Width: 750, Height: 1000}},
	}

	result, err := Process(context.Background(), inputs, Options{})
	require.NoError(t, err)
	require.Len(t, result.Pages, 2)
	assert.Empty(t, result.Pages[1].Segments)
}

func TestProcessCollectsWarnings(t *testing.T) {
	bad := portraitPage(0, "good text")
	bad.Elements = append(bad.Elements, layout.RawElement{
		ID:  99,
		Box: geom.Box{X0: 100, Y0: 0, X1: 0, Y1: 20}, // inverted
	})

	result, err := Process(context.Background(), bad.asDoc(), Options{})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "refine", result.Warnings[0].Stage)
	assert.Equal(t, 99, result.Warnings[0].ElementID)
}

func (p PageInput) asDoc() []PageInput { return []PageInput{p} }

func TestProcessUniqueSegmentIDs(t *testing.T) {
	inputs := []PageInput{
		portraitPage(0, "a", "b", "c"),
		portraitPage(1, "d", "e"),
		portraitPage(2, "f"),
	}

	result, err := Process(context.Background(), inputs, Options{Concurrency: 3})
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for _, p := range result.Pages {
		for _, s := range p.Segments {
			assert.False(t, seen[s.ID], "duplicate segment id %d", s.ID)
			seen[s.ID] = true
		}
	}
	assert.Len(t, seen, 6)
}

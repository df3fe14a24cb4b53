package extract

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
)

func TestRowToHint(t *testing.T) {
	row := &pdf.Row{
		Position: 700,
		Content: pdf.TextHorizontal{
			{S: "Hello", X: 50, Y: 700, W: 40, FontSize: 12},
			{S: " world", X: 90, Y: 700, W: 50, FontSize: 12},
		},
	}

	hint, ok := rowToHint(row, 792)
	require.True(t, ok)
	assert.Equal(t, "Hello world", hint.Text)
	// Baseline y=700 on a 792-high page flips to a 12-unit row at the
	// top-left origin.
	assert.InDelta(t, 50, hint.Box.X0, 1e-9)
	assert.InDelta(t, 140, hint.Box.X1, 1e-9)
	assert.InDelta(t, 80, hint.Box.Y0, 1e-9)
	assert.InDelta(t, 92, hint.Box.Y1, 1e-9)
}

func TestRowToHintSkipsGarbage(t *testing.T) {
	row := &pdf.Row{
		Content: pdf.TextHorizontal{
			{S: "...---...", X: 10, Y: 100, W: 30, FontSize: 10},
		},
	}
	_, ok := rowToHint(row, 792)
	assert.False(t, ok)
}

func TestRowToHintEmptyRow(t *testing.T) {
	_, ok := rowToHint(&pdf.Row{}, 792)
	assert.False(t, ok)
}

func TestHintsWithin(t *testing.T) {
	hints := []layout.RunHint{
		{Box: geom.Box{X0: 10, Y0: 10, X1: 90, Y1: 22}, Text: "inside"},
		{Box: geom.Box{X0: 10, Y0: 200, X1: 90, Y1: 212}, Text: "below"},
		{Box: geom.Box{X0: 95, Y0: 10, X1: 180, Y1: 22}, Text: "straddling edge"},
	}
	box := geom.Box{X0: 0, Y0: 0, X1: 100, Y1: 100}

	got := HintsWithin(hints, box)
	require.Len(t, got, 1)
	assert.Equal(t, "inside", got[0].Text)
}

func TestHasReadableText(t *testing.T) {
	assert.True(t, hasReadableText("abc"))
	assert.True(t, hasReadableText("стр 5"))
	assert.False(t, hasReadableText("!@# --- ..."))
	assert.False(t, hasReadableText(""))
}

package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
)

func TestDecode(t *testing.T) {
	p := newPostProcessor(0.5, 0.45)

	output := []float32{
		// x0, y0, x1, y1, conf, class
		10, 20, 110, 50, 0.9, 1, // text, kept
		10, 20, 110, 50, 0.3, 1, // below threshold
		200, 200, 100, 250, 0.8, 0, // inverted x, dropped
	}

	dets := p.decode(output, 2, 1)
	require.Len(t, dets, 1)
	assert.Equal(t, geom.Box{X0: 20, Y0: 20, X1: 220, Y1: 50}, dets[0].box)
	assert.Equal(t, 1, dets[0].classID)
	assert.InDelta(t, 0.9, dets[0].confidence, 1e-6)
}

func TestSuppressKeepsHighestConfidence(t *testing.T) {
	p := newPostProcessor(0.1, 0.45)

	dets := []detection{
		{box: geom.Box{X0: 0, Y0: 0, X1: 100, Y1: 100}, classID: 1, confidence: 0.7},
		{box: geom.Box{X0: 5, Y0: 5, X1: 105, Y1: 105}, classID: 1, confidence: 0.9},
		{box: geom.Box{X0: 300, Y0: 300, X1: 400, Y1: 400}, classID: 1, confidence: 0.6},
	}

	kept := p.suppress(dets)
	require.Len(t, kept, 2)
	assert.InDelta(t, 0.9, kept[0].confidence, 1e-9)
	assert.InDelta(t, 0.6, kept[1].confidence, 1e-9)
}

func TestSuppressIsPerClass(t *testing.T) {
	p := newPostProcessor(0.1, 0.45)

	// Same box, different classes: both survive.
	dets := []detection{
		{box: geom.Box{X0: 0, Y0: 0, X1: 100, Y1: 100}, classID: 1, confidence: 0.9},
		{box: geom.Box{X0: 0, Y0: 0, X1: 100, Y1: 100}, classID: 5, confidence: 0.8},
	}

	kept := p.suppress(dets)
	assert.Len(t, kept, 2)
}

func TestIoU(t *testing.T) {
	a := geom.Box{X0: 0, Y0: 0, X1: 10, Y1: 10}
	assert.InDelta(t, 1.0, iou(a, a), 1e-9)

	b := geom.Box{X0: 5, Y0: 0, X1: 15, Y1: 10}
	// intersection 50, union 150.
	assert.InDelta(t, 1.0/3.0, iou(a, b), 1e-9)

	c := geom.Box{X0: 20, Y0: 20, X1: 30, Y1: 30}
	assert.Zero(t, iou(a, c))
}

func TestToElements(t *testing.T) {
	dets := []detection{
		{box: geom.Box{X0: 0, Y0: 0, X1: 100, Y1: 20}, classID: 0, confidence: 0.95},
		{box: geom.Box{X0: 0, Y0: 30, X1: 100, Y1: 90}, classID: 1, confidence: 0.9},
		{box: geom.Box{X0: 0, Y0: 100, X1: 100, Y1: 160}, classID: 5, confidence: 0.85},
		{box: geom.Box{X0: 0, Y0: 170, X1: 100, Y1: 180}, classID: 99, confidence: 0.8},
	}

	elems := toElements(dets, 3, 10)
	require.Len(t, elems, 4)
	assert.Equal(t, 10, elems[0].ID)
	assert.Equal(t, 13, elems[3].ID)
	assert.Equal(t, 3, elems[0].PageIndex)
	assert.Equal(t, layout.TypeHeading, elems[0].TypeHint)
	assert.Equal(t, layout.TypeParagraph, elems[1].TypeHint)
	assert.Equal(t, layout.TypeTable, elems[2].TypeHint)
	assert.Equal(t, layout.ElementType(""), elems[3].TypeHint)
}

func TestPreprocessorShape(t *testing.T) {
	p := newPreprocessor(32)

	img := testImage(64, 48)
	data, shape := p.tensor(img)
	assert.Equal(t, []int64{1, 3, 32, 32}, shape)
	assert.Len(t, data, 3*32*32)
}

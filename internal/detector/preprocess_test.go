package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func TestResizeNearest(t *testing.T) {
	img := testImage(100, 50)
	resized := resizeNearest(img, 10, 10)
	b := resized.Bounds()
	assert.Equal(t, 10, b.Dx())
	assert.Equal(t, 10, b.Dy())
}

func TestTensorNormalization(t *testing.T) {
	p := newPreprocessor(4)

	// Uniform mid-gray image.
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}

	data, _ := p.tensor(img)
	gray := float32(128) / 255.0
	wantR := (gray - p.mean[0]) / p.std[0]
	wantG := (gray - p.mean[1]) / p.std[1]
	wantB := (gray - p.mean[2]) / p.std[2]

	assert.InDelta(t, wantR, data[0], 1e-5)
	assert.InDelta(t, wantG, data[16], 1e-5)
	assert.InDelta(t, wantB, data[32], 1e-5)
}

package detector

import (
	"image"
)

// preprocessor converts a rendered page image into the model input
// tensor: resized square, normalized, CHW float32.
type preprocessor struct {
	targetSize int
	mean       [3]float32
	std        [3]float32
}

func newPreprocessor(targetSize int) *preprocessor {
	return &preprocessor{
		targetSize: targetSize,
		// ImageNet statistics.
		mean: [3]float32{0.485, 0.456, 0.406},
		std:  [3]float32{0.229, 0.224, 0.225},
	}
}

// tensor returns the CHW input data and its shape [1, 3, S, S].
func (p *preprocessor) tensor(img image.Image) ([]float32, []int64) {
	resized := resizeNearest(img, p.targetSize, p.targetSize)

	size := p.targetSize
	data := make([]float32, 3*size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			idx := y*size + x
			data[idx] = (float32(r>>8)/255.0 - p.mean[0]) / p.std[0]
			data[size*size+idx] = (float32(g>>8)/255.0 - p.mean[1]) / p.std[1]
			data[2*size*size+idx] = (float32(b>>8)/255.0 - p.mean[2]) / p.std[2]
		}
	}
	return data, []int64{1, 3, int64(size), int64(size)}
}

func resizeNearest(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			srcX := x * srcW / width
			srcY := y * srcH / height
			dst.Set(x, y, img.At(srcX+bounds.Min.X, srcY+bounds.Min.Y))
		}
	}
	return dst
}

package encoder

import (
	"fmt"
	"image"
	"image/color"
)

// NewTensor converts a size x size image into a row-major, channel-interleaved
// RGB float tensor where every channel byte b becomes (b - mean) / std.
// Values are not clamped.
func NewTensor(img image.Image, size int, mean, std float32) ([]float32, error) {
	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrInputSize, b.Dx(), b.Dy(), size, size)
	}

	tensor := make([]float32, 0, size*size*3)

	if rgba, ok := img.(*image.RGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				i := rgba.PixOffset(x, y)
				tensor = append(tensor,
					(float32(rgba.Pix[i])-mean)/std,
					(float32(rgba.Pix[i+1])-mean)/std,
					(float32(rgba.Pix[i+2])-mean)/std,
				)
			}
		}
		return tensor, nil
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			tensor = append(tensor,
				(float32(c.R)-mean)/std,
				(float32(c.G)-mean)/std,
				(float32(c.B)-mean)/std,
			)
		}
	}
	return tensor, nil
}

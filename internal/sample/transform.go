package sample

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// toRGBA returns img as an *image.RGBA with its origin at (0, 0).
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// normalizeDegrees maps any angle into [0, 360).
func normalizeDegrees(degrees int) int {
	d := degrees % 360
	if d < 0 {
		d += 360
	}
	return d
}

// Rotate turns img clockwise by degrees. Quarter turns are exact pixel
// remaps; other angles are resampled bilinearly onto the rotated bounding
// canvas, leaving the uncovered corners transparent.
// The result never aliases img.
func Rotate(img image.Image, degrees int) *image.RGBA {
	src := toRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	switch normalizeDegrees(degrees) {
	case 0:
		dst := image.NewRGBA(src.Bounds())
		copy(dst.Pix, src.Pix)
		return dst
	case 90:
		return remap(src, h, w, func(x, y int) (int, int) { return y, h - 1 - x })
	case 180:
		return remap(src, w, h, func(x, y int) (int, int) { return w - 1 - x, h - 1 - y })
	case 270:
		return remap(src, h, w, func(x, y int) (int, int) { return w - 1 - y, x })
	}

	return rotateArbitrary(src, float64(normalizeDegrees(degrees)))
}

// remap builds a dw x dh image where each destination pixel (x, y) is read
// from source position from(x, y).
func remap(src *image.RGBA, dw, dh int, from func(x, y int) (int, int)) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := range dh {
		for x := range dw {
			sx, sy := from(x, y)
			si := src.PixOffset(sx, sy)
			di := dst.PixOffset(x, y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

func rotateArbitrary(src *image.RGBA, degrees float64) *image.RGBA {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	w, h := float64(src.Bounds().Dx()), float64(src.Bounds().Dy())

	dw := int(math.Ceil(math.Abs(w*cos) + math.Abs(h*sin)))
	dh := int(math.Ceil(math.Abs(w*sin) + math.Abs(h*cos)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	// Rotate about the source centre, then move onto the destination centre.
	csx, csy := w/2, h/2
	cdx, cdy := float64(dw)/2, float64(dh)/2
	s2d := f64.Aff3{
		cos, -sin, cdx - cos*csx + sin*csy,
		sin, cos, cdy - sin*csx - cos*csy,
	}
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Over, nil)
	return dst
}

// Mirror flips img around its vertical axis.
func Mirror(img image.Image) *image.RGBA {
	src := toRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	return remap(src, w, h, func(x, y int) (int, int) { return w - 1 - x, y })
}

// Crop cuts box out of img onto a canvas of exactly box.Width x box.Height.
// Parts of the box outside img stay white.
func Crop(img image.Image, box Box) (*image.RGBA, error) {
	if !box.Valid() {
		return nil, invalidBox(box)
	}

	dst := image.NewRGBA(image.Rect(0, 0, box.Width, box.Height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	sp := img.Bounds().Min.Add(image.Pt(box.Left, box.Top))
	draw.Draw(dst, dst.Bounds(), img, sp, draw.Over)
	return dst, nil
}

// Resize scales img to width x height with bilinear filtering.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

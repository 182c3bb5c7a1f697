package sample

import (
	"image"
	"image/color"
	"math/bits"
)

// DifferenceHash computes a 64-bit difference hash of img. Frames that look
// alike have hashes a small Hamming distance apart.
func DifferenceHash(img image.Image) uint64 {
	// 9 columns give 8 horizontal differences per row
	small := Resize(img, 9, 8)

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if luma(small.RGBAAt(x, y)) > luma(small.RGBAAt(x+1, y)) {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

func luma(c color.RGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// HammingDistance counts the differing bits of two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// DuplicateFilter drops frames that are near-identical to the last kept one.
type DuplicateFilter struct {
	threshold int
	last      uint64
	seen      bool
}

// NewDuplicateFilter keeps frames whose hash differs from the previous kept
// frame by more than threshold bits. A negative threshold keeps every frame.
func NewDuplicateFilter(threshold int) *DuplicateFilter {
	return &DuplicateFilter{threshold: threshold}
}

// Keep reports whether img differs enough from the last kept frame.
func (f *DuplicateFilter) Keep(img image.Image) bool {
	if f.threshold < 0 {
		return true
	}
	h := DifferenceHash(img)
	if f.seen && HammingDistance(h, f.last) <= f.threshold {
		return false
	}
	f.last, f.seen = h, true
	return true
}

package sample

import (
	"image"
	"image/color"
	"testing"
)

func gradient(w, h int, reverse bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8(x * 255 / (w - 1))
			if reverse {
				v = 255 - v
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		a, b uint64
		want int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0xFF, 0x00, 8},
		{^uint64(0), 0, 64},
	}
	for _, tt := range tests {
		if got := HammingDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("HammingDistance(%x, %x) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDifferenceHash(t *testing.T) {
	left := gradient(64, 48, false)
	right := gradient(64, 48, true)

	if DifferenceHash(left) != DifferenceHash(gradient(64, 48, false)) {
		t.Error("expected identical images to hash identically")
	}
	// Brightness falls left to right in the reversed gradient: every bit set
	if got := DifferenceHash(right); got != ^uint64(0) {
		t.Errorf("expected all bits set for a falling gradient, got %016x", got)
	}
	if d := HammingDistance(DifferenceHash(left), DifferenceHash(right)); d < 32 {
		t.Errorf("expected opposite gradients to differ widely, got distance %d", d)
	}
}

func TestDuplicateFilter(t *testing.T) {
	a := gradient(32, 32, false)
	b := gradient(32, 32, true)

	f := NewDuplicateFilter(4)
	got := []bool{f.Keep(a), f.Keep(a), f.Keep(b), f.Keep(b), f.Keep(a)}
	want := []bool{true, false, true, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d: Keep = %v, want %v", i, got[i], want[i])
		}
	}

	all := NewDuplicateFilter(-1)
	if !all.Keep(a) || !all.Keep(a) {
		t.Error("negative threshold must keep every frame")
	}
}

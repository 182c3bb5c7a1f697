package facematch

import (
	"math"
	"sort"
)

// BoundingBox is a face rectangle in pixel coordinates of the (rotated) frame.
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the box has a positive area.
func (b BoundingBox) Valid() bool {
	return b.Width > 0 && b.Height > 0
}

// Corners returns the box as [x1, y1, x2, y2].
func (b BoundingBox) Corners() []float64 {
	return []float64{
		float64(b.Left),
		float64(b.Top),
		float64(b.Left + b.Width),
		float64(b.Top + b.Height),
	}
}

// BoxFromCorners converts a pixel bbox [x1, y1, x2, y2] into a BoundingBox.
// Corners are rounded to the nearest pixel. Returns false for malformed input.
func BoxFromCorners(bbox []float64) (BoundingBox, bool) {
	if len(bbox) != 4 {
		return BoundingBox{}, false
	}
	x1 := int(math.Round(bbox[0]))
	y1 := int(math.Round(bbox[1]))
	x2 := int(math.Round(bbox[2]))
	y2 := int(math.Round(bbox[3]))
	return BoundingBox{Left: x1, Top: y1, Width: x2 - x1, Height: y2 - y1}, true
}

// ComputeIoU calculates Intersection over Union between two bounding boxes.
// bbox1 and bbox2 are [x1, y1, x2, y2] in the same coordinate system.
func ComputeIoU(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := (x2 - x1) * (y2 - y1)

	area1 := (bbox1[2] - bbox1[0]) * (bbox1[3] - bbox1[1])
	area2 := (bbox2[2] - bbox2[0]) * (bbox2[3] - bbox2[1])
	union := area1 + area2 - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// ScoredBox is a detector box with its confidence.
type ScoredBox struct {
	Box   BoundingBox
	Score float64
}

// SuppressOverlaps drops boxes that overlap a higher scored box by at least
// threshold IoU. Detectors occasionally report one face twice, which would
// otherwise be classified as multiple subjects.
// The result keeps the input order of the surviving boxes.
func SuppressOverlaps(boxes []ScoredBox, threshold float64) []BoundingBox {
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return boxes[order[i]].Score > boxes[order[j]].Score
	})

	suppressed := make([]bool, len(boxes))
	for oi, i := range order {
		if suppressed[i] {
			continue
		}
		for _, j := range order[oi+1:] {
			if suppressed[j] {
				continue
			}
			if ComputeIoU(boxes[i].Box.Corners(), boxes[j].Box.Corners()) >= threshold {
				suppressed[j] = true
			}
		}
	}

	result := make([]BoundingBox, 0, len(boxes))
	for i, b := range boxes {
		if !suppressed[i] {
			result = append(result, b.Box)
		}
	}
	return result
}

package detection

import (
	"math"
	"sort"
)

// IoU is the intersection over union of two boxes
func IoU(a, b Box) float64 {
	ax0, ay0 := a.CenterX-a.Width/2, a.CenterY-a.Height/2
	ax1, ay1 := a.CenterX+a.Width/2, a.CenterY+a.Height/2
	bx0, by0 := b.CenterX-b.Width/2, b.CenterY-b.Height/2
	bx1, by1 := b.CenterX+b.Width/2, b.CenterY+b.Height/2

	iw := math.Min(ax1, bx1) - math.Max(ax0, bx0)
	ih := math.Min(ay1, by1) - math.Max(ay0, by0)
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// NMS performs class-wise non-maximum suppression. The result is ordered by
// descending confidence.
func NMS(dets []Detection, iouThreshold float64) []Detection {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].Class != sorted[i].Class {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

package onnx

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nam-ha/human-detection-app/internal/detection"
)

// padGray matches the letterbox fill used when the model was trained
var padGray = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// letterboxInfo maps model-space coordinates back onto the source image
type letterboxInfo struct {
	scale  float64
	padX   float64
	padY   float64
	width  int
	height int
}

// letterbox scales img to fit a size×size square, keeping aspect ratio, and
// centers it on a gray canvas
func letterbox(img image.Image, size int) (*image.NRGBA, letterboxInfo) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	resized := imaging.Resize(img, newW, newH, imaging.Linear)
	padX := (size - newW) / 2
	padY := (size - newH) / 2

	canvas := imaging.New(size, size, padGray)
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	return canvas, letterboxInfo{
		scale:  scale,
		padX:   float64(padX),
		padY:   float64(padY),
		width:  w,
		height: h,
	}
}

// fillCHW writes img into dst as planar RGB scaled to [0,1]
func fillCHW(img *image.NRGBA, dst []float32) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	plane := width * height

	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			px := row[x*4:]
			idx := y*width + x
			dst[idx] = float32(px[0]) / 255.0
			dst[plane+idx] = float32(px[1]) / 255.0
			dst[2*plane+idx] = float32(px[2]) / 255.0
		}
	}
}

// maxDetections caps the number of detections kept after NMS
const maxDetections = 300

// limit keeps the n most confident detections of an NMS result, which is
// already sorted by descending confidence
func limit(dets []detection.Detection, n int) []detection.Detection {
	if len(dets) > n {
		return dets[:n]
	}
	return dets
}

// decode turns a [channels, anchors] YOLOv8 output into detections. Rows
// 0-3 are cx, cy, w, h in model space; the remaining rows are class scores.
func decode(out []float32, channels, anchors int, threshold float64, lb letterboxInfo, classes []string) []detection.Detection {
	numClasses := channels - 4
	var dets []detection.Detection

	for i := 0; i < anchors; i++ {
		bestClass := -1
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			score := out[(4+c)*anchors+i]
			if bestClass == -1 || score > bestScore {
				bestClass = c
				bestScore = score
			}
		}
		// Scores must be strictly above the threshold
		if float64(bestScore) <= threshold {
			continue
		}

		cx := float64(out[i])
		cy := float64(out[anchors+i])
		w := float64(out[2*anchors+i])
		h := float64(out[3*anchors+i])

		box, ok := lb.toSource(cx, cy, w, h)
		if !ok {
			continue
		}

		dets = append(dets, detection.Detection{
			Box:        box,
			Class:      bestClass,
			Label:      detection.LabelFor(classes, bestClass),
			Confidence: float64(bestScore),
		})
	}

	return dets
}

// toSource undoes the letterbox and clips the box to the source image
func (lb letterboxInfo) toSource(cx, cy, w, h float64) (detection.Box, bool) {
	x0 := clamp((cx-w/2-lb.padX)/lb.scale, 0, float64(lb.width))
	y0 := clamp((cy-h/2-lb.padY)/lb.scale, 0, float64(lb.height))
	x1 := clamp((cx+w/2-lb.padX)/lb.scale, 0, float64(lb.width))
	y1 := clamp((cy+h/2-lb.padY)/lb.scale, 0, float64(lb.height))

	if x1 <= x0 || y1 <= y0 {
		return detection.Box{}, false
	}

	return detection.Box{
		CenterX: (x0 + x1) / 2,
		CenterY: (y0 + y1) / 2,
		Width:   x1 - x0,
		Height:  y1 - y0,
	}, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

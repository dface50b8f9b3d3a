package onnx

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/nam-ha/human-detection-app/internal/detection"
)

func TestLetterboxLandscape(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	boxed, lb := letterbox(img, 64)

	if boxed.Bounds().Dx() != 64 || boxed.Bounds().Dy() != 64 {
		t.Fatalf("Expected 64x64 canvas, got %v", boxed.Bounds())
	}
	if lb.scale != 0.32 {
		t.Errorf("Expected scale 0.32, got %v", lb.scale)
	}
	if lb.padX != 0 || lb.padY != 16 {
		t.Errorf("Expected padding (0,16), got (%v,%v)", lb.padX, lb.padY)
	}

	if got := boxed.NRGBAAt(10, 2); got != padGray {
		t.Errorf("Expected pad color at top, got %v", got)
	}
	if got := boxed.NRGBAAt(10, 32); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("Expected image content in the middle, got %v", got)
	}
}

func TestFillCHW(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 102, B: 255, A: 255})

	dst := make([]float32, 6)
	fillCHW(img, dst)

	expected := []float32{1, 0, 0, 0.4, 0.2, 1}
	for i := range expected {
		if math.Abs(float64(dst[i]-expected[i])) > 1e-6 {
			t.Errorf("Index %d: expected %v, got %v", i, expected[i], dst[i])
		}
	}
}

func TestDecode(t *testing.T) {
	const anchors = 3
	// 4 box rows + 2 class rows, laid out [channel][anchor]
	out := []float32{
		// cx
		32, 10, 50,
		// cy
		32, 10, 50,
		// w
		20, 4, 6,
		// h
		10, 4, 6,
		// class 0
		0.9, 0.1, 0.2,
		// class 1
		0.05, 0.2, 0.8,
	}

	lb := letterboxInfo{scale: 0.5, padX: 0, padY: 0, width: 128, height: 128}
	dets := decode(out, 6, anchors, 0.5, lb, []string{"human", "dog"})

	if len(dets) != 2 {
		t.Fatalf("Expected 2 detections above threshold, got %d", len(dets))
	}

	first := dets[0]
	if first.Class != 0 || first.Label != "human" {
		t.Errorf("Expected class 0 human, got %d %s", first.Class, first.Label)
	}
	if math.Abs(first.Confidence-0.9) > 1e-6 {
		t.Errorf("Expected confidence 0.9, got %v", first.Confidence)
	}
	if first.Box.CenterX != 64 || first.Box.CenterY != 64 || first.Box.Width != 40 || first.Box.Height != 20 {
		t.Errorf("Expected box rescaled to source, got %+v", first.Box)
	}

	if dets[1].Class != 1 || dets[1].Label != "dog" {
		t.Errorf("Expected second detection to be class 1 dog, got %d %s", dets[1].Class, dets[1].Label)
	}
}

func TestToSourceClips(t *testing.T) {
	lb := letterboxInfo{scale: 1, padX: 10, padY: 0, width: 50, height: 50}

	box, ok := lb.toSource(12, 25, 10, 10)
	if !ok {
		t.Fatal("Expected box to survive clipping")
	}
	// x range [-3, 7] clips to [0, 7]
	if box.Width != 7 || box.CenterX != 3.5 {
		t.Errorf("Expected clipped width 7 centered at 3.5, got %+v", box)
	}

	if _, ok := lb.toSource(0, 25, 4, 4); ok {
		t.Error("Expected a box entirely inside the padding to be dropped")
	}
}

func TestDecodeThresholdIsExclusive(t *testing.T) {
	const anchors = 2
	out := []float32{
		// cx
		32, 64,
		// cy
		32, 64,
		// w
		10, 10,
		// h
		10, 10,
		// class 0
		0.5, 0.75,
	}

	lb := letterboxInfo{scale: 1, width: 128, height: 128}
	dets := decode(out, 5, anchors, 0.5, lb, []string{"human"})

	if len(dets) != 1 {
		t.Fatalf("Expected only the score above the threshold, got %d detections", len(dets))
	}
	if math.Abs(dets[0].Confidence-0.75) > 1e-6 {
		t.Errorf("Expected confidence 0.75, got %v", dets[0].Confidence)
	}

	if dets := decode(out, 5, anchors, 0, lb, []string{"human"}); len(dets) != 2 {
		t.Errorf("Expected both detections at threshold 0, got %d", len(dets))
	}
}

func TestLimitCapsDetections(t *testing.T) {
	// Disjoint boxes so NMS keeps all of them
	var candidates []detection.Detection
	for i := 0; i < maxDetections+50; i++ {
		candidates = append(candidates, detection.Detection{
			Box:        detection.Box{CenterX: float64(i * 10), CenterY: 5, Width: 4, Height: 4},
			Confidence: float64(i) / float64(maxDetections+50),
		})
	}

	dets := limit(detection.NMS(candidates, 0.7), maxDetections)
	if len(dets) != maxDetections {
		t.Fatalf("Expected %d detections, got %d", maxDetections, len(dets))
	}
	if dets[0].Confidence < dets[len(dets)-1].Confidence {
		t.Error("Expected the most confident detections to be kept")
	}
	if lowest := dets[len(dets)-1].Confidence; lowest < float64(50)/float64(maxDetections+50) {
		t.Errorf("Expected the 50 least confident detections to be dropped, lowest kept %v", lowest)
	}

	if few := limit(candidates[:3], maxDetections); len(few) != 3 {
		t.Errorf("Expected short lists to pass through, got %d", len(few))
	}
}

// Package detection defines the contract between the prediction service and
// the model backends that find subjects in an image.
package detection

import (
	"context"
	"errors"
	"image"
	"math"
)

// ErrModelNotReady is returned when no model has been loaded
var ErrModelNotReady = errors.New("model not ready")

// Box is an axis-aligned bounding box given by its center and size, in pixels
type Box struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Corners returns the box edges with half-extents truncated toward zero,
// so odd sizes lose a pixel on the far side.
func (b Box) Corners() (xMin, yMin, xMax, yMax int) {
	halfW := math.Trunc(b.Width / 2)
	halfH := math.Trunc(b.Height / 2)
	xMin = int(b.CenterX - halfW)
	yMin = int(b.CenterY - halfH)
	xMax = int(b.CenterX + halfW)
	yMax = int(b.CenterY + halfH)
	return xMin, yMin, xMax, yMax
}

// Area is the box area in square pixels
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// Detection is a single detected subject
type Detection struct {
	Box        Box     `json:"box"`
	Class      int     `json:"class"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Detector finds subjects in an image. Implementations are loaded once and
// must be safe for concurrent use.
type Detector interface {
	// Detect returns every detection whose confidence is at least threshold
	Detect(ctx context.Context, img image.Image, threshold float64) ([]Detection, error)
	Close() error
}

// Unavailable is a Detector with no model behind it
type Unavailable struct{}

func (Unavailable) Detect(context.Context, image.Image, float64) ([]Detection, error) {
	return nil, ErrModelNotReady
}

func (Unavailable) Close() error { return nil }

// LabelFor returns the class name for a class id, or "object" when out of range
func LabelFor(classes []string, class int) string {
	if class >= 0 && class < len(classes) {
		return classes[class]
	}
	return "object"
}

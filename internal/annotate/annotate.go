// Package annotate draws detection boxes and confidence tags onto images.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/nam-ha/human-detection-app/internal/detection"
	"github.com/nam-ha/human-detection-app/internal/imagecodec"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultLineWidth = 2
	DefaultColor     = "red"

	// tagPadding is the gap between the text and the top edge of the box
	tagPadding = 4
)

// Annotation is one box to draw with its confidence tag
type Annotation struct {
	Box        detection.Box
	Label      string
	Confidence float64
	// Color is a CSS color name
	Color string
}

// Renderer draws annotations with a fixed line width and bitmap font
type Renderer struct {
	LineWidth int
	Face      font.Face
}

// NewRenderer returns a renderer using the default 7x13 bitmap face
func NewRenderer(lineWidth int) *Renderer {
	if lineWidth <= 0 {
		lineWidth = DefaultLineWidth
	}
	return &Renderer{
		LineWidth: lineWidth,
		Face:      basicfont.Face7x13,
	}
}

// FromDetections builds annotations in a single color
func FromDetections(dets []detection.Detection, colorName string) []Annotation {
	anns := make([]Annotation, len(dets))
	for i, d := range dets {
		anns[i] = Annotation{Box: d.Box, Label: d.Label, Confidence: d.Confidence, Color: colorName}
	}
	return anns
}

// DrawOnBase64 renders annotations onto a base64 image and returns the result
// as PNG base64. With no annotations the input is returned as is.
func (r *Renderer) DrawOnBase64(b64image string, anns []Annotation) (string, error) {
	if len(anns) == 0 {
		return b64image, nil
	}

	img, _, err := imagecodec.DecodeImage(b64image)
	if err != nil {
		return "", err
	}

	drawn, err := imagecodec.EncodePNG(r.Draw(img, anns))
	if err != nil {
		return "", fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return drawn, nil
}

// Draw renders annotations onto a copy of img
func (r *Renderer) Draw(img image.Image, anns []Annotation) *image.RGBA {
	b := img.Bounds()
	canvas := image.NewRGBA(b)
	draw.Draw(canvas, b, img, b.Min, draw.Src)

	for _, ann := range anns {
		c := parseColor(ann.Color)
		xMin, yMin, xMax, yMax := ann.Box.Corners()
		xMin += b.Min.X
		xMax += b.Min.X
		yMin += b.Min.Y
		yMax += b.Min.Y

		r.outline(canvas, xMin, yMin, xMax, yMax, c)
		r.tag(canvas, xMin, yMin, fmt.Sprintf("%.2f", ann.Confidence), c)
	}

	return canvas
}

// outline draws LineWidth nested rectangles inward from the given corners,
// which are inclusive
func (r *Renderer) outline(dst *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	for k := 0; k < r.LineWidth; k++ {
		left, top, right, bottom := x0+k, y0+k, x1-k, y1-k
		if right < left || bottom < top {
			break
		}
		fill(dst, left, top, right, top, c)
		fill(dst, left, bottom, right, bottom, c)
		fill(dst, left, top, left, bottom, c)
		fill(dst, right, top, right, bottom, c)
	}
}

// tag draws a filled label background above the box with white text on it
func (r *Renderer) tag(dst *image.RGBA, x, y int, text string, c color.Color) {
	metrics := r.Face.Metrics()
	textWidth := font.MeasureString(r.Face, text).Ceil()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	top := y - textHeight - tagPadding

	fill(dst, x, top, x+textWidth, y, c)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: r.Face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(top) + metrics.Ascent},
	}
	d.DrawString(text)
}

// fill paints the inclusive rectangle (x0,y0)-(x1,y1), clipped to dst
func fill(dst *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	rect := image.Rect(x0, y0, x1+1, y1+1).Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

func parseColor(name string) color.Color {
	if c, ok := colornames.Map[name]; ok {
		return c
	}
	return colornames.Red
}

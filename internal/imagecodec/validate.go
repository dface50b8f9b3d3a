package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"strings"
)

// Validation messages returned to API callers
const (
	MsgInvalidImage = "Invalid base64 image data."
	MsgTooSmall     = "Image too small."
	MsgTooLarge     = "Image too large."
)

// DefaultFormats is the format allow-list, as reported by image.Decode
var DefaultFormats = []string{"png", "jpeg", "jpg"}

// ValidationError is returned for any image the service refuses to process
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidatedImage is an image that passed every check
type ValidatedImage struct {
	// B64Image has the data-URI prefix stripped
	B64Image string
	Image    image.Image
	Format   string
	Width    int
	Height   int
}

// Validator checks decoded size and format of incoming images
type Validator struct {
	MinArea int
	MaxArea int
	formats map[string]bool
}

// NewValidator builds a validator; a nil formats list uses DefaultFormats
func NewValidator(minArea, maxArea int, formats []string) *Validator {
	if formats == nil {
		formats = DefaultFormats
	}
	allowed := make(map[string]bool, len(formats))
	for _, f := range formats {
		allowed[strings.ToLower(f)] = true
	}
	return &Validator{
		MinArea: minArea,
		MaxArea: maxArea,
		formats: allowed,
	}
}

// Validate runs the full pipeline: strip prefix, decode the header, check
// area bounds and format, then decode the pixels to verify integrity. Pixels
// are only decoded for images inside the bounds. Decode failures of any kind
// collapse into MsgInvalidImage.
func (v *Validator) Validate(b64image string) (*ValidatedImage, error) {
	b64image = StripMIMEPrefix(b64image)

	data, err := DecodeBase64(b64image)
	if err != nil {
		return nil, &ValidationError{Msg: MsgInvalidImage, Err: err}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Msg: MsgInvalidImage, Err: err}
	}

	area := int64(cfg.Width) * int64(cfg.Height)
	if area < int64(v.MinArea) {
		return nil, &ValidationError{Msg: MsgTooSmall}
	}
	if area > int64(v.MaxArea) {
		return nil, &ValidationError{Msg: MsgTooLarge}
	}

	if !v.formats[format] {
		return nil, &ValidationError{Msg: fmt.Sprintf("Not supported image format: %s", strings.ToUpper(format))}
	}

	// A full decode catches truncated or corrupt pixel data
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Msg: MsgInvalidImage, Err: err}
	}

	return &ValidatedImage{
		B64Image: b64image,
		Image:    img,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

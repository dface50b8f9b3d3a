// Package imagecodec converts between the base64 transport representation
// and raster images, and validates incoming images.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const mimePrefix = "data:image/"

// StripMIMEPrefix removes a leading "data:image/...;base64," header
func StripMIMEPrefix(b64image string) string {
	if strings.HasPrefix(b64image, mimePrefix) {
		if idx := strings.Index(b64image, ","); idx != -1 {
			return b64image[idx+1:]
		}
	}
	return b64image
}

// DecodeBase64 accepts both padded and unpadded standard base64
func DecodeBase64(b64image string) ([]byte, error) {
	b64image = strings.TrimSpace(b64image)
	data, err := base64.StdEncoding.DecodeString(b64image)
	if err == nil {
		return data, nil
	}
	data, rawErr := base64.RawStdEncoding.DecodeString(b64image)
	if rawErr != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

// DecodeImage decodes a base64 string into an image and its format name
func DecodeImage(b64image string) (image.Image, string, error) {
	data, err := DecodeBase64(b64image)
	if err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// EncodePNG encodes an image as PNG and returns it base64 encoded
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveAsPNG decodes a base64 image and writes it to path as PNG,
// creating parent directories as needed
func SaveAsPNG(b64image, path string) error {
	img, _, err := DecodeImage(b64image)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	return file.Close()
}

// ReadFileAsBase64 loads an image file from disk and re-encodes it as PNG base64
func ReadFileAsBase64(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return EncodePNG(img)
}

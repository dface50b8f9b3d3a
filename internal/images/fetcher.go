package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher reads images from local paths or http(s) URLs
type Fetcher struct {
	HTTPClient *resty.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: resty.New().SetTimeout(30 * time.Second),
	}
}

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch returns the raw bytes of the image at src
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if !isURL(src) {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return data, nil
	}

	slog.Debug("Downloading image", "url", src)
	resp, err := f.HTTPClient.R().SetContext(ctx).Get(src)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// FetchBase64 returns the image at src base64 encoded, without re-encoding
// the image itself
func (f *Fetcher) FetchBase64(ctx context.Context, src string) (string, error) {
	data, err := f.Fetch(ctx, src)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

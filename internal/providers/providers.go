package providers

import (
	"context"
	"fmt"

	"github.com/nam-ha/human-detection-app/internal/config"
	"github.com/nam-ha/human-detection-app/internal/detection"
	"github.com/nam-ha/human-detection-app/internal/gemini"
	"github.com/nam-ha/human-detection-app/internal/onnx"
)

// NewDetector builds the detector selected by DETECTOR_PROVIDER
func NewDetector(ctx context.Context, cfg *config.Config) (detection.Detector, error) {
	switch cfg.DetectorProvider {
	case config.ProviderONNX:
		d, err := onnx.New(onnx.Config{
			ModelPath:         cfg.ModelPath(),
			SharedLibraryPath: cfg.ONNXRuntimeLib,
			InputSize:         cfg.InferenceImageSize,
			IoUThreshold:      cfg.NMSIoUThreshold,
			Classes:           cfg.Classes(),
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.ProviderGemini:
		g, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Classes: cfg.Classes(),
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unsupported detector provider: %s", cfg.DetectorProvider)
}

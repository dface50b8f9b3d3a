// Package prediction runs one request through validation, detection,
// rendering and persistence.
package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nam-ha/human-detection-app/internal/annotate"
	"github.com/nam-ha/human-detection-app/internal/detection"
	"github.com/nam-ha/human-detection-app/internal/imagecodec"
	"github.com/nam-ha/human-detection-app/internal/media"
	"github.com/nam-ha/human-detection-app/internal/models"
)

const MsgInvalidThreshold = "Confidence threshold must be between 0 and 1."

// Recorder stores prediction records
type Recorder interface {
	Add(ctx context.Context, rec *models.PredictionRecord) error
}

// ImageSaver persists the query and result images
type ImageSaver interface {
	Save(queryB64, resultB64 string) (*media.Paths, error)
}

type Service struct {
	detector  detection.Detector
	validator *imagecodec.Validator
	renderer  *annotate.Renderer
	images    ImageSaver
	records   Recorder
	color     string
	now       func() time.Time
}

func NewService(detector detection.Detector, validator *imagecodec.Validator, renderer *annotate.Renderer, images ImageSaver, records Recorder) *Service {
	return &Service{
		detector:  detector,
		validator: validator,
		renderer:  renderer,
		images:    images,
		records:   records,
		color:     annotate.DefaultColor,
		now:       time.Now,
	}
}

// Outcome is the product of running the detector on one image
type Outcome struct {
	// Input is the validated request image with any data-URI prefix removed
	Input      string
	Annotated  string
	Detections []detection.Detection
}

// Detect validates the image, runs the detector and renders the boxes,
// without persisting anything
func (s *Service) Detect(ctx context.Context, b64image string, threshold *float64) (*Outcome, error) {
	if threshold == nil || *threshold < 0 || *threshold > 1 {
		return nil, &imagecodec.ValidationError{Msg: MsgInvalidThreshold}
	}

	img, err := s.validator.Validate(b64image)
	if err != nil {
		return nil, err
	}

	dets, err := s.detector.Detect(ctx, img.Image, *threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to run detection: %w", err)
	}
	slog.Debug("Detection finished", "detections", len(dets), "width", img.Width, "height", img.Height)

	annotated, err := s.renderer.DrawOnBase64(img.B64Image, annotate.FromDetections(dets, s.color))
	if err != nil {
		return nil, fmt.Errorf("failed to draw detections: %w", err)
	}

	return &Outcome{
		Input:      img.B64Image,
		Annotated:  annotated,
		Detections: dets,
	}, nil
}

// Predict runs Detect, stores both images and appends a history record
func (s *Service) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	requestTime := s.now()

	out, err := s.Detect(ctx, req.B64Image, req.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}

	paths, err := s.images.Save(out.Input, out.Annotated)
	if err != nil {
		return nil, err
	}

	rec := &models.PredictionRecord{
		Time:            requestTime,
		QueryImageFile:  paths.Query,
		ResultImageFile: paths.Result,
		NumHumans:       len(out.Detections),
	}
	if err := s.records.Add(ctx, rec); err != nil {
		return nil, err
	}

	slog.Info("Prediction stored", "query_id", rec.QueryID, "num_humans", rec.NumHumans, "key", paths.Key)

	return &models.PredictResponse{
		B64Image:  out.Annotated,
		NumHumans: rec.NumHumans,
	}, nil
}

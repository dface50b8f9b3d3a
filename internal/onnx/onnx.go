// Package onnx runs a YOLOv8-style detector exported to ONNX through
// onnxruntime.
package onnx

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/nam-ha/human-detection-app/internal/detection"
	ort "github.com/yalue/onnxruntime_go"
)

// Config describes the model to load
type Config struct {
	ModelPath string
	// SharedLibraryPath points at libonnxruntime; empty uses the platform default
	SharedLibraryPath string
	InputSize         int
	IoUThreshold      float64
	Classes           []string
}

// Detector holds one onnxruntime session and its pre-allocated tensors.
// Tensors are shared, so Detect calls are serialized.
type Detector struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	inputSize   int
	channels    int
	anchors     int
	iou         float64
	classes     []string
	ownsRuntime bool
}

// New initializes onnxruntime (once per process) and loads the model
func New(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("failed to find model: %w", err)
	}

	ownsRuntime := false
	if !ort.IsInitialized() {
		if cfg.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		ownsRuntime = true
	}

	d, err := load(cfg)
	if err != nil {
		if ownsRuntime {
			_ = ort.DestroyEnvironment()
		}
		return nil, err
	}
	d.ownsRuntime = ownsRuntime

	slog.Info("ONNX model loaded",
		"path", cfg.ModelPath,
		"input_size", d.inputSize,
		"channels", d.channels,
		"anchors", d.anchors,
		"classes", d.classes)
	return d, nil
}

func load(cfg Config) (*Detector, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("expected 1 input and at least 1 output, got %d and %d", len(inputs), len(outputs))
	}

	inputSize := cfg.InputSize
	if dims := inputs[0].Dimensions; len(dims) == 4 && dims[2] > 0 && dims[2] == dims[3] {
		inputSize = int(dims[2])
	}
	if inputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", inputSize)
	}

	outDims := outputs[0].Dimensions
	if len(outDims) != 3 || outDims[1] <= 4 || outDims[2] <= 0 {
		return nil, fmt.Errorf("unsupported output shape %v (expected static [1, 4+classes, anchors])", outDims)
	}
	channels := int(outDims[1])
	anchors := int(outDims[2])

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputSize), int64(inputSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(channels), int64(anchors)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	classes := cfg.Classes
	if len(classes) == 0 {
		classes = []string{"human"}
	}

	iou := cfg.IoUThreshold
	if iou <= 0 {
		iou = 0.7
	}

	return &Detector{
		session:   session,
		input:     inputTensor,
		output:    outputTensor,
		inputSize: inputSize,
		channels:  channels,
		anchors:   anchors,
		iou:       iou,
		classes:   classes,
	}, nil
}

// Detect runs one forward pass and returns post-NMS detections in the
// coordinate space of img
func (d *Detector) Detect(ctx context.Context, img image.Image, threshold float64) ([]detection.Detection, error) {
	if d == nil || d.session == nil {
		return nil, detection.ErrModelNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxed, lb := letterbox(img, d.inputSize)
	output := make([]float32, d.channels*d.anchors)

	d.mu.Lock()
	fillCHW(boxed, d.input.GetData())
	err := d.session.Run()
	if err == nil {
		copy(output, d.output.GetData())
	}
	d.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	candidates := decode(output, d.channels, d.anchors, threshold, lb, d.classes)
	dets := limit(detection.NMS(candidates, d.iou), maxDetections)
	slog.Debug("ONNX inference complete", "candidates", len(candidates), "detections", len(dets))
	return dets, nil
}

// Close releases the session, its tensors and, if this detector started it,
// the runtime environment
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.ownsRuntime {
		d.ownsRuntime = false
		return ort.DestroyEnvironment()
	}
	return nil
}

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/nam-ha/human-detection-app/internal/detection"
	"google.golang.org/api/option"
)

// Config configures the Gemini detector
type Config struct {
	APIKey  string
	Model   string
	Classes []string
}

// Gemini is a detector backed by a Gemini vision model
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	classes []string
}

// New creates the Gemini client once; it is reused for every request
func New(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	classes := cfg.Classes
	if len(classes) == 0 {
		classes = []string{"human"}
	}

	slog.Info("Gemini detector ready", "model", cfg.Model, "classes", classes)
	return &Gemini{
		client:  client,
		model:   model,
		classes: classes,
	}, nil
}

// Detect sends the image to Gemini and parses the returned bounding boxes
func (g *Gemini) Detect(ctx context.Context, img image.Image, threshold float64) ([]detection.Detection, error) {
	if g == nil || g.model == nil {
		return nil, detection.ErrModelNotReady
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for gemini: %w", err)
	}

	resp, err := g.model.GenerateContent(ctx, genai.ImageData("png", buf.Bytes()), genai.Text(buildPrompt(g.classes)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	b := img.Bounds()
	dets, err := parseDetections(string(txt), b.Dx(), b.Dy(), threshold, g.classes)
	if err != nil {
		return nil, err
	}
	slog.Debug("Gemini detection complete", "detections", len(dets))
	return dets, nil
}

// Close releases the underlying client
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	g.model = nil
	return err
}

func buildPrompt(classes []string) string {
	return fmt.Sprintf(`Detect every %s visible in the image.

Return ONLY a JSON array. Each element must be an object:
{"box_2d": [ymin, xmin, ymax, xmax], "label": "<one of: %s>", "confidence": <0.0-1.0>}

Coordinates are integers normalized to 0-1000 relative to the image height (y) and width (x).
Return [] if nothing is found.`, strings.Join(classes, ", "), strings.Join(classes, ", "))
}

type rawDetection struct {
	Box2D      []float64 `json:"box_2d"`
	Label      string    `json:"label"`
	Confidence *float64  `json:"confidence"`
}

// parseDetections converts Gemini's normalized boxes into pixel detections
func parseDetections(response string, width, height int, threshold float64, classes []string) ([]detection.Detection, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var raw []rawDetection
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse gemini detections: %w", err)
	}

	dets := make([]detection.Detection, 0, len(raw))
	for _, r := range raw {
		if len(r.Box2D) != 4 {
			slog.Warn("Skipping malformed gemini box", "box_2d", r.Box2D)
			continue
		}

		// Gemini omits confidence for some models; treat that as certain
		confidence := 1.0
		if r.Confidence != nil {
			confidence = *r.Confidence
		}
		if confidence < threshold {
			continue
		}

		class := classIndex(classes, r.Label)
		if class < 0 {
			continue
		}

		yMin := r.Box2D[0] / 1000 * float64(height)
		xMin := r.Box2D[1] / 1000 * float64(width)
		yMax := r.Box2D[2] / 1000 * float64(height)
		xMax := r.Box2D[3] / 1000 * float64(width)
		if xMax <= xMin || yMax <= yMin {
			continue
		}

		dets = append(dets, detection.Detection{
			Box: detection.Box{
				CenterX: (xMin + xMax) / 2,
				CenterY: (yMin + yMax) / 2,
				Width:   xMax - xMin,
				Height:  yMax - yMin,
			},
			Class:      class,
			Label:      classes[class],
			Confidence: confidence,
		})
	}
	return dets, nil
}

// classIndex maps a returned label onto a configured class. With a single
// class every label maps onto it.
func classIndex(classes []string, label string) int {
	for i, c := range classes {
		if strings.EqualFold(c, strings.TrimSpace(label)) {
			return i
		}
	}
	if len(classes) == 1 {
		return 0
	}
	return -1
}

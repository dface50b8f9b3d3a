package cmd

import (
	"fmt"
	"log/slog"

	"github.com/nam-ha/human-detection-app/internal/config"
	"github.com/nam-ha/human-detection-app/internal/imagecodec"
	"github.com/nam-ha/human-detection-app/internal/images"
	"github.com/nam-ha/human-detection-app/internal/providers"
	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	var imagePath string
	var confidence float64
	var output string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run the detector on a local image",
		Long: `Runs the configured detector on one image without starting the server.

Nothing is stored in the history. The detections are printed, and the
annotated image is written when --output is given.`,
		Example: `  humandetect predict --image people.jpg
  humandetect predict --image people.jpg --confidence 0.3 --output annotated.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			detector, err := providers.NewDetector(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to load detector: %w", err)
			}
			defer detector.Close()

			b64image, err := images.NewFetcher().FetchBase64(cmd.Context(), imagePath)
			if err != nil {
				return err
			}

			svc := newPredictionService(cfg, detector, nil, nil)
			out, err := svc.Detect(cmd.Context(), b64image, &confidence)
			if err != nil {
				return err
			}

			fmt.Printf("Found %d humans in %s\n", len(out.Detections), imagePath)
			for i, d := range out.Detections {
				xMin, yMin, xMax, yMax := d.Box.Corners()
				fmt.Printf("  %d. %s %.2f [%d, %d, %d, %d]\n", i+1, d.Label, d.Confidence, xMin, yMin, xMax, yMax)
			}

			if output != "" {
				if err := imagecodec.SaveAsPNG(out.Annotated, output); err != nil {
					return err
				}
				slog.Info("Annotated image written", "path", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Image file or http(s) URL to run detection on")
	cmd.Flags().Float64VarP(&confidence, "confidence", "c", 0.5, "Confidence threshold between 0 and 1")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the annotated PNG")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

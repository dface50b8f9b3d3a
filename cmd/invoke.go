package cmd

import (
	"fmt"
	"log/slog"

	"github.com/nam-ha/human-detection-app/internal/client"
	"github.com/nam-ha/human-detection-app/internal/imagecodec"
	"github.com/nam-ha/human-detection-app/internal/images"
	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:8000"

func newInvokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Call a running detection server",
	}

	cmd.AddCommand(newInvokePredictCmd())
	cmd.AddCommand(newInvokeHistoryCmd())

	return cmd
}

func newInvokePredictCmd() *cobra.Command {
	var serverURL string
	var imagePath string
	var confidence float64
	var output string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Send an image to /api/v1/predict",
		Example: `  humandetect invoke predict --image people.jpg --output result.png
  humandetect invoke predict --url http://detector:8000 --image people.png --confidence 0.25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			b64image, err := images.NewFetcher().FetchBase64(cmd.Context(), imagePath)
			if err != nil {
				return err
			}

			c := client.New(serverURL, client.DefaultTimeout)
			resp, err := c.Predict(cmd.Context(), b64image, confidence)
			if err != nil {
				return err
			}

			fmt.Printf("Found %d humans\n", resp.NumHumans)

			if output != "" {
				if err := imagecodec.SaveAsPNG(resp.B64Image, output); err != nil {
					return err
				}
				slog.Info("Annotated image written", "path", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", defaultServerURL, "Base URL of the server")
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Image file or http(s) URL to send")
	cmd.Flags().Float64VarP(&confidence, "confidence", "c", 0.5, "Confidence threshold between 0 and 1")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the annotated PNG")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func newInvokeHistoryCmd() *cobra.Command {
	var serverURL string
	var flags historyFlags

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Fetch a page from /api/v1/history",
		Example: `  humandetect invoke history --num-humans-min 1
  humandetect invoke history --url http://detector:8000 --page-index 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.parse()
			if err != nil {
				return err
			}

			c := client.New(serverURL, client.DefaultTimeout)
			page, err := c.History(cmd.Context(), q)
			if err != nil {
				return err
			}

			printEntries(page.Records)
			fmt.Printf("\nShowing %d of %d (page %d, size %d)\n", len(page.Records), page.Total, q.PageIndex, q.PageSize)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", defaultServerURL, "Base URL of the server")
	flags.register(cmd, true)

	return cmd
}

package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nam-ha/human-detection-app/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "humandetect",
		Short: "Human detection API with prediction history",
		Long: `humandetect serves a pretrained object detector over HTTP.

Clients submit a base64 image and a confidence threshold and get back the
annotated image and the number of humans found. Every prediction is stored
and can be paged through, filtered and exported from the CLI.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present, overriding the environment (ignore errors)
			_ = godotenv.Overload()
			setupLogging(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPredictCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newInvokeCmd())

	return cmd
}

func setupLogging(verbose bool) {
	level := config.ParseLogLevel(os.Getenv("LOG_LEVEL"))
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nam-ha/human-detection-app/internal/config"
	"github.com/nam-ha/human-detection-app/internal/detection"
	"github.com/nam-ha/human-detection-app/internal/handlers"
	"github.com/nam-ha/human-detection-app/internal/media"
	"github.com/nam-ha/human-detection-app/internal/providers"
	"github.com/nam-ha/human-detection-app/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int
	var allowMissingModel bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the detection API server",
		Long: `Starts the human detection API.

The detector and the database pool are created once at startup and shared by
every request. Query and result images are written under MEDIA_STORAGE_FOLDER.`,
		Example: `  # Start server on the PORT from the environment (default 8000)
  humandetect serve

  # Start server on a custom port
  humandetect serve --port 3000

  # Start without model weights; predictions return 503
  humandetect serve --allow-missing-model`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			detector, err := providers.NewDetector(cmd.Context(), cfg)
			if err != nil {
				if !allowMissingModel {
					return fmt.Errorf("failed to load detector: %w", err)
				}
				slog.Warn("Detector unavailable, predictions will return 503", "provider", cfg.DetectorProvider, "err", err)
				detector = detection.Unavailable{}
			}
			defer detector.Close()

			store, err := storage.Open(cmd.Context(), cfg.DSN())
			if err != nil {
				return err
			}
			defer store.Close()

			images := media.New(cfg.MediaStorageFolder)
			if err := images.EnsureDirs(); err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			handler := handlers.New(newPredictionService(cfg, detector, images, store), store)

			addr := fmt.Sprintf(":%d", cfg.Port)
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Router(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Detection API available", "addr", addr, "url", "http://localhost"+addr, "provider", cfg.DetectorProvider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8000, "Port to listen on (overrides PORT)")
	cmd.Flags().BoolVar(&allowMissingModel, "allow-missing-model", false, "Keep serving when the detector fails to load")

	return cmd
}

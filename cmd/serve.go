package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pintuan-hub/publisher/internal/config"
	"github.com/pintuan-hub/publisher/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the listing publisher API",
		Long: `Starts the publisher HTTP API on the specified port.

Clients open a draft, upload an order screenshot and poll the draft until it
is ready, then submit it. Backends are chosen through environment variables
(EXTRACTION_PROVIDER, LISTINGS_BACKEND, ASSET_BACKEND).`,
		Example: `  # Start server on default port 8888
  publisher serve

  # Start server on custom port with a postgres backend
  LISTINGS_BACKEND=postgres DATABASE_URL=postgres://... publisher serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			pipeline, closeStore, err := cfg.NewPipeline(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			uploadsDir := ""
			if cfg.AssetBackend == "local" {
				uploadsDir = cfg.UploadsDir
			}
			handler := handlers.New(ctx, pipeline, uploadsDir)
			handler.StartJanitor(cfg.SessionTTL)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Publisher API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
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

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}

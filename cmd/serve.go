package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"stocklens/internal/config"
	"stocklens/internal/extraction"
	"stocklens/internal/server"
	"stocklens/internal/storage"
)

func newServeCmd(configPath *string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stocklens remote store API",
		Long: `Starts the HTTP API the capture workflow talks to: vision extraction,
session-scoped product storage, CSV export, and the session directory.`,
		Example: `  # Start server on default port 8888
  stocklens serve

  # Start server on custom port
  stocklens serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			store, err := storage.NewSQLiteStore(cfg.Server.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			extractor, err := extraction.NewService(cfg.Extraction.Provider, cfg.Extraction.Model)
			if err != nil {
				return err
			}

			handler := server.New(store, extractor, cfg.Server.UploadsDir)
			addr := ":" + cfg.Server.Port
			httpServer := &http.Server{
				Addr:    addr,
				Handler: handler.Router(),
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				slog.Info("Stocklens store available", "addr", addr, "db", cfg.Server.DatabasePath)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")

	return cmd
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"example.com/timereport/internal/api"
	"example.com/timereport/internal/auth"
	"example.com/timereport/internal/config"
	"example.com/timereport/internal/logging"
	"example.com/timereport/internal/persistence/postgres"
	httptransport "example.com/timereport/internal/transport/http"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve time reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := root.logger(&cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runServe(ctx, cfg, logger); err != nil {
				logger.Error("server failed", "error", err)
				return err
			}
			return nil
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	source, closeSource, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSource(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("closing data source failed", "error", err)
		}
	}()

	opts := []api.Option{api.WithLogger(logger), api.WithSheetName(cfg.SheetName)}
	if cfg.ArchivePostgresURL != "" {
		pool, err := postgres.Connect(ctx, cfg.ArchivePostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		opts = append(opts, api.WithArchive(postgres.NewArchive(pool)))
	}

	handler := api.NewHandler(newPipeline(cfg, source, logger), opts...)
	mux := httptransport.NewMux()
	handler.RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress),
		authMiddleware.Wrap(requestLogger(logger, mux)))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("timereport listening", "address", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	return <-errCh
}

func requestLogger(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request served", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

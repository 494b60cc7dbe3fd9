package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/compliance-radar/internal/adapters/archive"
	"github.com/okian/compliance-radar/internal/adapters/http/api"
	"github.com/okian/compliance-radar/internal/adapters/http/site"
	"github.com/okian/compliance-radar/internal/adapters/http/swagger"
	"github.com/okian/compliance-radar/internal/config"
	"github.com/okian/compliance-radar/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// serve runs the dashboard over the run archive until ctx is cancelled.
func serve(ctx context.Context, overrides map[string]any, _ io.Writer) error {
	log := logger.Get()

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if err := configureMetrics(cfg); err != nil {
		return err
	}
	if cfg.ArchivePath == "" {
		return fmt.Errorf("%w: serve requires archive_path (--archive)", config.ErrInvalidConfig)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg.ArchivePath),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("archive", cfg.ArchivePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newRouter registers docs, API and dashboard routes, most specific first.
func newRouter(ctx context.Context, archivePath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	swagger.Register(ctx, r)
	store := archive.NewViewer(archivePath, logger.Named("archive"))
	api.NewServer(store, api.WithLogger(logger.Named("api"))).Register(ctx, r)
	site.Register(ctx, r)
	return r
}

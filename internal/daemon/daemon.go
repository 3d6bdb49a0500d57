// Package daemon assembles the store, pipeline, feed poller, and REST API
// into the long-running podpirate process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"podpirate/internal/addetect"
	"podpirate/internal/config"
	"podpirate/internal/feed"
	"podpirate/internal/logging"
	"podpirate/internal/pipeline"
	"podpirate/internal/services/ollama"
	"podpirate/internal/store"
)

const shutdownTimeout = 15 * time.Second

// Daemon is the composed long-running process.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a daemon for the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Daemon {
	return &Daemon{cfg: cfg, logger: logging.NewComponentLogger(logger, "daemon")}
}

// Run starts every subsystem and blocks until ctx is cancelled or a fatal
// error occurs. A file lock guarantees a single instance per data directory.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(filepath.Join(d.cfg.Paths.LogDir, "podpirate.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another podpirate instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	st, err := store.Open(d.cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	d.logger.Info("store opened", logging.String("path", st.Path()))

	pause, err := pipeline.NewPauseController(ctx, st, d.logger)
	if err != nil {
		return err
	}

	orchestrator := pipeline.New(d.cfg, st, d.logger, pause)
	if err := orchestrator.Start(ctx); err != nil {
		return err
	}
	defer orchestrator.Stop()

	poller := feed.NewPoller(
		st,
		feed.NewClient(),
		orchestrator,
		time.Duration(d.cfg.Pipeline.FeedPollInterval)*time.Second,
		d.logger,
	)
	go poller.Run(ctx)

	hintClient := ollama.NewClient(ollama.Config{
		BaseURL:        d.cfg.Ollama.URL,
		Model:          d.cfg.Ollama.Model,
		TimeoutSeconds: d.cfg.Ollama.TimeoutSeconds,
	})
	hints := addetect.NewExtractor(st, d.logger, hintClient)

	api := NewServer(d.cfg, st, orchestrator, poller, pause, hints, d.logger)
	httpServer := &http.Server{
		Addr:         d.cfg.Paths.APIBind,
		Handler:      api.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // audio downloads can be slow
	}

	serveErr := make(chan error, 1)
	go func() {
		d.logger.Info("api listening", logging.String("bind", d.cfg.Paths.APIBind))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	d.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("api shutdown", logging.Error(err))
	}
	return nil
}

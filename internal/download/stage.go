// Package download fetches episode audio from the feed's enclosure URL into
// local storage.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"podpirate/internal/config"
	"podpirate/internal/logging"
	"podpirate/internal/services"
	"podpirate/internal/stage"
	"podpirate/internal/store"
)

const defaultExtension = "mp3"

// Stage downloads an episode's audio enclosure.
type Stage struct {
	store      *store.Store
	cfg        *config.Config
	logger     *slog.Logger
	httpClient *http.Client
}

// NewStage constructs the download stage handler.
func NewStage(cfg *config.Config, st *store.Store, logger *slog.Logger) *Stage {
	return NewStageWithClient(cfg, st, logger, &http.Client{Timeout: 30 * time.Minute})
}

// NewStageWithClient allows injecting the HTTP client (used in tests).
func NewStageWithClient(cfg *config.Config, st *store.Store, logger *slog.Logger, client *http.Client) *Stage {
	return &Stage{
		store:      st,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "download"),
		httpClient: client,
	}
}

// Execute streams the enclosure to audio_dir/episode_<id>.<ext> and records
// the local path on the episode.
func (s *Stage) Execute(ctx context.Context, episode *store.Episode) error {
	logger := logging.WithContext(ctx, s.logger)
	if strings.TrimSpace(episode.AudioURL) == "" {
		return services.Wrap(services.ErrValidation, "download", "validate inputs", "episode has no audio url", nil)
	}

	target := filepath.Join(s.cfg.Paths.AudioDir, fmt.Sprintf("episode_%d.%s", episode.ID, audioExtension(episode.AudioURL)))
	logger.Info("downloading episode audio",
		logging.String("url", episode.AudioURL),
		logging.String("target", target))

	if err := os.MkdirAll(s.cfg.Paths.AudioDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "download", "prepare directory", "create audio directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, episode.AudioURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "download", "build request", "invalid audio url", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "download", "fetch", "request episode audio", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "download", "fetch",
			fmt.Sprintf("unexpected status %d from audio host", resp.StatusCode), nil)
	}

	written, err := writeAtomic(target, resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "download", "write", "store episode audio", err)
	}

	episode.LocalAudioPath = target
	logger.Info("download complete", logging.Int64("bytes", written))
	return nil
}

// HealthCheck reports whether the audio directory is writable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := os.MkdirAll(s.cfg.Paths.AudioDir, 0o755); err != nil {
		return stage.Unhealthy("download", err.Error())
	}
	return stage.Healthy("download")
}

// writeAtomic downloads into a temp file and renames into place, so a failed
// download never leaves a partial file at the final path.
func writeAtomic(target string, body io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".partial-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	written, err := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return written, nil
}

// audioExtension derives a file extension from the enclosure URL, defaulting
// to mp3 when the URL gives nothing usable.
func audioExtension(audioURL string) string {
	parsed, err := url.Parse(audioURL)
	if err != nil {
		return defaultExtension
	}
	ext := strings.TrimPrefix(path.Ext(parsed.Path), ".")
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || len(ext) > 4 {
		return defaultExtension
	}
	return ext
}

package audioproc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"podpirate/internal/config"
	"podpirate/internal/logging"
	"podpirate/internal/services"
	"podpirate/internal/stage"
	"podpirate/internal/store"
)

// Stage produces the cleaned audio file for an episode.
type Stage struct {
	store      *store.Store
	cfg        *config.Config
	logger     *slog.Logger
	transcoder *Transcoder
}

// NewStage constructs the audio processing stage handler.
func NewStage(cfg *config.Config, st *store.Store, logger *slog.Logger) *Stage {
	return &Stage{
		store:      st,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "audioproc"),
		transcoder: NewTranscoder(cfg.FFmpeg.Binary, cfg.FFmpeg.Threads),
	}
}

// Execute cuts the episode's ad segments out of its local audio. With no
// segments the original file is copied byte for byte, skipping a lossy
// re-encode. The cleaned file lands at processed_dir/episode_<id>_clean.<ext>.
func (s *Stage) Execute(ctx context.Context, episode *store.Episode) error {
	logger := logging.WithContext(ctx, s.logger)

	if episode.LocalAudioPath == "" {
		return services.Wrap(services.ErrMissingPrerequisite, "audioproc", "validate inputs", "episode has no local audio path", nil)
	}
	if _, err := os.Stat(episode.LocalAudioPath); err != nil {
		return services.Wrap(services.ErrMissingPrerequisite, "audioproc", "open audio", "audio file missing on disk", err)
	}

	segments, err := s.store.AdSegmentsByEpisode(ctx, episode.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "audioproc", "load segments", "read ad segments", err)
	}

	if err := os.MkdirAll(s.cfg.Paths.ProcessedDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "audioproc", "prepare directory", "create processed directory", err)
	}

	target := filepath.Join(s.cfg.Paths.ProcessedDir,
		fmt.Sprintf("episode_%d_clean%s", episode.ID, strings.ToLower(filepath.Ext(episode.LocalAudioPath))))

	ads := make([]Interval, 0, len(segments))
	for _, segment := range segments {
		ads = append(ads, Interval{Start: segment.StartTime, End: segment.EndTime})
	}

	keep := KeepIntervals(ads)
	if keep == nil {
		logger.Info("no ad segments, copying audio unchanged")
		if err := copyFile(episode.LocalAudioPath, target); err != nil {
			return services.Wrap(services.ErrTransient, "audioproc", "copy", "copy unmodified audio", err)
		}
	} else {
		logger.Info("cutting ad segments",
			logging.Int("ads", len(ads)),
			logging.Int("keep_intervals", len(keep)))
		if err := s.transcoder.Cut(ctx, episode.LocalAudioPath, target, keep); err != nil {
			return services.Wrap(services.ErrExternalTool, "audioproc", "transcode", "cut ad segments", err)
		}
	}

	episode.ProcessedAudioPath = target
	logger.Info("audio processing complete", logging.String("output", target))
	return nil
}

// HealthCheck confirms the transcoder binary runs and the processed directory
// is writable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := os.MkdirAll(s.cfg.Paths.ProcessedDir, 0o755); err != nil {
		return stage.Unhealthy("audioproc", err.Error())
	}
	if err := s.transcoder.Probe(ctx); err != nil {
		return stage.Unhealthy("audioproc", err.Error())
	}
	return stage.Healthy("audioproc")
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".partial-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_, err = io.Copy(tmp, in)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

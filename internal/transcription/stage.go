// Package transcription streams episode audio through the whisper service and
// persists the transcript incrementally.
package transcription

import (
	"context"
	"log/slog"
	"os"

	"podpirate/internal/config"
	"podpirate/internal/logging"
	"podpirate/internal/services"
	"podpirate/internal/services/whisper"
	"podpirate/internal/stage"
	"podpirate/internal/store"
)

// Transcriber is the whisper client surface this stage needs.
type Transcriber interface {
	TranscribeStream(ctx context.Context, audioPath string, onSegment func(whisper.Segment) error) (*whisper.StreamResult, error)
	Health(ctx context.Context) error
}

// Stage transcribes downloaded episode audio.
type Stage struct {
	store         *store.Store
	cfg           *config.Config
	logger        *slog.Logger
	client        Transcriber
	flushSegments int
}

// NewStage constructs the transcription stage handler.
func NewStage(cfg *config.Config, st *store.Store, logger *slog.Logger) *Stage {
	client := whisper.NewClient(whisper.Config{
		BaseURL:        cfg.Whisper.URL,
		TimeoutSeconds: cfg.Whisper.TimeoutSeconds,
	})
	return NewStageWithClient(cfg, st, logger, client)
}

// NewStageWithClient allows injecting the whisper client (used in tests).
func NewStageWithClient(cfg *config.Config, st *store.Store, logger *slog.Logger, client Transcriber) *Stage {
	return &Stage{
		store:         st,
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "transcription"),
		client:        client,
		flushSegments: cfg.Pipeline.TranscriptFlushSegments,
	}
}

// Execute streams the audio file to whisper, flushing the accumulated
// transcript every few segments so progress survives a crash. A missing audio
// file is a missing prerequisite, not a failure; the orchestrator resets the
// episode for re-download.
func (s *Stage) Execute(ctx context.Context, episode *store.Episode) error {
	logger := logging.WithContext(ctx, s.logger)

	if episode.LocalAudioPath == "" {
		return services.Wrap(services.ErrMissingPrerequisite, "transcription", "validate inputs", "episode has no local audio path", nil)
	}
	if _, err := os.Stat(episode.LocalAudioPath); err != nil {
		return services.Wrap(services.ErrMissingPrerequisite, "transcription", "open audio", "audio file missing on disk", err)
	}

	logger.Info("starting transcription", logging.String("audio", episode.LocalAudioPath))

	var segments []store.TranscriptSegment
	sinceFlush := 0
	result, err := s.client.TranscribeStream(ctx, episode.LocalAudioPath, func(segment whisper.Segment) error {
		segments = append(segments, store.TranscriptSegment{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
		sinceFlush++
		if sinceFlush >= s.flushSegments {
			sinceFlush = 0
			if err := s.store.SaveTranscript(ctx, episode.ID, segments); err != nil {
				return services.Wrap(services.ErrTransient, "transcription", "flush transcript", "persist partial transcript", err)
			}
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrExternalService, "transcription", "stream", "whisper transcription failed", err)
	}

	// Final flush always runs, even for a silent episode, so detection sees
	// a stored (possibly empty) transcript.
	if err := s.store.SaveTranscript(ctx, episode.ID, segments); err != nil {
		return services.Wrap(services.ErrTransient, "transcription", "save transcript", "persist transcript", err)
	}

	if episode.DurationSeconds == nil && result.Duration > 0 {
		duration := result.Duration
		episode.DurationSeconds = &duration
	}

	logger.Info("transcription complete",
		logging.Int("segments", len(segments)),
		logging.String("language", result.Language),
		logging.Float64("duration", result.Duration))
	return nil
}

// HealthCheck pings the whisper service.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.client.Health(ctx); err != nil {
		return stage.Unhealthy("transcription", err.Error())
	}
	return stage.Healthy("transcription")
}

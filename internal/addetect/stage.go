package addetect

import (
	"context"
	"log/slog"

	"podpirate/internal/config"
	"podpirate/internal/logging"
	"podpirate/internal/services"
	"podpirate/internal/services/ollama"
	"podpirate/internal/stage"
	"podpirate/internal/store"
)

// Generator is the language model surface this stage needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Health(ctx context.Context) error
}

// Stage detects ad segments in transcribed episodes.
type Stage struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
	client Generator
	paused func() bool
}

// NewStage constructs the ad detection stage handler.
func NewStage(cfg *config.Config, st *store.Store, logger *slog.Logger, paused func() bool) *Stage {
	client := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.Ollama.URL,
		Model:          cfg.Ollama.Model,
		TimeoutSeconds: cfg.Ollama.TimeoutSeconds,
	})
	return NewStageWithClient(cfg, st, logger, client, paused)
}

// NewStageWithClient allows injecting the model client (used in tests).
func NewStageWithClient(cfg *config.Config, st *store.Store, logger *slog.Logger, client Generator, paused func() bool) *Stage {
	return &Stage{
		store:  st,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "addetect"),
		client: client,
		paused: paused,
	}
}

// Execute builds the detection prompt from the transcript, podcast hints, and
// prior manual corrections, then replaces the episode's auto-detected
// segments with whatever the model found. Failures other than a pause
// refusal are soft: the orchestrator logs them and chains to audio
// processing with the segments that already exist.
func (s *Stage) Execute(ctx context.Context, episode *store.Episode) error {
	logger := logging.WithContext(ctx, s.logger)

	if s.paused != nil && s.paused() {
		return services.Wrap(services.ErrPaused, "addetect", "run", "ad detection is paused", nil)
	}

	transcript, err := s.store.GetTranscript(ctx, episode.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "addetect", "load transcript", "read transcript", err)
	}
	if transcript == nil {
		return services.Wrap(services.ErrMissingPrerequisite, "addetect", "load transcript", "episode has no transcript", nil)
	}

	podcast, err := s.store.GetPodcast(ctx, episode.PodcastID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "addetect", "load podcast", "read podcast", err)
	}

	var hints *store.AdDetectionHints
	if podcast != nil {
		hints, err = podcast.Hints()
		if err != nil {
			logger.Warn("stored hints unparseable, ignoring", logging.Error(err))
			hints = nil
		}
	}

	examples, err := s.fewShotExamples(ctx, episode)
	if err != nil {
		logger.Warn("few-shot lookup failed, continuing without examples", logging.Error(err))
	}

	prompt := buildDetectionPrompt(promptInput{
		hints:      hints,
		transcript: transcript.Segments,
		examples:   examples,
	})

	response, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "addetect", "generate", "ad detection request failed", err)
	}

	segments := parseDetectedAds(response)
	if segments == nil && len(response) > 0 {
		logger.Warn("unparseable detection response, storing zero ads",
			logging.Int("response_bytes", len(response)))
	}
	for _, segment := range segments {
		segment.EpisodeID = episode.ID
	}

	if err := s.store.ReplaceAutoSegments(ctx, episode.ID, segments); err != nil {
		return services.Wrap(services.ErrTransient, "addetect", "save segments", "persist detected segments", err)
	}

	logger.Info("ad detection complete", logging.Int("segments", len(segments)))
	return nil
}

// fewShotExamples gathers transcript lines overlapping manual ad segments
// from up to three other episodes of the same podcast.
func (s *Stage) fewShotExamples(ctx context.Context, episode *store.Episode) ([][]store.TranscriptSegment, error) {
	manual, err := s.store.ManualSegmentsByPodcast(ctx, episode.PodcastID)
	if err != nil {
		return nil, err
	}

	byEpisode := make(map[int64][]*store.AdSegment)
	var order []int64
	for _, segment := range manual {
		if segment.EpisodeID == episode.ID {
			continue
		}
		if _, seen := byEpisode[segment.EpisodeID]; !seen {
			order = append(order, segment.EpisodeID)
		}
		byEpisode[segment.EpisodeID] = append(byEpisode[segment.EpisodeID], segment)
	}
	if len(order) > fewShotEpisodeLimit {
		order = order[:fewShotEpisodeLimit]
	}

	var examples [][]store.TranscriptSegment
	for _, episodeID := range order {
		transcript, err := s.store.GetTranscript(ctx, episodeID)
		if err != nil {
			return examples, err
		}
		if transcript == nil {
			continue
		}
		lines := overlappingLines(transcript.Segments, byEpisode[episodeID])
		if len(lines) > 0 {
			examples = append(examples, lines)
		}
	}
	return examples, nil
}

// overlappingLines keeps transcript segments whose start falls inside any of
// the ad ranges.
func overlappingLines(segments []store.TranscriptSegment, ads []*store.AdSegment) []store.TranscriptSegment {
	var lines []store.TranscriptSegment
	for _, segment := range segments {
		for _, ad := range ads {
			if segment.Start >= ad.StartTime && segment.Start <= ad.EndTime {
				lines = append(lines, segment)
				break
			}
		}
	}
	return lines
}

// HealthCheck pings the model service.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.client.Health(ctx); err != nil {
		return stage.Unhealthy("addetect", err.Error())
	}
	return stage.Healthy("addetect")
}

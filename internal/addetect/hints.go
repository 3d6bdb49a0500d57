package addetect

import (
	"context"
	"log/slog"

	"podpirate/internal/logging"
	"podpirate/internal/services"
	"podpirate/internal/services/ollama"
	"podpirate/internal/store"
)

// Extractor learns podcast-level detection hints from manually tagged ad
// segments. It runs after an operator corrects the segment list.
type Extractor struct {
	store  *store.Store
	logger *slog.Logger
	client Generator
}

// NewExtractor constructs a hint extractor sharing the detection model client.
func NewExtractor(st *store.Store, logger *slog.Logger, client Generator) *Extractor {
	return &Extractor{
		store:  st,
		logger: logging.NewComponentLogger(logger, "addetect"),
		client: client,
	}
}

// Refresh rebuilds the hints for a podcast from its manual ad segments.
// With no manual segments, or no transcript text under them, the stored
// hints are left untouched.
func (e *Extractor) Refresh(ctx context.Context, podcastID int64) error {
	manual, err := e.store.ManualSegmentsByPodcast(ctx, podcastID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "addetect", "load manual segments", "read manual segments", err)
	}
	if len(manual) == 0 {
		return nil
	}

	excerpts, err := e.collectExcerpts(ctx, manual)
	if err != nil {
		return err
	}
	if len(excerpts) == 0 {
		return nil
	}

	response, err := e.client.Generate(ctx, buildHintExtractionPrompt(excerpts))
	if err != nil {
		return services.Wrap(services.ErrExternalService, "addetect", "extract hints", "hint extraction request failed", err)
	}

	var hints store.AdDetectionHints
	if err := ollama.DecodeJSON(response, &hints); err != nil {
		return services.Wrap(services.ErrMalformedResponse, "addetect", "extract hints", "decode hint response", err)
	}
	if len(nonEmpty(hints.Brands)) == 0 && len(nonEmpty(hints.Patterns)) == 0 && len(nonEmpty(hints.SamplePhrases)) == 0 {
		return services.Wrap(services.ErrMalformedResponse, "addetect", "extract hints", "hint response contained no usable fields", nil)
	}

	podcast, err := e.store.GetPodcast(ctx, podcastID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "addetect", "load podcast", "read podcast", err)
	}
	if podcast == nil {
		return services.Wrap(services.ErrNotFound, "addetect", "load podcast", "podcast no longer exists", nil)
	}
	if err := podcast.SetHints(&hints); err != nil {
		return services.Wrap(services.ErrValidation, "addetect", "save hints", "encode hints", err)
	}
	if err := e.store.UpdatePodcast(ctx, podcast); err != nil {
		return services.Wrap(services.ErrTransient, "addetect", "save hints", "persist hints", err)
	}

	e.logger.Info("detection hints refreshed",
		logging.Int64("podcast_id", podcastID),
		logging.Int("brands", len(hints.Brands)),
		logging.Int("patterns", len(hints.Patterns)),
		logging.Int("sample_phrases", len(hints.SamplePhrases)))
	return nil
}

// collectExcerpts joins the transcript text under each manual segment into
// one excerpt per segment.
func (e *Extractor) collectExcerpts(ctx context.Context, manual []*store.AdSegment) ([]string, error) {
	transcripts := make(map[int64]*store.Transcript)
	var excerpts []string
	for _, ad := range manual {
		transcript, ok := transcripts[ad.EpisodeID]
		if !ok {
			var err error
			transcript, err = e.store.GetTranscript(ctx, ad.EpisodeID)
			if err != nil {
				return nil, services.Wrap(services.ErrTransient, "addetect", "load transcript", "read transcript", err)
			}
			transcripts[ad.EpisodeID] = transcript
		}
		if transcript == nil {
			continue
		}
		if text := excerptText(transcript.Segments, ad); text != "" {
			excerpts = append(excerpts, text)
		}
	}
	return excerpts, nil
}

func excerptText(segments []store.TranscriptSegment, ad *store.AdSegment) string {
	lines := overlappingLines(segments, []*store.AdSegment{ad})
	if len(lines) == 0 {
		return ""
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.Text)
	}
	return joinNonBlank(parts)
}

func joinNonBlank(parts []string) string {
	kept := nonEmpty(parts)
	if len(kept) == 0 {
		return ""
	}
	out := kept[0]
	for _, part := range kept[1:] {
		out += " " + part
	}
	return out
}

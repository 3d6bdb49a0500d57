package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"podpirate/internal/config"
	"podpirate/internal/logging"
	"podpirate/internal/pipeline"
	"podpirate/internal/services"
	"podpirate/internal/stage"
	"podpirate/internal/store"
)

// Pipeline is the orchestrator surface the API needs.
type Pipeline interface {
	EnqueueDownload(ctx context.Context, episodeID int64) error
	Prioritize(ctx context.Context, episodeID int64) error
	Reprocess(ctx context.Context, episodeID int64) error
	DetectAds(ctx context.Context, episodeID int64) error
	RedetectAds(ctx context.Context, podcastID int64) (int, error)
	Health(ctx context.Context) []stage.Health
}

// Subscriber manages feed subscriptions. Satisfied by *feed.Poller.
type Subscriber interface {
	Subscribe(ctx context.Context, feedURL string) (*store.Podcast, error)
	SyncPodcast(ctx context.Context, podcast *store.Podcast) (int, error)
}

// HintRefresher rebuilds podcast detection hints from manual corrections.
type HintRefresher interface {
	Refresh(ctx context.Context, podcastID int64) error
}

// Server exposes the REST control surface.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	pipeline   Pipeline
	subscriber Subscriber
	pause      *pipeline.PauseController
	hints      HintRefresher
	logger     *slog.Logger
}

// NewServer wires the API handlers.
func NewServer(cfg *config.Config, st *store.Store, pl Pipeline, subscriber Subscriber, pause *pipeline.PauseController, hints HintRefresher, logger *slog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		store:      st,
		pipeline:   pl,
		subscriber: subscriber,
		pause:      pause,
		hints:      hints,
		logger:     logging.NewComponentLogger(logger, "api"),
	}
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestMiddleware)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	api.HandleFunc("/podcasts", s.handleListPodcasts).Methods(http.MethodGet)
	api.HandleFunc("/podcasts", s.handleAddPodcast).Methods(http.MethodPost)
	api.HandleFunc("/podcasts/{id:[0-9]+}", s.handleGetPodcast).Methods(http.MethodGet)
	api.HandleFunc("/podcasts/{id:[0-9]+}", s.handleRemovePodcast).Methods(http.MethodDelete)
	api.HandleFunc("/podcasts/{id:[0-9]+}/sync", s.handleSyncPodcast).Methods(http.MethodPost)
	api.HandleFunc("/podcasts/{id:[0-9]+}/redetect-ads", s.handleRedetectAds).Methods(http.MethodPost)
	api.HandleFunc("/podcasts/{id:[0-9]+}/episodes", s.handlePodcastEpisodes).Methods(http.MethodGet)

	api.HandleFunc("/episodes", s.handleListEpisodes).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id:[0-9]+}", s.handleGetEpisode).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id:[0-9]+}/download", s.episodeAction(s.pipeline.EnqueueDownload)).Methods(http.MethodPost)
	api.HandleFunc("/episodes/{id:[0-9]+}/prioritize", s.episodeAction(s.pipeline.Prioritize)).Methods(http.MethodPost)
	api.HandleFunc("/episodes/{id:[0-9]+}/reprocess", s.episodeAction(s.pipeline.Reprocess)).Methods(http.MethodPost)
	api.HandleFunc("/episodes/{id:[0-9]+}/detect-ads", s.episodeAction(s.pipeline.DetectAds)).Methods(http.MethodPost)
	api.HandleFunc("/episodes/{id:[0-9]+}/transcript", s.handleGetTranscript).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id:[0-9]+}/ad-segments", s.handleGetAdSegments).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{id:[0-9]+}/ad-segments", s.handlePutAdSegments).Methods(http.MethodPut)
	api.HandleFunc("/episodes/{id:[0-9]+}/audio", s.handleGetAudio).Methods(http.MethodGet)

	api.HandleFunc("/config/ai-paused", s.handleGetPaused).Methods(http.MethodGet)
	api.HandleFunc("/config/ai-paused", s.handlePutPaused).Methods(http.MethodPut)

	return r
}

func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ctx := services.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		s.logger.Debug("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldCorrelationID, requestID),
			logging.Duration("elapsed", time.Since(start)))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrPaused):
		status = http.StatusConflict
	case errors.Is(err, services.ErrExternalService), errors.Is(err, services.ErrExternalTool):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, services.Wrap(services.ErrValidation, "api", "parse id", "invalid identifier", err)
	}
	return id, nil
}

type podcastResponse struct {
	ID          int64                   `json:"id"`
	Title       string                  `json:"title"`
	Author      string                  `json:"author,omitempty"`
	Description string                  `json:"description,omitempty"`
	FeedURL     string                  `json:"feed_url"`
	Hints       *store.AdDetectionHints `json:"ad_detection_hints,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func podcastToResponse(podcast *store.Podcast) podcastResponse {
	hints, err := podcast.Hints()
	if err != nil {
		hints = nil
	}
	return podcastResponse{
		ID:          podcast.ID,
		Title:       podcast.Title,
		Author:      podcast.Author,
		Description: podcast.Description,
		FeedURL:     podcast.FeedURL,
		Hints:       hints,
		CreatedAt:   podcast.CreatedAt,
		UpdatedAt:   podcast.UpdatedAt,
	}
}

type episodeResponse struct {
	ID                 int64      `json:"id"`
	PodcastID          int64      `json:"podcast_id"`
	Title              string     `json:"title"`
	Status             string     `json:"status"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	Priority           int        `json:"priority"`
	AudioURL           string     `json:"audio_url"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	DurationSeconds    *float64   `json:"duration_seconds,omitempty"`
	LocalAudioPath     string     `json:"local_audio_path,omitempty"`
	ProcessedAudioPath string     `json:"processed_audio_path,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func episodeToResponse(episode *store.Episode) episodeResponse {
	return episodeResponse{
		ID:                 episode.ID,
		PodcastID:          episode.PodcastID,
		Title:              episode.Title,
		Status:             string(episode.Status),
		ErrorMessage:       episode.ErrorMessage,
		Priority:           episode.Priority,
		AudioURL:           episode.AudioURL,
		PublishedAt:        episode.PublishedAt,
		DurationSeconds:    episode.DurationSeconds,
		LocalAudioPath:     episode.LocalAudioPath,
		ProcessedAudioPath: episode.ProcessedAudioPath,
		CreatedAt:          episode.CreatedAt,
		UpdatedAt:          episode.UpdatedAt,
	}
}

type segmentResponse struct {
	ID        int64   `json:"id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Source    string  `json:"source"`
	Confirmed bool    `json:"confirmed"`
}

func segmentsToResponse(segments []*store.AdSegment) []segmentResponse {
	out := make([]segmentResponse, 0, len(segments))
	for _, segment := range segments {
		out = append(out, segmentResponse{
			ID:        segment.ID,
			Start:     segment.StartTime,
			End:       segment.EndTime,
			Source:    string(segment.Source),
			Confirmed: segment.Confirmed,
		})
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := s.pipeline.Health(r.Context())
	type stageHealth struct {
		Name   string `json:"name"`
		Ready  bool   `json:"ready"`
		Detail string `json:"detail,omitempty"`
	}
	ready := true
	stages := make([]stageHealth, 0, len(checks))
	for _, check := range checks {
		if !check.Ready {
			ready = false
		}
		stages = append(stages, stageHealth{Name: check.Name, Ready: check.Ready, Detail: check.Detail})
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "stages": stages})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	counts := make(map[string]int, len(stats))
	total := 0
	for status, count := range stats {
		counts[string(status)] = count
		total += count
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"episodes":  total,
		"by_status": counts,
		"ai_paused": s.pause.Paused(),
	})
}

func (s *Server) handleListPodcasts(w http.ResponseWriter, r *http.Request) {
	podcasts, err := s.store.ListPodcasts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]podcastResponse, 0, len(podcasts))
	for _, podcast := range podcasts {
		out = append(out, podcastToResponse(podcast))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddPodcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FeedURL string `json:"feed_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FeedURL == "" {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "add podcast", "feed_url is required", err))
		return
	}
	podcast, err := s.subscriber.Subscribe(r.Context(), body.FeedURL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, podcastToResponse(podcast))
}

func (s *Server) loadPodcast(w http.ResponseWriter, r *http.Request) (*store.Podcast, bool) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	podcast, err := s.store.GetPodcast(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if podcast == nil {
		s.writeError(w, services.Wrap(services.ErrNotFound, "api", "load podcast", fmt.Sprintf("podcast %d not found", id), nil))
		return nil, false
	}
	return podcast, true
}

func (s *Server) handleGetPodcast(w http.ResponseWriter, r *http.Request) {
	podcast, ok := s.loadPodcast(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, podcastToResponse(podcast))
}

func (s *Server) handleRemovePodcast(w http.ResponseWriter, r *http.Request) {
	podcast, ok := s.loadPodcast(w, r)
	if !ok {
		return
	}
	if _, err := s.store.RemovePodcast(r.Context(), podcast.ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncPodcast(w http.ResponseWriter, r *http.Request) {
	podcast, ok := s.loadPodcast(w, r)
	if !ok {
		return
	}
	added, err := s.subscriber.SyncPodcast(r.Context(), podcast)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (s *Server) handleRedetectAds(w http.ResponseWriter, r *http.Request) {
	podcast, ok := s.loadPodcast(w, r)
	if !ok {
		return
	}
	count, err := s.pipeline.RedetectAds(r.Context(), podcast.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": count})
}

func (s *Server) handlePodcastEpisodes(w http.ResponseWriter, r *http.Request) {
	podcast, ok := s.loadPodcast(w, r)
	if !ok {
		return
	}
	episodes, err := s.store.EpisodesByPodcast(r.Context(), podcast.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]episodeResponse, 0, len(episodes))
	for _, episode := range episodes {
		out = append(out, episodeToResponse(episode))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	var statuses []store.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := store.ParseStatus(raw)
		if !ok {
			s.writeError(w, services.Wrap(services.ErrValidation, "api", "list episodes", "unknown status "+raw, nil))
			return
		}
		statuses = append(statuses, status)
	}
	episodes, err := s.store.ListEpisodes(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]episodeResponse, 0, len(episodes))
	for _, episode := range episodes {
		out = append(out, episodeToResponse(episode))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) loadEpisode(w http.ResponseWriter, r *http.Request) (*store.Episode, bool) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	episode, err := s.store.GetEpisode(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if episode == nil {
		s.writeError(w, services.Wrap(services.ErrNotFound, "api", "load episode", fmt.Sprintf("episode %d not found", id), nil))
		return nil, false
	}
	return episode, true
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, ok := s.loadEpisode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, episodeToResponse(episode))
}

// episodeAction adapts a pipeline operation into a POST handler.
func (s *Server) episodeAction(action func(ctx context.Context, episodeID int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episode, ok := s.loadEpisode(w, r)
		if !ok {
			return
		}
		if err := action(r.Context(), episode.ID); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	episode, ok := s.loadEpisode(w, r)
	if !ok {
		return
	}
	transcript, err := s.store.GetTranscript(r.Context(), episode.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if transcript == nil {
		s.writeError(w, services.Wrap(services.ErrNotFound, "api", "get transcript", "episode has no transcript", nil))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"episode_id": transcript.EpisodeID,
		"segments":   transcript.Segments,
		"updated_at": transcript.UpdatedAt,
	})
}

func (s *Server) handleGetAdSegments(w http.ResponseWriter, r *http.Request) {
	episode, ok := s.loadEpisode(w, r)
	if !ok {
		return
	}
	segments, err := s.store.AdSegmentsByEpisode(r.Context(), episode.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segmentsToResponse(segments))
}

// handlePutAdSegments replaces the manual segment set for an episode and
// kicks off a background hint refresh so future detections learn from the
// correction.
func (s *Server) handlePutAdSegments(w http.ResponseWriter, r *http.Request) {
	episode, ok := s.loadEpisode(w, r)
	if !ok {
		return
	}
	var body struct {
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "put segments", "invalid body", err))
		return
	}
	segments := make([]*store.AdSegment, 0, len(body.Segments))
	for _, entry := range body.Segments {
		if entry.End <= entry.Start {
			s.writeError(w, services.Wrap(services.ErrValidation, "api", "put segments",
				fmt.Sprintf("segment end %.2f must be after start %.2f", entry.End, entry.Start), nil))
			return
		}
		segments = append(segments, &store.AdSegment{
			EpisodeID: episode.ID,
			StartTime: entry.Start,
			EndTime:   entry.End,
			Source:    store.SourceManual,
			Confirmed: true,
		})
	}
	if err := s.store.ReplaceManualSegments(r.Context(), episode.ID, segments); err != nil {
		s.writeError(w, err)
		return
	}

	if s.hints != nil {
		podcastID := episode.PodcastID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := s.hints.Refresh(ctx, podcastID); err != nil {
				s.logger.Warn("hint refresh failed",
					logging.Int64(logging.FieldPodcastID, podcastID),
					logging.Error(err))
			}
		}()
	}

	stored, err := s.store.AdSegmentsByEpisode(r.Context(), episode.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segmentsToResponse(stored))
}

func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	episode, ok := s.loadEpisode(w, r)
	if !ok {
		return
	}
	if episode.Status != store.StatusReady || episode.ProcessedAudioPath == "" {
		s.writeError(w, services.Wrap(services.ErrNotFound, "api", "get audio",
			fmt.Sprintf("episode is %s, no processed audio", episode.Status), nil))
		return
	}
	http.ServeFile(w, r, episode.ProcessedAudioPath)
}

func (s *Server) handleGetPaused(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"paused": s.pause.Paused()})
}

func (s *Server) handlePutPaused(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Paused *bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Paused == nil {
		s.writeError(w, services.Wrap(services.ErrValidation, "api", "set paused", "paused is required", err))
		return
	}
	var err error
	if *body.Paused {
		err = s.pause.Pause(r.Context())
	} else {
		err = s.pause.Resume(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": s.pause.Paused()})
}

// Package pipeline schedules episodes through the download, transcription, ad
// detection, and audio processing stages.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"podpirate/internal/addetect"
	"podpirate/internal/audioproc"
	"podpirate/internal/config"
	"podpirate/internal/download"
	"podpirate/internal/logging"
	"podpirate/internal/services"
	"podpirate/internal/stage"
	"podpirate/internal/store"
	"podpirate/internal/transcription"
)

// binding ties a stage handler to its slice of the episode state machine.
type binding struct {
	name    string
	handler stage.Handler
	pool    *pool

	// resting is the status the scheduler sweep looks for, running is set
	// while the handler executes, success is set when it returns nil.
	resting store.Status
	running store.Status
	success store.Status

	next *binding

	// resetStatus is where a missing prerequisite sends the episode, and
	// resetNext the binding that picks it back up.
	resetStatus store.Status
	resetNext   *binding

	// softFail stages chain to next even when the handler errors. Detection
	// uses this so an offline model never blocks delivery.
	softFail bool

	// gate, when set and returning true, keeps the scheduler from submitting
	// work to this stage. Detection is gated while paused.
	gate func() bool
}

// Handlers carries the four stage implementations. Tests substitute fakes.
type Handlers struct {
	Download      stage.Handler
	Transcription stage.Handler
	Detection     stage.Handler
	Processing    stage.Handler
}

// Orchestrator owns the worker pools and the episode state machine.
type Orchestrator struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	download      *binding
	transcription *binding
	detection     *binding
	processing    *binding
	bindings      []*binding

	mu       sync.Mutex
	inflight map[int64]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an orchestrator with the production stage handlers and registers
// it with the pause controller for resume-after-unpause.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, pause *PauseController) *Orchestrator {
	detectionStage := addetect.NewStage(cfg, st, logger, pause.Paused)
	transcriptionStage := transcription.NewStage(cfg, st, logger)

	o := NewWithHandlers(cfg, st, logger, Handlers{
		Download:      download.NewStage(cfg, st, logger),
		Transcription: transcriptionStage,
		Detection:     detectionStage,
		Processing:    audioproc.NewStage(cfg, st, logger),
	})
	o.detection.gate = pause.Paused
	pause.AddHealthChecks(transcriptionStage.HealthCheck, detectionStage.HealthCheck)
	pause.SetResumer(o)
	return o
}

// NewWithHandlers wires the orchestrator around caller-provided handlers.
func NewWithHandlers(cfg *config.Config, st *store.Store, logger *slog.Logger, handlers Handlers) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		store:    st,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		inflight: make(map[int64]struct{}),
	}

	queueSize := cfg.Pipeline.QueueSize
	o.download = &binding{
		name:    "download",
		handler: handlers.Download,
		pool:    newPool(cfg.Pipeline.DownloadWorkers, queueSize),
		resting: store.StatusPending,
		running: store.StatusDownloading,
		success: store.StatusDownloaded,
	}
	o.transcription = &binding{
		name:        "transcription",
		handler:     handlers.Transcription,
		pool:        newPool(cfg.Pipeline.TranscriptionWorkers, queueSize),
		resting:     store.StatusDownloaded,
		running:     store.StatusTranscribing,
		success:     store.StatusDetectingAds,
		resetStatus: store.StatusPending,
	}
	o.detection = &binding{
		name:        "detection",
		handler:     handlers.Detection,
		pool:        newPool(cfg.Pipeline.DetectionWorkers, queueSize),
		resting:     store.StatusDetectingAds,
		running:     store.StatusDetectingAds,
		success:     store.StatusProcessing,
		resetStatus: store.StatusDownloaded,
		softFail:    true,
	}
	o.processing = &binding{
		name:        "processing",
		handler:     handlers.Processing,
		pool:        newPool(cfg.Pipeline.ProcessingWorkers, queueSize),
		resting:     store.StatusProcessing,
		running:     store.StatusProcessing,
		success:     store.StatusReady,
		resetStatus: store.StatusPending,
	}

	o.download.next = o.transcription
	o.transcription.next = o.detection
	o.detection.next = o.processing
	o.transcription.resetNext = o.download
	o.detection.resetNext = o.transcription
	o.processing.resetNext = o.download
	o.bindings = []*binding{o.download, o.transcription, o.detection, o.processing}
	return o
}

// Start recovers interrupted episodes, launches the worker pools, and begins
// the periodic scheduling sweep.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.ctx, o.cancel = context.WithCancel(ctx)
	for _, b := range o.bindings {
		b.pool.start(o.ctx)
	}

	if err := o.recover(o.ctx); err != nil {
		return err
	}

	interval := time.Duration(o.cfg.Pipeline.QueuePollInterval) * time.Second
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-o.ctx.Done():
				return
			case <-ticker.C:
				o.Sweep(o.ctx)
			}
		}
	}()
	return nil
}

// Stop cancels all workers and waits for them to exit. In-flight statuses are
// rolled forward by recovery on the next start.
func (o *Orchestrator) Stop() {
	if o.cancel == nil {
		return
	}
	o.cancel()
	for _, b := range o.bindings {
		b.pool.wait()
	}
	o.wg.Wait()
}

// Sweep submits every episode resting at a stage boundary. Episodes already
// in flight are skipped by the submit guard.
func (o *Orchestrator) Sweep(ctx context.Context) {
	for _, b := range o.bindings {
		episodes, err := o.store.EpisodesByStatus(ctx, b.resting)
		if err != nil {
			o.logger.Error("sweep query failed",
				logging.String(logging.FieldStage, b.name),
				logging.Error(err))
			continue
		}
		for _, episode := range episodes {
			o.submit(b, episode.ID)
		}
	}
}

// EnqueueDownload submits a newly discovered episode to the download stage.
func (o *Orchestrator) EnqueueDownload(ctx context.Context, episodeID int64) error {
	if o.ctx == nil {
		return fmt.Errorf("pipeline not started")
	}
	o.submit(o.download, episodeID)
	return nil
}

// Prioritize boosts an episode to the front of every queue it will pass
// through, and resubmits it if it is resting at a stage boundary.
func (o *Orchestrator) Prioritize(ctx context.Context, episodeID int64) error {
	episode, err := o.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return err
	}
	if episode == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "prioritize", "episode not found", nil)
	}
	if episode.Status.IsTerminal() {
		return services.Wrap(services.ErrValidation, "pipeline", "prioritize",
			fmt.Sprintf("episode is %s", episode.Status), nil)
	}
	episode.Priority = store.PriorityBoost
	if err := o.store.UpdateEpisode(ctx, episode); err != nil {
		return err
	}
	if b := o.bindingForResting(episode.Status); b != nil {
		o.submitAsync(b, episode.ID)
	}
	return nil
}

// Reprocess re-runs audio processing for an episode using its stored ad
// segments, without re-downloading or re-transcribing.
func (o *Orchestrator) Reprocess(ctx context.Context, episodeID int64) error {
	episode, err := o.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return err
	}
	if episode == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "reprocess", "episode not found", nil)
	}
	if episode.LocalAudioPath == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "reprocess", "episode has no downloaded audio", nil)
	}
	episode.Status = store.StatusProcessing
	episode.ErrorMessage = ""
	if err := o.store.UpdateEpisode(ctx, episode); err != nil {
		return err
	}
	o.submitAsync(o.processing, episode.ID)
	return nil
}

// DetectAds re-runs ad detection for a single episode.
func (o *Orchestrator) DetectAds(ctx context.Context, episodeID int64) error {
	episode, err := o.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return err
	}
	if episode == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "detect ads", "episode not found", nil)
	}
	episode.Status = store.StatusDetectingAds
	episode.ErrorMessage = ""
	if err := o.store.UpdateEpisode(ctx, episode); err != nil {
		return err
	}
	o.submitAsync(o.detection, episode.ID)
	return nil
}

// RedetectAds pushes every ready episode of a podcast back through detection,
// typically after its hints were refreshed.
func (o *Orchestrator) RedetectAds(ctx context.Context, podcastID int64) (int, error) {
	episodes, err := o.store.EpisodesByPodcastAndStatus(ctx, podcastID, store.StatusReady)
	if err != nil {
		return 0, err
	}
	for _, episode := range episodes {
		episode.Status = store.StatusDetectingAds
		episode.ErrorMessage = ""
		if err := o.store.UpdateEpisode(ctx, episode); err != nil {
			return 0, err
		}
		o.submitAsync(o.detection, episode.ID)
	}
	return len(episodes), nil
}

// ResumeStuck resubmits everything resting at a stage boundary. The pause
// controller calls this after detection is unpaused.
func (o *Orchestrator) ResumeStuck(ctx context.Context) error {
	o.Sweep(ctx)
	return nil
}

// Health reports the readiness of each stage.
func (o *Orchestrator) Health(ctx context.Context) []stage.Health {
	health := make([]stage.Health, 0, len(o.bindings))
	for _, b := range o.bindings {
		health = append(health, b.handler.HealthCheck(ctx))
	}
	return health
}

func (o *Orchestrator) bindingForResting(status store.Status) *binding {
	for _, b := range o.bindings {
		if b.resting == status {
			return b
		}
	}
	return nil
}

func (o *Orchestrator) acquire(episodeID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[episodeID]; busy {
		return false
	}
	o.inflight[episodeID] = struct{}{}
	return true
}

func (o *Orchestrator) release(episodeID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, episodeID)
}

// submit queues an episode on a stage pool, blocking on a full queue. It
// returns false when the episode is already in flight or the pipeline is
// shutting down.
func (o *Orchestrator) submit(b *binding, episodeID int64) bool {
	if b.gate != nil && b.gate() {
		return false
	}
	if !o.acquire(episodeID) {
		return false
	}
	ok := b.pool.submit(o.ctx, func(ctx context.Context) {
		next := o.runEpisode(ctx, b, episodeID)
		o.release(episodeID)
		if next != nil {
			o.submitAsync(next, episodeID)
		}
	})
	if !ok {
		o.release(episodeID)
	}
	return ok
}

// submitAsync submits without blocking the caller on queue space.
func (o *Orchestrator) submitAsync(b *binding, episodeID int64) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.submit(b, episodeID)
	}()
}

// runEpisode executes one stage for one episode and returns the binding the
// episode should move to next, if any.
func (o *Orchestrator) runEpisode(ctx context.Context, b *binding, episodeID int64) *binding {
	ctx = services.WithEpisodeID(ctx, episodeID)
	ctx = services.WithStage(ctx, b.name)
	logger := logging.WithContext(ctx, o.logger)

	episode, err := o.store.GetEpisode(ctx, episodeID)
	if err != nil {
		logger.Error("load episode", logging.Error(err))
		return nil
	}
	if episode == nil {
		logger.Warn("episode vanished before stage ran")
		return nil
	}
	if episode.Status != b.resting && episode.Status != b.running {
		logger.Debug("episode no longer eligible",
			logging.String(logging.FieldStatus, string(episode.Status)))
		return nil
	}

	if episode.Status != b.running {
		episode.Status = b.running
		episode.ErrorMessage = ""
		if err := o.store.UpdateEpisode(ctx, episode); err != nil {
			logger.Error("mark stage running", logging.Error(err))
			return nil
		}
	}

	execErr := b.handler.Execute(ctx, episode)
	switch {
	case execErr == nil:
		episode.Status = b.success
		episode.ErrorMessage = ""
		if err := o.store.UpdateEpisode(ctx, episode); err != nil {
			logger.Error("record stage success", logging.Error(err))
			return nil
		}
		if b.next == nil {
			logger.Info("episode ready")
		}
		return b.next

	case services.IsPaused(execErr):
		// Leave the episode at detecting_ads; unpausing resubmits it.
		logger.Info("stage paused, episode parked")
		return nil

	case services.IsMissingPrerequisite(execErr):
		logger.Warn("missing prerequisite, resetting episode", logging.Error(execErr))
		episode.Status = b.resetStatus
		if b.resetStatus == store.StatusPending {
			episode.LocalAudioPath = ""
			episode.ProcessedAudioPath = ""
		}
		episode.ErrorMessage = ""
		if err := o.store.UpdateEpisode(ctx, episode); err != nil {
			logger.Error("reset episode", logging.Error(err))
			return nil
		}
		return b.resetNext

	case b.softFail:
		// Detection failures never block delivery; processing proceeds with
		// whatever segments are already stored.
		logger.Warn("stage failed, continuing with stored segments", logging.Error(execErr))
		episode.Status = b.success
		episode.ErrorMessage = ""
		if err := o.store.UpdateEpisode(ctx, episode); err != nil {
			logger.Error("record stage result", logging.Error(err))
			return nil
		}
		return b.next

	default:
		logger.Error("stage failed", logging.Error(execErr))
		episode.SetError(execErr.Error())
		if err := o.store.UpdateEpisode(ctx, episode); err != nil {
			logger.Error("record stage failure", logging.Error(err))
		}
		return nil
	}
}

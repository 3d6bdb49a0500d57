package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"podpirate/internal/logging"
	"podpirate/internal/services"
	"podpirate/internal/stage"
	"podpirate/internal/store"
)

const pausedConfigKey = "ai_paused"

// Resumer resubmits episodes parked while detection was paused.
type Resumer interface {
	ResumeStuck(ctx context.Context) error
}

// PauseController gates ad detection. The pause flag persists across daemon
// restarts, and unpausing requires the model services to pass a health check.
type PauseController struct {
	store  *store.Store
	logger *slog.Logger
	paused atomic.Bool

	mu      sync.Mutex
	checks  []func(context.Context) stage.Health
	resumer Resumer
}

// NewPauseController loads the persisted pause flag from the store.
func NewPauseController(ctx context.Context, st *store.Store, logger *slog.Logger) (*PauseController, error) {
	p := &PauseController{
		store:  st,
		logger: logging.NewComponentLogger(logger, "pause"),
	}
	value, err := st.GetConfigValue(ctx, pausedConfigKey)
	if err != nil {
		return nil, err
	}
	p.paused.Store(value == "true")
	return p, nil
}

// Paused reports whether detection is currently paused.
func (p *PauseController) Paused() bool {
	return p.paused.Load()
}

// AddHealthChecks registers checks that must pass before unpausing.
func (p *PauseController) AddHealthChecks(checks ...func(context.Context) stage.Health) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks = append(p.checks, checks...)
}

// SetResumer wires the component that resubmits parked episodes. Set after
// construction to break the cycle with the orchestrator.
func (p *PauseController) SetResumer(resumer Resumer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumer = resumer
}

// Pause stops new detection work and persists the flag.
func (p *PauseController) Pause(ctx context.Context) error {
	if err := p.store.SetConfigValue(ctx, pausedConfigKey, "true"); err != nil {
		return err
	}
	p.paused.Store(true)
	p.logger.Info("ad detection paused")
	return nil
}

// Resume verifies the model services are reachable, clears the flag, and
// resubmits parked episodes.
func (p *PauseController) Resume(ctx context.Context) error {
	p.mu.Lock()
	checks := make([]func(context.Context) stage.Health, len(p.checks))
	copy(checks, p.checks)
	resumer := p.resumer
	p.mu.Unlock()

	for _, check := range checks {
		if health := check(ctx); !health.Ready {
			return services.Wrap(services.ErrExternalService, "pause", "resume",
				health.Name+" unhealthy: "+health.Detail, nil)
		}
	}

	if err := p.store.SetConfigValue(ctx, pausedConfigKey, "false"); err != nil {
		return err
	}
	p.paused.Store(false)
	p.logger.Info("ad detection resumed")

	if resumer != nil {
		if err := resumer.ResumeStuck(ctx); err != nil {
			p.logger.Warn("resume sweep failed", logging.Error(err))
		}
	}
	return nil
}

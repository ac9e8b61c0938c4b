package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ProcessorConfig holds configuration for the background processor
type ProcessorConfig struct {
	// PollInterval is how often due notifications are dispatched (default: 30s)
	PollInterval time.Duration

	// CleanupInterval is how often expired sessions are purged (default: 1h)
	CleanupInterval time.Duration
}

// DefaultProcessorConfig returns sensible defaults
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:    30 * time.Second,
		CleanupInterval: 1 * time.Hour,
	}
}

// Processor runs the periodic jobs of the worker: notification dispatch and
// session cleanup.
type Processor struct {
	scheduler *NotificationScheduler
	auth      *AuthService
	config    ProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewProcessor creates a processor. auth may be nil to skip session cleanup.
func NewProcessor(scheduler *NotificationScheduler, auth *AuthService, config ProcessorConfig) *Processor {
	def := DefaultProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	return &Processor{
		scheduler: scheduler,
		auth:      auth,
		config:    config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Processor started",
		"poll_interval", p.config.PollInterval,
		"cleanup_interval", p.config.CleanupInterval)
	return nil
}

// Stop signals the loop and waits for the current cycle to finish.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Dispatch immediately on startup so nothing waits a full interval.
	p.dispatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.dispatch(ctx)
		case <-cleanupTicker.C:
			p.cleanup(ctx)
		}
	}
}

func (p *Processor) dispatch(ctx context.Context) {
	if p.scheduler == nil {
		return
	}
	if _, err := p.scheduler.Dispatch(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to dispatch notifications", "error", err)
	}
}

func (p *Processor) cleanup(ctx context.Context) {
	if p.auth == nil {
		return
	}
	if _, err := p.auth.PurgeExpiredSessions(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to purge expired sessions", "error", err)
	}
}

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Syncer is the unit of work run on every tick.
type Syncer interface {
	SyncNow(ctx context.Context) error
}

// ProcessorConfig holds configuration for the periodic processor
type ProcessorConfig struct {
	// Interval between reconciliations (default: 5m)
	Interval time.Duration

	// SyncOnStart runs one reconciliation before the first tick (default: true)
	SyncOnStart bool
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		Interval:    5 * time.Minute,
		SyncOnStart: true,
	}
}

// Processor rewrites the report on a fixed interval. It backs up the AMQP
// consumer in case messages are lost or the worker was down.
type Processor struct {
	syncer Syncer
	config ProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewProcessor(syncer Syncer, config ProcessorConfig) *Processor {
	if config.Interval <= 0 {
		config.Interval = DefaultProcessorConfig().Interval
	}
	return &Processor{syncer: syncer, config: config}
}

// Start begins the processing loop. Returns an error if already running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("report processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Report processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for the loop to exit.
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
		slog.InfoContext(ctx, "Report processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Report processor stop timed out")
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

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.SyncOnStart {
		p.tick(ctx)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Processor) tick(ctx context.Context) {
	if err := p.syncer.SyncNow(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic report sync failed", "error", err)
	}
}

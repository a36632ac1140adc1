package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/venom-hub/internal/config"
)

// Refresher copies the remote collections into the local store
type Refresher interface {
	RefreshLocal(ctx context.Context) error
}

// MirrorWorker keeps the local fallback warm by periodically copying the
// remote collections into it. It never writes to the remote.
type MirrorWorker struct {
	refresher Refresher
	config    *config.MirrorConfig
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewMirrorWorker creates a new mirror worker
func NewMirrorWorker(refresher Refresher, cfg *config.MirrorConfig, logger *slog.Logger) *MirrorWorker {
	return &MirrorWorker{
		refresher: refresher,
		config:    cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start refreshes once and then every interval in the background
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("mirror worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh
func (w *MirrorWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("mirror worker stopped")
	return nil
}

func (w *MirrorWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single refresh
func (w *MirrorWorker) RunOnce(ctx context.Context) {
	start := time.Now()
	if err := w.refresher.RefreshLocal(ctx); err != nil {
		w.logger.Warn("mirror refresh failed", "error", err)
		return
	}
	w.logger.Info("mirror refresh completed", "duration", time.Since(start))
}

// IsRunning returns whether the worker is currently running
func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

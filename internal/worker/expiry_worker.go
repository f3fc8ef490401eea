// Package worker holds the background sweeps: expiring lapsed holds and
// completing departed tours.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wavetours/booking-engine/internal/logger"
	"github.com/wavetours/booking-engine/internal/service"
)

// ExpiryWorkerConfig contains sweep tunables.
type ExpiryWorkerConfig struct {
	// Interval between sweeps.
	Interval time.Duration
	// BatchSize caps how many bookings one sweep touches per category.
	BatchSize int
}

// DefaultExpiryWorkerConfig returns the standard sweep settings.
func DefaultExpiryWorkerConfig() *ExpiryWorkerConfig {
	return &ExpiryWorkerConfig{
		Interval:  30 * time.Second,
		BatchSize: 100,
	}
}

// ExpiryWorker periodically expires pending bookings whose hold lapsed
// (returning their seats) and completes confirmed bookings whose tour
// departed.
type ExpiryWorker struct {
	bookings *service.BookingService
	cfg      *ExpiryWorkerConfig
	log      *logger.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewExpiryWorker creates a worker. Start must be called to begin sweeping.
func NewExpiryWorker(bookings *service.BookingService, cfg *ExpiryWorkerConfig) *ExpiryWorker {
	if cfg == nil {
		cfg = DefaultExpiryWorkerConfig()
	}
	return &ExpiryWorker{
		bookings: bookings,
		cfg:      cfg,
		log:      logger.Get(),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info("Expiry worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("batch_size", w.cfg.BatchSize))
}

// Stop signals the loop to finish and waits for the in-flight sweep.
func (w *ExpiryWorker) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *ExpiryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass of both sweeps. Exported so tests and the worker
// binary can trigger it directly.
func (w *ExpiryWorker) Sweep(ctx context.Context) {
	expired, err := w.bookings.ExpireDue(ctx, w.cfg.BatchSize)
	if err != nil {
		w.log.Error("Expiry sweep failed", zap.Error(err))
	} else if expired > 0 {
		w.log.Info("Expired lapsed holds", zap.Int("count", expired))
	}

	completed, err := w.bookings.CompleteDeparted(ctx, w.cfg.BatchSize)
	if err != nil {
		w.log.Error("Completion sweep failed", zap.Error(err))
	} else if completed > 0 {
		w.log.Info("Completed departed bookings", zap.Int("count", completed))
	}
}

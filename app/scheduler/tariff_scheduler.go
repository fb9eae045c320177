// Package scheduler drives the periodic tariff sync and snapshot export tasks.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	businessflow "github.com/wbtools/tariffs-keeper/business_flow"
)

// Task names reported by Status and /status.
const (
	TaskSync   = "fetch_tariffs"
	TaskExport = "export_sheets"
)

// TariffScheduler runs the sync and export flows on two independent
// tickers. The tasks are deliberately uncoordinated: storage upserts are
// idempotent per natural key and snapshot reads never observe torn rows,
// so an export may interleave with an in-flight sync.
type TariffScheduler struct {
	syncFlow   businessflow.TariffSyncFlow
	exportFlow businessflow.TariffExportFlow
	logger     *log.Logger

	syncInterval   time.Duration
	exportInterval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewTariffScheduler creates the scheduler; intervals must be positive.
func NewTariffScheduler(
	syncFlow businessflow.TariffSyncFlow,
	exportFlow businessflow.TariffExportFlow,
	syncInterval, exportInterval time.Duration,
	logger *log.Logger,
) *TariffScheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &TariffScheduler{
		syncFlow:       syncFlow,
		exportFlow:     exportFlow,
		logger:         logger,
		syncInterval:   syncInterval,
		exportInterval: exportInterval,
	}
}

// Start launches both task loops and returns a stop function. Each task
// runs once immediately so a fresh deployment has data and sheets before
// the first tick. Calling Start on a running scheduler is a no-op.
func (s *TariffScheduler) Start(parent context.Context) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return s.Stop
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.running = true

	go s.runLoop(ctx, TaskSync, s.syncInterval, s.runSync)
	go s.runLoop(ctx, TaskExport, s.exportInterval, s.runExport)

	s.logger.Printf("scheduler: started (sync every %s, export every %s)", s.syncInterval, s.exportInterval)
	return s.Stop
}

// Stop cancels both task loops.
func (s *TariffScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *TariffScheduler) stopLocked() {
	if !s.running {
		return
	}
	s.cancel()
	s.cancel = nil
	s.running = false
	s.logger.Printf("scheduler: stopped")
}

// IsRunning reports whether the task loops are active.
func (s *TariffScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status reports per-task state for the operational surface.
func (s *TariffScheduler) Status() map[string]string {
	state := "stopped"
	if s.IsRunning() {
		state = "running"
	}
	return map[string]string{
		TaskSync:   state,
		TaskExport: state,
	}
}

func (s *TariffScheduler) runLoop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

func (s *TariffScheduler) runSync(ctx context.Context) {
	if s.syncFlow.SyncOnce(ctx) {
		s.logger.Printf("scheduler: %s completed", TaskSync)
	} else {
		s.logger.Printf("scheduler: %s produced no data", TaskSync)
	}
}

func (s *TariffScheduler) runExport(ctx context.Context) {
	if err := s.exportFlow.ExportLatest(ctx); err != nil {
		s.logger.Printf("scheduler: %s failed: %v", TaskExport, err)
		return
	}
	s.logger.Printf("scheduler: %s completed", TaskExport)
}

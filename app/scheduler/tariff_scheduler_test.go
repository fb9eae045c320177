package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSyncFlow struct {
	runs atomic.Int64
}

func (f *countingSyncFlow) SyncOnce(ctx context.Context) bool {
	f.runs.Add(1)
	return true
}

type countingExportFlow struct {
	runs atomic.Int64
}

func (f *countingExportFlow) ExportLatest(ctx context.Context) error {
	f.runs.Add(1)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTariffScheduler(t *testing.T) {
	t.Run("RunsBothTasksImmediately", func(t *testing.T) {
		syncFlow := &countingSyncFlow{}
		exportFlow := &countingExportFlow{}
		s := NewTariffScheduler(syncFlow, exportFlow, time.Hour, time.Hour, nil)

		stop := s.Start(context.Background())
		defer stop()

		waitFor(t, func() bool { return syncFlow.runs.Load() >= 1 && exportFlow.runs.Load() >= 1 })
		assert.True(t, s.IsRunning())
	})

	t.Run("TicksIndependently", func(t *testing.T) {
		syncFlow := &countingSyncFlow{}
		exportFlow := &countingExportFlow{}
		s := NewTariffScheduler(syncFlow, exportFlow, 10*time.Millisecond, time.Hour, nil)

		stop := s.Start(context.Background())
		defer stop()

		waitFor(t, func() bool { return syncFlow.runs.Load() >= 3 })
		assert.Equal(t, int64(1), exportFlow.runs.Load())
	})

	t.Run("StopHaltsTasks", func(t *testing.T) {
		syncFlow := &countingSyncFlow{}
		exportFlow := &countingExportFlow{}
		s := NewTariffScheduler(syncFlow, exportFlow, 10*time.Millisecond, 10*time.Millisecond, nil)

		stop := s.Start(context.Background())
		waitFor(t, func() bool { return syncFlow.runs.Load() >= 1 })

		stop()
		require.False(t, s.IsRunning())

		settled := syncFlow.runs.Load()
		time.Sleep(50 * time.Millisecond)
		assert.LessOrEqual(t, syncFlow.runs.Load(), settled+1)
	})

	t.Run("StartWhileRunningIsNoOp", func(t *testing.T) {
		syncFlow := &countingSyncFlow{}
		exportFlow := &countingExportFlow{}
		s := NewTariffScheduler(syncFlow, exportFlow, time.Hour, time.Hour, nil)

		stop := s.Start(context.Background())
		defer stop()
		s.Start(context.Background())

		waitFor(t, func() bool { return syncFlow.runs.Load() >= 1 })
		// A second Start must not spawn a second pair of loops.
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, int64(1), syncFlow.runs.Load())
	})

	t.Run("ParentContextCancelStops", func(t *testing.T) {
		syncFlow := &countingSyncFlow{}
		exportFlow := &countingExportFlow{}
		s := NewTariffScheduler(syncFlow, exportFlow, 10*time.Millisecond, time.Hour, nil)

		ctx, cancel := context.WithCancel(context.Background())
		s.Start(ctx)
		waitFor(t, func() bool { return syncFlow.runs.Load() >= 1 })

		cancel()
		settled := syncFlow.runs.Load()
		time.Sleep(50 * time.Millisecond)
		assert.LessOrEqual(t, syncFlow.runs.Load(), settled+1)
		s.Stop()
	})

	t.Run("Status", func(t *testing.T) {
		s := NewTariffScheduler(&countingSyncFlow{}, &countingExportFlow{}, time.Hour, time.Hour, nil)

		status := s.Status()
		assert.Equal(t, "stopped", status[TaskSync])
		assert.Equal(t, "stopped", status[TaskExport])

		stop := s.Start(context.Background())
		status = s.Status()
		assert.Equal(t, "running", status[TaskSync])
		assert.Equal(t, "running", status[TaskExport])

		stop()
		assert.Equal(t, "stopped", s.Status()[TaskSync])
	})
}

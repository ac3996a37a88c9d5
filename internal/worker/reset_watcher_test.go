package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/DropTracker_Go/internal/dropwindow"
	"github.com/osse101/DropTracker_Go/internal/testing/leaktest"
)

// justBeforeReset returns a clock pinned d before a weekly reset.
func justBeforeReset(d time.Duration) func() time.Time {
	reset := dropwindow.NextReset(time.Date(2024, 10, 14, 12, 0, 0, 0, time.UTC))
	return func() time.Time { return reset.Add(-d) }
}

func TestResetWatcher_RunsAfterEachReset(t *testing.T) {
	leaktest.Verify(t)

	var runs atomic.Int32
	w := NewResetWatcher(func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, 0)
	w.now = justBeforeReset(10 * time.Millisecond)

	w.Start(context.Background())

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, w.Shutdown(context.Background()))
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no run after shutdown")

	select {
	case <-w.Done():
	default:
		t.Fatal("Done not closed after shutdown")
	}
}

func TestResetWatcher_FailedRunIsRescheduled(t *testing.T) {
	var runs atomic.Int32
	w := NewResetWatcher(func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("pipeline failed")
	}, 0)
	w.now = justBeforeReset(5 * time.Millisecond)

	w.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
}

func TestResetWatcher_ShutdownCancelsPendingRun(t *testing.T) {
	leaktest.Verify(t)

	var runs atomic.Int32
	w := NewResetWatcher(func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, time.Hour)

	w.Start(context.Background())
	require.NoError(t, w.Shutdown(context.Background()))
	require.NoError(t, w.Shutdown(context.Background()))

	assert.Zero(t, runs.Load())
}

func TestResetWatcher_UntilNext(t *testing.T) {
	w := NewResetWatcher(func(context.Context) error { return nil }, 5*time.Minute)
	w.now = justBeforeReset(time.Hour)

	next, d := w.untilNext()

	assert.Equal(t, time.Wednesday, next.Weekday())
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 5, next.Minute())
	assert.Equal(t, time.Hour+5*time.Minute, d)
}

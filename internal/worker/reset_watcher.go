package worker

import (
	"context"
	"time"

	"github.com/osse101/DropTracker_Go/internal/dropwindow"
	"github.com/osse101/DropTracker_Go/internal/logger"
)

const resetWatcherName = "reset watcher"

// ResetWatcher runs a function shortly after every weekly drop reset.
type ResetWatcher struct {
	BaseWorker

	run   func(ctx context.Context) error
	delay time.Duration
	now   func() time.Time
	ctx   context.Context
}

// NewResetWatcher creates a watcher calling run delay after each reset.
func NewResetWatcher(run func(ctx context.Context) error, delay time.Duration) *ResetWatcher {
	w := &ResetWatcher{run: run, delay: delay, now: time.Now}
	w.init()
	return w
}

// Start schedules the first run. ctx is passed to every run.
func (w *ResetWatcher) Start(ctx context.Context) {
	w.ctx = ctx
	w.scheduleNext()
}

// Done is closed once Shutdown begins.
func (w *ResetWatcher) Done() <-chan struct{} { return w.shutdown }

func (w *ResetWatcher) untilNext() (time.Time, time.Duration) {
	now := w.now().UTC()
	next := dropwindow.NextReset(now).Add(w.delay)
	if !next.After(now) {
		next = dropwindow.NextReset(next.Add(time.Second)).Add(w.delay)
	}
	return next, next.Sub(now)
}

func (w *ResetWatcher) scheduleNext() {
	next, d := w.untilNext()
	if _, ok := w.schedule(d, w.execute); ok {
		logger.FromContext(w.ctx).Info(LogMsgResetScheduled, "next_run", next.Format(time.RFC3339), "duration", d.String())
	}
}

func (w *ResetWatcher) execute() {
	log := logger.FromContext(w.ctx)
	log.Info(LogMsgResetRunStarting)

	if err := w.run(w.ctx); err != nil {
		log.Error(LogMsgResetRunFailed, "error", err)
	} else {
		log.Info(LogMsgResetRunCompleted)
	}

	w.scheduleNext()
}

// Shutdown cancels the pending run and waits for an in-flight one.
func (w *ResetWatcher) Shutdown(ctx context.Context) error {
	return w.shutdownInternal(ctx, resetWatcherName)
}

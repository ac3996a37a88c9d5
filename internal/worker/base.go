package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/DropTracker_Go/internal/logger"
)

// BaseWorker tracks pending timers and in-flight executions for scheduled workers.
type BaseWorker struct {
	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	shutdown chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

func (w *BaseWorker) init() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timers == nil {
		w.timers = make(map[uuid.UUID]*time.Timer)
	}
	if w.shutdown == nil {
		w.shutdown = make(chan struct{})
	}
}

// schedule runs fn after d unless the worker shuts down first. It reports false
// once shutdown has begun.
func (w *BaseWorker) schedule(d time.Duration, fn func()) (uuid.UUID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return uuid.Nil, false
	}

	id := uuid.New()
	w.wg.Add(1)
	w.timers[id] = time.AfterFunc(d, func() {
		defer w.wg.Done()
		w.removeTimer(id)
		select {
		case <-w.shutdown:
			return
		default:
		}
		fn()
	})
	return id, true
}

func (w *BaseWorker) removeTimer(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.timers, id)
}

func (w *BaseWorker) shutdownInternal(ctx context.Context, workerName string) error {
	log := logger.FromContext(ctx)
	log.Info(LogMsgWorkerShuttingDown, "worker", workerName)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.shutdown)
	for id, timer := range w.timers {
		// A stopped timer never runs its func, so release its slot here.
		if timer.Stop() {
			w.wg.Done()
		}
		log.Debug(LogMsgWorkerTimerCancelled, "worker", workerName, "timer_id", id)
	}
	w.timers = make(map[uuid.UUID]*time.Timer)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info(LogMsgWorkerShutdownComplete, "worker", workerName)
		return nil
	case <-ctx.Done():
		log.Warn(LogMsgWorkerShutdownTimeout, "worker", workerName)
		return ctx.Err()
	}
}

package worker

import (
	"context"
	"sync"

	"github.com/osse101/DropTracker_Go/internal/logger"
)

// Job represents a task to be executed by a worker
type Job interface {
	Process(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Process(ctx context.Context) error { return f(ctx) }

// Pool runs jobs on a fixed number of goroutines.
type Pool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPool creates a new worker pool
func NewPool(workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
	}
}

// Start starts the workers. Jobs receive ctx.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobQueue {
		if err := job.Process(ctx); err != nil {
			logger.FromContext(ctx).Error(LogMsgWorkerJobFailed, "error", err)
		}
	}
}

// Enqueue adds a job to the queue, blocking while it is full.
func (p *Pool) Enqueue(job Job) {
	p.jobQueue <- job
}

// Stop closes the queue and waits for every queued job to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.jobQueue) })
	p.wg.Wait()
}

// Run executes jobs with at most workers running at once and returns when all
// of them have finished.
func Run(ctx context.Context, workers int, jobs ...Job) {
	if len(jobs) == 0 {
		return
	}
	p := NewPool(min(workers, len(jobs)), len(jobs))
	p.Start(ctx)
	for _, job := range jobs {
		p.Enqueue(job)
	}
	p.Stop()
}

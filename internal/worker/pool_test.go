package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osse101/DropTracker_Go/internal/testing/leaktest"
)

type testJob struct {
	executed *int32
}

func (j *testJob) Process(ctx context.Context) error {
	atomic.AddInt32(j.executed, 1)
	return nil
}

func TestPool(t *testing.T) {
	leaktest.Verify(t)

	var executed int32
	pool := NewPool(TestWorkerCount, TestQueueSize)
	pool.Start(context.Background())

	job := &testJob{executed: &executed}
	pool.Enqueue(job)
	pool.Enqueue(job)

	pool.Stop()

	assert.Equal(t, int32(TestExpectedJobCount), atomic.LoadInt32(&executed))
}

func TestRun_IsABarrier(t *testing.T) {
	leaktest.Verify(t)

	var finished atomic.Int32
	jobs := make([]Job, 0, 5)
	for i := 0; i < 5; i++ {
		delay := time.Duration(i*5) * time.Millisecond
		jobs = append(jobs, JobFunc(func(ctx context.Context) error {
			time.Sleep(delay)
			finished.Add(1)
			return nil
		}))
	}

	Run(context.Background(), 3, jobs...)

	assert.Equal(t, int32(5), finished.Load())
}

func TestRun_BoundsParallelism(t *testing.T) {
	var running, peak atomic.Int32
	jobs := make([]Job, 0, 8)
	for i := 0; i < 8; i++ {
		jobs = append(jobs, JobFunc(func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}

	Run(context.Background(), 2, jobs...)

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), running.Load())
}

func TestRun_FailingJobDoesNotStopOthers(t *testing.T) {
	var ok atomic.Int32
	Run(context.Background(), 2,
		JobFunc(func(ctx context.Context) error { return errors.New("boom") }),
		JobFunc(func(ctx context.Context) error { ok.Add(1); return nil }),
		JobFunc(func(ctx context.Context) error { ok.Add(1); return nil }),
	)
	assert.Equal(t, int32(2), ok.Load())
}

func TestRun_NoJobs(t *testing.T) {
	Run(context.Background(), 4)
}

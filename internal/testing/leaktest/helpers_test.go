package leaktest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingTB captures failures instead of failing the real test.
type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(string, ...any) { r.failed = true }

func TestCheck_NoLeak(t *testing.T) {
	CheckNoGoroutineLeak(t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				time.Sleep(time.Millisecond)
			}()
		}
		wg.Wait()
	})
}

func TestCheck_WaitsForStragglers(t *testing.T) {
	g := NewGoroutineChecker(t)

	go func() { time.Sleep(50 * time.Millisecond) }()

	g.Check(0)
}

func TestCheck_ReportsLeak(t *testing.T) {
	rec := &recordingTB{TB: t}
	g := NewGoroutineChecker(rec)
	g.settle = 50 * time.Millisecond

	done := make(chan struct{})
	go func() { <-done }()
	defer close(done)

	g.Check(0)
	assert.True(t, rec.failed)
}

func TestCheck_Tolerance(t *testing.T) {
	rec := &recordingTB{TB: t}
	g := NewGoroutineChecker(rec)
	g.settle = 50 * time.Millisecond

	done := make(chan struct{})
	go func() { <-done }()
	defer close(done)

	g.Check(1)
	assert.False(t, rec.failed)
}

func TestDumpStacks_OmitsCaller(t *testing.T) {
	out := dumpStacks()
	assert.Contains(t, out, "goroutine ")
	assert.NotContains(t, out, "leaktest.dumpStacks")
}

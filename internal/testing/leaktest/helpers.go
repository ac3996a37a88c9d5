// Package leaktest fails tests that leave goroutines running.
package leaktest

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

const (
	// DefaultSettle is how long a check waits for goroutines to wind down.
	DefaultSettle = 2 * time.Second

	pollInterval = 10 * time.Millisecond
)

// GoroutineChecker compares the goroutine count against a baseline taken at creation.
type GoroutineChecker struct {
	t      testing.TB
	before int
	settle time.Duration
}

// NewGoroutineChecker records the current goroutine count.
func NewGoroutineChecker(t testing.TB) *GoroutineChecker {
	t.Helper()
	runtime.Gosched()
	return &GoroutineChecker{t: t, before: runtime.NumGoroutine(), settle: DefaultSettle}
}

// Check fails the test if more than tolerance goroutines are still running
// once the settle period has passed. It returns as soon as the count drops.
func (g *GoroutineChecker) Check(tolerance int) {
	g.t.Helper()

	deadline := time.Now().Add(g.settle)
	for {
		after := runtime.NumGoroutine()
		if after-g.before <= tolerance {
			return
		}
		if time.Now().After(deadline) {
			g.t.Errorf("goroutine leak: before=%d after=%d tolerance=%d\n%s",
				g.before, after, tolerance, dumpStacks())
			return
		}
		time.Sleep(pollInterval)
	}
}

// Verify checks for leaked goroutines when the test and its cleanups finish.
// Call it first so that it runs after every other cleanup.
func Verify(t testing.TB) {
	t.Helper()
	g := NewGoroutineChecker(t)
	t.Cleanup(func() { g.Check(0) })
}

// CheckNoGoroutineLeak runs fn and fails the test if it leaves goroutines behind.
func CheckNoGoroutineLeak(t testing.TB, fn func()) {
	t.Helper()
	g := NewGoroutineChecker(t)
	fn()
	g.Check(0)
}

func dumpStacks() string {
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, true)
	stacks := strings.Split(string(buf[:n]), "\n\n")
	kept := stacks[:0]
	for _, s := range stacks {
		if !strings.Contains(s, "leaktest.dumpStacks") {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

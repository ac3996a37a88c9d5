// Package progress reports per-task status lines. It is purely observational.
package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/osse101/DropTracker_Go/internal/logger"
)

// Task is one tracked unit of work.
type Task interface {
	Describe(text string)
	SetResult(text string)
}

// Sink creates tasks.
type Sink interface {
	AddTask(label string) Task
}

// LogSink writes task updates to the structured logger.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a sink logging through the context logger.
func NewLogSink(ctx context.Context) *LogSink {
	return &LogSink{log: logger.FromContext(ctx)}
}

// AddTask implements Sink
func (s *LogSink) AddTask(label string) Task {
	return &logTask{log: s.log.With("task", label)}
}

type logTask struct {
	log *slog.Logger
}

func (t *logTask) Describe(text string) {
	t.log.Info(LogMsgTaskProgress, "status", text)
}

func (t *logTask) SetResult(text string) {
	t.log.Info(LogMsgTaskDone, "result", text)
}

// Nop discards everything.
type Nop struct{}

func (Nop) AddTask(string) Task { return nopTask{} }

type nopTask struct{}

func (nopTask) Describe(string)  {}
func (nopTask) SetResult(string) {}

// Recorder keeps every update in memory, for tests and the final report.
type Recorder struct {
	mu    sync.Mutex
	tasks []*RecordedTask
}

// AddTask implements Sink
func (r *Recorder) AddTask(label string) Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &RecordedTask{Label: label}
	r.tasks = append(r.tasks, t)
	return t
}

// Tasks returns the tasks created so far.
func (r *Recorder) Tasks() []*RecordedTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*RecordedTask(nil), r.tasks...)
}

// RecordedTask is a Task that remembers its updates.
type RecordedTask struct {
	Label string

	mu           sync.Mutex
	descriptions []string
	result       string
}

func (t *RecordedTask) Describe(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.descriptions = append(t.descriptions, text)
}

func (t *RecordedTask) SetResult(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result = text
}

// Descriptions returns every Describe call in order.
func (t *RecordedTask) Descriptions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.descriptions...)
}

// Result returns the last SetResult text.
func (t *RecordedTask) Result() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

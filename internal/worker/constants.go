package worker

// ============================================================================
// Log Messages - Worker Pool
// ============================================================================

// LogMsgWorkerJobFailed is logged when a worker fails to process a job
const LogMsgWorkerJobFailed = "Worker job failed"

// ============================================================================
// Log Messages - Scheduled Workers
// ============================================================================

const (
	LogMsgWorkerShuttingDown     = "Shutting down worker"
	LogMsgWorkerTimerCancelled   = "Cancelled pending worker execution"
	LogMsgWorkerShutdownComplete = "Worker shutdown complete"
	LogMsgWorkerShutdownTimeout  = "Worker shutdown timeout"
)

// Log messages for the reset watcher
const (
	LogMsgResetScheduled    = "Next drop reset run scheduled"
	LogMsgResetRunStarting  = "Drop reset run starting"
	LogMsgResetRunCompleted = "Drop reset run completed"
	LogMsgResetRunFailed    = "Drop reset run failed"
)

// ============================================================================
// Test Configuration
// ============================================================================

// Test pool configuration values used in pool_test.go
const (
	TestWorkerCount      = 2
	TestQueueSize        = 10
	TestExpectedJobCount = 2
)

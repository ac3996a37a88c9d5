package progress

const (
	LogMsgTaskProgress = "Task progress"
	LogMsgTaskDone     = "Task finished"
)

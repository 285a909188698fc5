package jobscheduler

import "time"

type RunStatus string

const (
	StatusSent      RunStatus = "sent"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusSkipped   RunStatus = "skipped"
)

const (
	JobFastPoll      = "fast_poll"
	JobRecoverySweep = "recovery_sweep"
)

// RunEvent records one reconciliation pass or one job dispatch.
type RunEvent struct {
	RunID        string
	JobName      string
	Status       RunStatus
	Scoped       int
	Applied      int
	Finished     int
	Settled      int
	Failed       int
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}

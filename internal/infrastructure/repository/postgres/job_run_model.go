package postgres

import "time"

type jobRunTableModel struct {
	RunID        string    `db:"run_id"`
	JobName      string    `db:"job_name"`
	Status       string    `db:"status"`
	Scoped       int       `db:"scoped"`
	Applied      int       `db:"applied"`
	Finished     int       `db:"finished"`
	Settled      int       `db:"settled"`
	Failed       int       `db:"failed"`
	Payload      string    `db:"payload"`
	ErrorMessage *string   `db:"error_message"`
	TraceID      *string   `db:"trace_id"`
	SpanID       *string   `db:"span_id"`
	OccurredAt   time.Time `db:"occurred_at"`
}

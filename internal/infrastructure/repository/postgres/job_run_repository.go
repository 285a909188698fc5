package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/predictor-league/internal/platform/querybuilder"
)

type JobRunRepository struct {
	db *sqlx.DB
}

func NewJobRunRepository(db *sqlx.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

var _ jobscheduler.Repository = (*JobRunRepository)(nil)

// UpsertEvent keeps one row per run id; a later status overwrites counts and clears the
// error unless the new status is failed.
func (r *JobRunRepository) UpsertEvent(ctx context.Context, event jobscheduler.RunEvent) error {
	runID := strings.TrimSpace(event.RunID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	jobName := strings.TrimSpace(event.JobName)
	if jobName == "" {
		jobName = "unknown"
	}
	occurredAt := event.OccurredAt.UTC()
	if event.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payloadJSON, err := marshalPayload(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal job run payload: %w", err)
	}

	model := jobRunTableModel{
		RunID:        runID,
		JobName:      jobName,
		Status:       string(event.Status),
		Scoped:       event.Scoped,
		Applied:      event.Applied,
		Finished:     event.Finished,
		Settled:      event.Settled,
		Failed:       event.Failed,
		Payload:      payloadJSON,
		ErrorMessage: optionalString(event.ErrorMessage),
		TraceID:      optionalString(event.TraceID),
		SpanID:       optionalString(event.SpanID),
		OccurredAt:   occurredAt,
	}

	query, args, err := qb.InsertModel("job_runs", model, `ON CONFLICT (run_id)
DO UPDATE SET
    job_name = EXCLUDED.job_name,
    status = EXCLUDED.status,
    scoped = EXCLUDED.scoped,
    applied = EXCLUDED.applied,
    finished = EXCLUDED.finished,
    settled = EXCLUDED.settled,
    failed = EXCLUDED.failed,
    payload = CASE
        WHEN EXCLUDED.payload = '{}'::jsonb THEN job_runs.payload
        ELSE EXCLUDED.payload
    END,
    error_message = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.error_message
        ELSE NULL
    END,
    trace_id = COALESCE(EXCLUDED.trace_id, job_runs.trace_id),
    span_id = COALESCE(EXCLUDED.span_id, job_runs.span_id),
    occurred_at = EXCLUDED.occurred_at`)
	if err != nil {
		return fmt.Errorf("build upsert job run query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job run run_id=%s status=%s: %w", runID, event.Status, err)
	}
	return nil
}

func (r *JobRunRepository) ListRecent(ctx context.Context, jobName string, limit int) ([]jobscheduler.RunEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	builder := qb.Select("run_id", "job_name", "status", "scoped", "applied", "finished", "settled", "failed", "payload::text AS payload", "error_message", "trace_id", "span_id", "occurred_at").
		From("job_runs").
		OrderBy("occurred_at DESC").
		Limit(limit)
	if strings.TrimSpace(jobName) != "" {
		builder.Where(qb.Eq("job_name", strings.TrimSpace(jobName)))
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list job runs query: %w", err)
	}

	var rows []jobRunTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}

	out := make([]jobscheduler.RunEvent, 0, len(rows))
	for _, row := range rows {
		event := jobscheduler.RunEvent{
			RunID:      row.RunID,
			JobName:    row.JobName,
			Status:     jobscheduler.RunStatus(row.Status),
			Scoped:     row.Scoped,
			Applied:    row.Applied,
			Finished:   row.Finished,
			Settled:    row.Settled,
			Failed:     row.Failed,
			OccurredAt: row.OccurredAt.UTC(),
		}
		if row.ErrorMessage != nil {
			event.ErrorMessage = *row.ErrorMessage
		}
		if row.TraceID != nil {
			event.TraceID = *row.TraceID
		}
		if row.SpanID != nil {
			event.SpanID = *row.SpanID
		}
		if row.Payload != "" && row.Payload != "{}" {
			payload := map[string]any{}
			if err := sonic.UnmarshalString(row.Payload, &payload); err == nil {
				event.Payload = payload
			}
		}
		out = append(out, event)
	}
	return out, nil
}

func marshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	return sonic.MarshalString(payload)
}

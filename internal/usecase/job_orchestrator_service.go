package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"go.opentelemetry.io/otel/trace"
)

const (
	JobPathFastPoll      = "/v1/internal/jobs/poll"
	JobPathRecoverySweep = "/v1/internal/jobs/sweep"
)

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type JobOrchestratorConfig struct {
	PollInterval  time.Duration
	SweepInterval time.Duration
}

type JobInput struct {
	DispatchID string
	// Chain re-enqueues the next run of the same job after this one.
	Chain bool
}

type JobResult struct {
	Pass             PassReport `json:"pass"`
	QueuedCount      int        `json:"queued_count"`
	QueuedOperations []string   `json:"queued_operations"`
}

// JobOrchestratorService runs reconciliation passes delivered as queued HTTP jobs and
// schedules the next delivery, as an alternative to the in-process Scheduler.
type JobOrchestratorService struct {
	recon        *ReconciliationService
	queue        JobQueue
	dispatchRepo jobscheduler.Repository
	cfg          JobOrchestratorConfig
	logger       *logging.Logger
	now          func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewJobOrchestratorService(
	recon *ReconciliationService,
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg JobOrchestratorConfig,
	logger *logging.Logger,
) *JobOrchestratorService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}

	return &JobOrchestratorService{
		recon:        recon,
		queue:        queue,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *JobOrchestratorService) RunFastPoll(ctx context.Context, input JobInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.RunFastPoll")
	defer span.End()

	now := s.now().UTC()
	pass, err := s.recon.RunFastPoll(ctx, now)
	result := JobResult{Pass: pass, QueuedOperations: []string{}}
	s.markDispatch(ctx, input.DispatchID, jobscheduler.JobFastPoll, pass, err)
	if err != nil {
		return result, err
	}
	if !input.Chain {
		return result, nil
	}
	if err := s.enqueue(ctx, jobscheduler.JobFastPoll, JobPathFastPoll, s.cfg.PollInterval, s.cfg.PollInterval, now); err != nil {
		return result, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, jobscheduler.JobFastPoll)
	return result, nil
}

func (s *JobOrchestratorService) RunRecoverySweep(ctx context.Context, input JobInput) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobOrchestratorService.RunRecoverySweep")
	defer span.End()

	now := s.now().UTC()
	pass, err := s.recon.RunRecoverySweep(ctx, now)
	result := JobResult{Pass: pass, QueuedOperations: []string{}}
	s.markDispatch(ctx, input.DispatchID, jobscheduler.JobRecoverySweep, pass, err)
	if err != nil {
		return result, err
	}
	if !input.Chain {
		return result, nil
	}
	if err := s.enqueue(ctx, jobscheduler.JobRecoverySweep, JobPathRecoverySweep, s.cfg.SweepInterval, s.cfg.SweepInterval, now); err != nil {
		return result, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, jobscheduler.JobRecoverySweep)
	return result, nil
}

// Bootstrap queues the first run of each chained job.
func (s *JobOrchestratorService) Bootstrap(ctx context.Context) (JobResult, error) {
	now := s.now().UTC()
	result := JobResult{QueuedOperations: make([]string, 0, 2)}
	if err := s.enqueue(ctx, jobscheduler.JobFastPoll, JobPathFastPoll, 0, s.cfg.PollInterval, now); err != nil {
		return result, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, jobscheduler.JobFastPoll)
	if err := s.enqueue(ctx, jobscheduler.JobRecoverySweep, JobPathRecoverySweep, 0, s.cfg.SweepInterval, now); err != nil {
		return result, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, jobscheduler.JobRecoverySweep)
	return result, nil
}

func (s *JobOrchestratorService) enqueue(ctx context.Context, jobName, path string, delay, bucket time.Duration, now time.Time) error {
	dedupID := dedupKey(jobName, "global", now.Add(delay), bucket)
	payload := map[string]any{
		"dispatch_id": dedupID,
		"chain":       true,
	}
	if err := s.queue.Enqueue(ctx, path, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.RunEvent{
			RunID:        dedupID,
			JobName:      jobName,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now,
		})
		return fmt.Errorf("enqueue %s: %w", jobName, err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.RunEvent{
		RunID:      dedupID,
		JobName:    jobName,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now,
	})
	return nil
}

func (s *JobOrchestratorService) markDispatch(ctx context.Context, dispatchID, jobName string, pass PassReport, passErr error) {
	if strings.TrimSpace(dispatchID) == "" {
		return
	}
	event := jobscheduler.RunEvent{
		RunID:    dispatchID,
		JobName:  jobName,
		Status:   jobscheduler.StatusCompleted,
		Scoped:   pass.Scoped,
		Applied:  pass.Applied,
		Finished: pass.Finished,
		Settled:  pass.Settled,
		Failed:   pass.Failed,
	}
	if passErr != nil {
		event.Status = jobscheduler.StatusFailed
		event.ErrorMessage = passErr.Error()
	}
	s.recordDispatchEvent(ctx, event)
}

func dedupKey(prefix, scope string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	scope = sanitizeDedupSegment(scope)
	return prefix + "-" + scope + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *JobOrchestratorService) recordDispatchEvent(ctx context.Context, event jobscheduler.RunEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.RunID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.RunID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}

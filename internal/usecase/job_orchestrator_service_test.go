package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

func TestDedupKey_UsesQStashSafeFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := dedupKey("fast_poll", "grp:flat/demo 1", at, 5*time.Minute)

	if strings.Contains(got, ":") {
		t.Fatalf("dedup key must not contain colon, got=%q", got)
	}

	want := "fast_poll-grp-flat-demo-1-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected dedup key: got=%q want=%q", got, want)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected sanitize fallback: got=%q want=%q", got, "unknown")
	}
}

func newTestOrchestrator(t *testing.T, env *testEnv, queue JobQueue) *JobOrchestratorService {
	t.Helper()

	recon := env.reconciliation(newMockFixtureSource(t), nil, ReconciliationConfig{})
	service := NewJobOrchestratorService(recon, queue, env.runs, JobOrchestratorConfig{
		PollInterval:  time.Minute,
		SweepInterval: time.Hour,
	}, logging.NewNop())
	service.now = func() time.Time { return env.now }
	return service
}

func TestJobOrchestratorService_Bootstrap_QueuesBothJobs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	queue := newMockJobQueue(t)
	queue.On("Enqueue", mock.Anything, JobPathFastPoll, mock.Anything, time.Duration(0), "fast_poll-global-20260314T120000Z").Return(nil).Once()
	queue.On("Enqueue", mock.Anything, JobPathRecoverySweep, mock.Anything, time.Duration(0), "recovery_sweep-global-20260314T120000Z").Return(nil).Once()

	result, err := newTestOrchestrator(t, env, queue).Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if result.QueuedCount != 2 {
		t.Fatalf("unexpected queued count: got=%d want=%d", result.QueuedCount, 2)
	}

	runs, err := env.runs.ListRecent(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("unexpected dispatch records: got=%d want=%d", len(runs), 2)
	}
	for _, run := range runs {
		if run.Status != jobscheduler.StatusSent {
			t.Fatalf("unexpected dispatch status: got=%s want=%s", run.Status, jobscheduler.StatusSent)
		}
	}
}

func TestJobOrchestratorService_RunRecoverySweep_ChainsNextRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	queue := newMockJobQueue(t)
	queue.On("Enqueue", mock.Anything, JobPathRecoverySweep, mock.Anything, time.Hour, "recovery_sweep-global-20260314T130000Z").Return(nil).Once()

	result, err := newTestOrchestrator(t, env, queue).RunRecoverySweep(context.Background(), JobInput{
		DispatchID: "recovery_sweep-global-20260314T120000Z",
		Chain:      true,
	})
	if err != nil {
		t.Fatalf("run recovery sweep: %v", err)
	}
	if result.Pass.Job != jobscheduler.JobRecoverySweep || result.QueuedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	runs, err := env.runs.ListRecent(context.Background(), jobscheduler.JobRecoverySweep, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	statuses := make(map[string]jobscheduler.RunStatus, len(runs))
	for _, run := range runs {
		statuses[run.RunID] = run.Status
	}
	if got := statuses["recovery_sweep-global-20260314T120000Z"]; got != jobscheduler.StatusCompleted {
		t.Fatalf("delivered dispatch must be marked completed: got=%q", got)
	}
	if got := statuses["recovery_sweep-global-20260314T130000Z"]; got != jobscheduler.StatusSent {
		t.Fatalf("next dispatch must be recorded as sent: got=%q", got)
	}
}

func TestJobOrchestratorService_RunRecoverySweep_UnchainedDoesNotEnqueue(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	queue := newMockJobQueue(t)

	result, err := newTestOrchestrator(t, env, queue).RunRecoverySweep(context.Background(), JobInput{})
	if err != nil {
		t.Fatalf("run recovery sweep: %v", err)
	}
	if result.QueuedCount != 0 || len(result.QueuedOperations) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestJobOrchestratorService_Bootstrap_EnqueueFailureIsRecorded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	queue := newMockJobQueue(t)
	queue.On("Enqueue", mock.Anything, JobPathFastPoll, mock.Anything, time.Duration(0), mock.AnythingOfType("string")).
		Return(errors.New("qstash unavailable")).
		Once()

	_, err := newTestOrchestrator(t, env, queue).Bootstrap(context.Background())
	if err == nil || !strings.Contains(err.Error(), "enqueue fast_poll") {
		t.Fatalf("expected enqueue error, got %v", err)
	}

	runs, err := env.runs.ListRecent(context.Background(), jobscheduler.JobFastPoll, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != jobscheduler.StatusFailed || runs[0].ErrorMessage == "" {
		t.Fatalf("unexpected dispatch records: %+v", runs)
	}
}

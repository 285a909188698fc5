package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	"github.com/riskibarqy/predictor-league/internal/platform/id"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
)

type ReconciliationConfig struct {
	KickoffWindow    time.Duration
	SweepLookback    time.Duration
	MaxMatchDuration time.Duration
	ProviderTimeout  time.Duration
	SweepWorkers     int
	ReminderLead     time.Duration
	ReminderTTL      time.Duration
}

func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		KickoffWindow:    15 * time.Minute,
		SweepLookback:    24 * time.Hour,
		MaxMatchDuration: 3 * time.Hour,
		ProviderTimeout:  10 * time.Second,
		SweepWorkers:     8,
		ReminderLead:     30 * time.Minute,
		ReminderTTL:      6 * time.Hour,
	}
}

func normalizeReconciliationConfig(cfg ReconciliationConfig) ReconciliationConfig {
	defaults := DefaultReconciliationConfig()
	if cfg.KickoffWindow <= 0 {
		cfg.KickoffWindow = defaults.KickoffWindow
	}
	if cfg.SweepLookback <= 0 {
		cfg.SweepLookback = defaults.SweepLookback
	}
	if cfg.MaxMatchDuration <= 0 {
		cfg.MaxMatchDuration = defaults.MaxMatchDuration
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaults.ProviderTimeout
	}
	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = defaults.SweepWorkers
	}
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = defaults.ReminderLead
	}
	if cfg.ReminderTTL <= 0 {
		cfg.ReminderTTL = defaults.ReminderTTL
	}
	return cfg
}

type PassReport struct {
	Job              string `json:"job"`
	Status           string `json:"status"`
	Scoped           int    `json:"scoped"`
	Applied          int    `json:"applied"`
	Finished         int    `json:"finished"`
	Settled          int    `json:"settled"`
	Failed           int    `json:"failed"`
	Conflicts        int    `json:"conflicts"`
	Reminders        int    `json:"reminders"`
	ProviderSkipped  bool   `json:"provider_skipped"`
	ProviderReported int    `json:"provider_reported"`
}

// ReconciliationService drives provider snapshots through the match state machine
// and hands finished matches to settlement.
type ReconciliationService struct {
	matchRepo  match.Repository
	wagerRepo  wager.Repository
	source     FixtureSource
	settlement *SettlementService
	passState  PassState
	runRepo    jobscheduler.Repository
	runIDs     id.Generator
	writer     matchWriter
	publisher  EventPublisher
	metrics    Metrics
	cfg        ReconciliationConfig
	logger     *logging.Logger
}

func NewReconciliationService(
	matchRepo match.Repository,
	wagerRepo wager.Repository,
	source FixtureSource,
	settlement *SettlementService,
	passState PassState,
	runRepo jobscheduler.Repository,
	runIDs id.Generator,
	publisher EventPublisher,
	metrics Metrics,
	cfg ReconciliationConfig,
	logger *logging.Logger,
) *ReconciliationService {
	if source == nil {
		source = NewNoopFixtureSource()
	}
	if publisher == nil {
		publisher = NewNoopEventPublisher()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg = normalizeReconciliationConfig(cfg)

	return &ReconciliationService{
		matchRepo:  matchRepo,
		wagerRepo:  wagerRepo,
		source:     WithCallTimeout(source, cfg.ProviderTimeout),
		settlement: settlement,
		passState:  passState,
		runRepo:    runRepo,
		runIDs:     runIDs,
		writer: matchWriter{
			matches:   matchRepo,
			publisher: publisher,
			metrics:   metrics,
			logger:    logger,
		},
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunFastPoll reconciles live matches and matches that just kicked off against one
// in-progress listing from the fixture source.
func (s *ReconciliationService) RunFastPoll(ctx context.Context, now time.Time) (PassReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconciliationService.RunFastPoll")
	defer span.End()

	started := time.Now()
	now = now.UTC()
	report := PassReport{Job: jobscheduler.JobFastPoll}

	scope, err := s.fastPollScope(ctx, now)
	if err != nil {
		return s.finishPass(ctx, report, started, err)
	}
	report.Scoped = len(scope)
	report.Reminders = s.sendReminders(ctx, now)

	previouslyLive := true
	if s.passState != nil {
		previouslyLive, err = s.passState.PreviouslyLive(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "read pass state failed, polling anyway", "error", err)
			previouslyLive = true
		}
	}
	if len(scope) == 0 && !previouslyLive {
		report.ProviderSkipped = true
		return s.finishPass(ctx, report, started, nil)
	}

	snapshots, err := s.source.ListInProgress(ctx)
	if err != nil {
		s.metrics.AddProviderError("list_in_progress")
		s.logger.WarnContext(ctx, "list in-progress fixtures failed, retrying next pass", "error", err)
		report.Failed++
		return s.finishPass(ctx, report, started, nil)
	}
	report.ProviderReported = len(snapshots)

	inProgress := make(map[int64]match.Snapshot, len(snapshots))
	for _, snap := range snapshots {
		if snap.ExternalID > 0 {
			inProgress[snap.ExternalID] = snap
		}
	}

	stillLive := false
	scoped := make(map[int64]struct{}, len(scope))
	for _, m := range scope {
		scoped[m.ExternalID] = struct{}{}
		snap, listed := inProgress[m.ExternalID]
		if !listed {
			if m.Status != match.StatusLive {
				continue
			}
			// Absence alone never finishes a match; confirm by id.
			confirmed, ok := s.confirm(ctx, m, &report)
			if !ok {
				stillLive = true
				continue
			}
			snap = confirmed
		}
		result := s.apply(ctx, m, snap, now, &report)
		if result.Status == match.StatusLive {
			stillLive = true
		}
	}

	if err := s.applyUnscoped(ctx, inProgress, scoped, now, &report); err != nil {
		s.logger.WarnContext(ctx, "apply unscoped in-progress fixtures failed", "error", err)
	}

	if s.passState != nil {
		if err := s.passState.SetPreviouslyLive(ctx, stillLive || len(inProgress) > 0); err != nil {
			s.logger.WarnContext(ctx, "write pass state failed", "error", err)
		}
	}
	return s.finishPass(ctx, report, started, nil)
}

// RunRecoverySweep re-fetches provider matches that should have ended long ago but
// are still open locally, and re-drains finished matches with unsettled wagers.
func (s *ReconciliationService) RunRecoverySweep(ctx context.Context, now time.Time) (PassReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconciliationService.RunRecoverySweep")
	defer span.End()

	started := time.Now()
	now = now.UTC()
	report := PassReport{Job: jobscheduler.JobRecoverySweep}

	stale, err := s.matchRepo.List(ctx, match.Filter{
		Statuses:     []match.Status{match.StatusLive, match.StatusScheduled},
		KickoffFrom:  now.Add(-s.cfg.SweepLookback),
		KickoffTo:    now.Add(-s.cfg.MaxMatchDuration),
		ExternalOnly: true,
	})
	if err != nil {
		return s.finishPass(ctx, report, started, fmt.Errorf("list stale matches: %w", err))
	}

	candidates := make([]match.Match, 0, len(stale))
	for _, m := range stale {
		if !m.ManualOverride {
			candidates = append(candidates, m)
		}
	}
	report.Scoped = len(candidates)

	if len(candidates) > 0 {
		if err := s.sweep(ctx, candidates, now, &report); err != nil {
			return s.finishPass(ctx, report, started, err)
		}
	}

	if err := s.redrain(ctx, now, &report); err != nil {
		s.logger.WarnContext(ctx, "re-drain unsettled wagers failed", "error", err)
	}
	return s.finishPass(ctx, report, started, nil)
}

func (s *ReconciliationService) sweep(ctx context.Context, candidates []match.Match, now time.Time, report *PassReport) error {
	size := s.cfg.SweepWorkers
	if size > len(candidates) {
		size = len(candidates)
	}
	workerPool, err := ants.NewPool(size)
	if err != nil {
		return fmt.Errorf("create sweep worker pool: %w", err)
	}
	defer workerPool.Release()

	var (
		mu      sync.Mutex
		workers sync.WaitGroup
	)
	for _, candidate := range candidates {
		candidate := candidate
		workers.Add(1)
		if err := workerPool.Submit(func() {
			defer workers.Done()

			local := PassReport{}
			snap, ok := s.confirm(ctx, candidate, &local)
			if ok {
				s.apply(ctx, candidate, snap, now, &local)
			}

			mu.Lock()
			report.merge(local)
			mu.Unlock()
		}); err != nil {
			workers.Done()
			return fmt.Errorf("submit sweep task: %w", err)
		}
	}
	workers.Wait()
	return nil
}

func (s *ReconciliationService) redrain(ctx context.Context, now time.Time, report *PassReport) error {
	if s.settlement == nil {
		return nil
	}
	ids, err := s.wagerRepo.ListUnsettledMatchIDs(ctx, now.Add(-s.cfg.SweepLookback))
	if err != nil {
		return fmt.Errorf("list finished matches with unsettled wagers: %w", err)
	}
	for _, matchID := range ids {
		s.settle(ctx, matchID, report)
	}
	return nil
}

func (s *ReconciliationService) fastPollScope(ctx context.Context, now time.Time) ([]match.Match, error) {
	live, err := s.matchRepo.List(ctx, match.Filter{
		Statuses:     []match.Status{match.StatusLive},
		ExternalOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list live matches: %w", err)
	}
	starting, err := s.matchRepo.List(ctx, match.Filter{
		Statuses:     []match.Status{match.StatusScheduled},
		KickoffFrom:  now.Add(-s.cfg.KickoffWindow),
		KickoffTo:    now,
		ExternalOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list kicking-off matches: %w", err)
	}

	scope := make([]match.Match, 0, len(live)+len(starting))
	for _, m := range append(live, starting...) {
		if m.ManualOverride || !m.HasExternalSource() {
			continue
		}
		scope = append(scope, m)
	}
	return scope, nil
}

// applyUnscoped handles provider-live fixtures we know locally but did not scope,
// including finished ones so stale provider data is reported.
func (s *ReconciliationService) applyUnscoped(
	ctx context.Context,
	inProgress map[int64]match.Snapshot,
	scoped map[int64]struct{},
	now time.Time,
	report *PassReport,
) error {
	externalIDs := make([]int64, 0, len(inProgress))
	for externalID := range inProgress {
		if _, ok := scoped[externalID]; !ok {
			externalIDs = append(externalIDs, externalID)
		}
	}
	if len(externalIDs) == 0 {
		return nil
	}

	known, err := s.matchRepo.List(ctx, match.Filter{ExternalIDs: externalIDs})
	if err != nil {
		return err
	}
	for _, m := range known {
		s.apply(ctx, m, inProgress[m.ExternalID], now, report)
	}
	return nil
}

// confirm fetches one match by id. ok is false when the fetch failed or the
// fixture is still in progress, in which case nothing may change.
func (s *ReconciliationService) confirm(ctx context.Context, m match.Match, report *PassReport) (match.Snapshot, bool) {
	snap, err := s.source.GetByID(ctx, m.ExternalID)
	if err != nil {
		s.metrics.AddProviderError("get_by_id")
		level := s.logger.WarnContext
		if errors.Is(err, ErrFixtureNotFound) {
			level = s.logger.InfoContext
		}
		level(ctx, "confirmatory fixture fetch failed, retrying next pass",
			"match_id", m.ID,
			"external_id", m.ExternalID,
			"error", err,
		)
		report.Failed++
		return match.Snapshot{}, false
	}
	if !isTerminalSnapshot(snap.Status) {
		return match.Snapshot{}, false
	}
	return snap, true
}

// apply folds one snapshot into a freshly loaded copy of m and settles on finish.
func (s *ReconciliationService) apply(ctx context.Context, m match.Match, snap match.Snapshot, now time.Time, report *PassReport) match.Match {
	expected := m.Version()
	change := match.ApplySnapshot(&m, snap, now)
	if change.Conflict != "" {
		report.Conflicts++
		s.writer.reportConflict(ctx, m, change)
	}

	committed, err := s.writer.commit(ctx, &m, expected, change, sourceProvider)
	if err != nil {
		report.Failed++
		s.logger.ErrorContext(ctx, "persist match snapshot failed", "match_id", m.ID, "error", err)
		return m
	}
	if !committed {
		return m
	}
	report.Applied++
	if change.Finished {
		report.Finished++
		s.settle(ctx, m.ID, report)
	}
	return m
}

func (s *ReconciliationService) settle(ctx context.Context, matchID string, report *PassReport) {
	if s.settlement == nil {
		return
	}
	settled, err := s.settlement.Settle(ctx, matchID)
	if err != nil {
		report.Failed++
		s.logger.ErrorContext(ctx, "settle match failed", "match_id", matchID, "error", err)
		return
	}
	report.Settled += settled.Applied
	report.Failed += settled.Failed
}

// sendReminders emits one kickoff reminder per group for matches starting within
// the reminder lead; the shared seen-set keeps it to once across passes and instances.
func (s *ReconciliationService) sendReminders(ctx context.Context, now time.Time) int {
	if s.passState == nil {
		return 0
	}
	upcoming, err := s.matchRepo.List(ctx, match.Filter{
		Statuses:    []match.Status{match.StatusScheduled},
		KickoffFrom: now,
		KickoffTo:   now.Add(s.cfg.ReminderLead),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "list upcoming matches for reminders failed", "error", err)
		return 0
	}

	sent := 0
	for _, m := range upcoming {
		for _, groupID := range m.GroupIDs() {
			key := "reminder:" + m.ID + ":" + groupID + ":" + strconv.FormatInt(m.KickoffAt.Unix(), 10)
			first, err := s.passState.MarkSeen(ctx, key, s.cfg.ReminderTTL)
			if err != nil {
				s.logger.WarnContext(ctx, "mark reminder seen failed", "match_id", m.ID, "error", err)
				continue
			}
			if !first {
				continue
			}
			if err := s.publisher.Publish(ctx, Event{
				Type:       EventKickoffReminder,
				Key:        m.ID,
				OccurredAt: now,
				Payload: ReminderEvent{
					MatchID:   m.ID,
					GroupID:   groupID,
					HomeTeam:  m.HomeTeam,
					AwayTeam:  m.AwayTeam,
					KickoffAt: m.KickoffAt.UTC(),
				},
			}); err != nil {
				s.logger.WarnContext(ctx, "publish kickoff reminder failed", "match_id", m.ID, "error", err)
				continue
			}
			sent++
		}
	}
	return sent
}

func (s *ReconciliationService) finishPass(ctx context.Context, report PassReport, started time.Time, passErr error) (PassReport, error) {
	switch {
	case passErr != nil:
		report.Status = string(jobscheduler.StatusFailed)
	case report.ProviderSkipped:
		report.Status = string(jobscheduler.StatusSkipped)
	default:
		report.Status = string(jobscheduler.StatusCompleted)
	}
	s.metrics.ObservePass(report.Job, report.Status, time.Since(started))
	s.recordRun(ctx, report, passErr)

	if passErr != nil {
		return report, passErr
	}
	s.logger.InfoContext(ctx, "reconciliation pass completed",
		"job", report.Job,
		"scoped", report.Scoped,
		"applied", report.Applied,
		"finished", report.Finished,
		"settled", report.Settled,
		"failed", report.Failed,
		"conflicts", report.Conflicts,
		"provider_skipped", report.ProviderSkipped,
	)
	return report, nil
}

func (s *ReconciliationService) recordRun(ctx context.Context, report PassReport, passErr error) {
	if s.runRepo == nil || s.runIDs == nil {
		return
	}
	runID, err := s.runIDs.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "generate run id failed", "error", err)
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event := jobscheduler.RunEvent{
		RunID:      runID,
		JobName:    report.Job,
		Status:     jobscheduler.RunStatus(report.Status),
		Scoped:     report.Scoped,
		Applied:    report.Applied,
		Finished:   report.Finished,
		Settled:    report.Settled,
		Failed:     report.Failed,
		OccurredAt: time.Now().UTC(),
		TraceID:    traceID,
		SpanID:     spanID,
	}
	if passErr != nil {
		event.ErrorMessage = passErr.Error()
	}
	if err := s.runRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record reconciliation run failed", "job", report.Job, "error", err)
	}
}

func (r *PassReport) merge(other PassReport) {
	r.Applied += other.Applied
	r.Finished += other.Finished
	r.Settled += other.Settled
	r.Failed += other.Failed
	r.Conflicts += other.Conflicts
}

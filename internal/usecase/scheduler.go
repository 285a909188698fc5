package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/sourcegraph/conc"
)

type SchedulerConfig struct {
	PollInterval       time.Duration
	SweepInterval      time.Duration
	StateResetInterval time.Duration
}

// Scheduler runs the fast poll, the recovery sweep and the pass state reset on
// independent tickers until ctx is cancelled.
type Scheduler struct {
	recon     *ReconciliationService
	passState PassState
	cfg       SchedulerConfig
	logger    *logging.Logger
	now       func() time.Time
}

func NewScheduler(recon *ReconciliationService, passState PassState, cfg SchedulerConfig, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.StateResetInterval <= 0 {
		cfg.StateResetInterval = 24 * time.Hour
	}

	return &Scheduler{
		recon:     recon,
		passState: passState,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "reconciliation scheduler started",
		"poll_interval", s.cfg.PollInterval.String(),
		"sweep_interval", s.cfg.SweepInterval.String(),
		"state_reset_interval", s.cfg.StateResetInterval.String(),
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		s.loop(ctx, s.cfg.PollInterval, true, func(ctx context.Context) {
			if _, err := s.recon.RunFastPoll(ctx, s.now()); err != nil {
				s.logger.ErrorContext(ctx, "fast poll failed", "error", err)
			}
		})
	})
	wg.Go(func() {
		s.loop(ctx, s.cfg.SweepInterval, true, func(ctx context.Context) {
			if _, err := s.recon.RunRecoverySweep(ctx, s.now()); err != nil {
				s.logger.ErrorContext(ctx, "recovery sweep failed", "error", err)
			}
		})
	})
	if s.passState != nil {
		wg.Go(func() {
			s.loop(ctx, s.cfg.StateResetInterval, false, func(ctx context.Context) {
				if err := s.passState.Reset(ctx); err != nil {
					s.logger.WarnContext(ctx, "reset pass state failed", "error", err)
					return
				}
				s.logger.InfoContext(ctx, "pass state reset")
			})
		})
	}
	wg.Wait()

	s.logger.InfoContext(context.WithoutCancel(ctx), "reconciliation scheduler stopped")
	return nil
}

// loop runs fn every interval; passes never overlap within one loop. A started pass
// finishes even after ctx is cancelled.
func (s *Scheduler) loop(ctx context.Context, interval time.Duration, immediate bool, fn func(context.Context)) {
	passCtx := context.WithoutCancel(ctx)
	if immediate {
		fn(passCtx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(passCtx)
		}
	}
}

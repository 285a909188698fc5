package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	"github.com/riskibarqy/predictor-league/internal/platform/id"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

type SettlementConfig struct {
	MaxConcurrency int
}

type SettlementReport struct {
	MatchID       string `json:"match_id"`
	Status        string `json:"status"`
	Outcome       string `json:"outcome,omitempty"`
	Unsettled     int    `json:"unsettled"`
	Applied       int    `json:"applied"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	PointsAwarded int64  `json:"points_awarded"`
}

type SettlementService struct {
	matchRepo  match.Repository
	wagerRepo  wager.Repository
	groupRepo  group.Repository
	ledgerRepo ledger.Repository
	idGen      id.Generator
	publisher  EventPublisher
	metrics    Metrics
	cfg        SettlementConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewSettlementService(
	matchRepo match.Repository,
	wagerRepo wager.Repository,
	groupRepo group.Repository,
	ledgerRepo ledger.Repository,
	idGen id.Generator,
	publisher EventPublisher,
	metrics Metrics,
	cfg SettlementConfig,
	logger *logging.Logger,
) *SettlementService {
	if publisher == nil {
		publisher = NewNoopEventPublisher()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}

	return &SettlementService{
		matchRepo:  matchRepo,
		wagerRepo:  wagerRepo,
		groupRepo:  groupRepo,
		ledgerRepo: ledgerRepo,
		idGen:      idGen,
		publisher:  publisher,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Settle scores every unsettled wager of a finished match and credits its owner.
// It is safe to call repeatedly; already settled wagers are never visited again.
func (s *SettlementService) Settle(ctx context.Context, matchID string) (SettlementReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.Settle", matchAttr(matchID))
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return SettlementReport{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	m, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return SettlementReport{}, fmt.Errorf("get match for settlement: %w", err)
	}
	if !exists {
		return SettlementReport{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}

	report := SettlementReport{MatchID: m.ID, Status: string(m.Status)}
	outcome, finished := m.Outcome()
	if !finished {
		return report, nil
	}
	report.Outcome = string(outcome)

	wagers, err := s.wagerRepo.ListUnsettledByMatch(ctx, m.ID)
	if err != nil {
		return report, fmt.Errorf("list unsettled wagers match=%s: %w", m.ID, err)
	}
	report.Unsettled = len(wagers)
	if len(wagers) == 0 {
		return report, nil
	}

	schemes := s.resolveSchemes(ctx, m, wagers)

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.cfg.MaxConcurrency)
	for _, item := range wagers {
		item := item
		p.Go(func() {
			points, applied, err := s.settleOne(ctx, m, outcome, item, schemes)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
				s.logger.ErrorContext(ctx, "settle wager failed",
					"match_id", m.ID,
					"wager_id", item.ID,
					"group_id", item.GroupID,
					"user_id", item.UserID,
					"error", err,
				)
			case !applied:
				report.Skipped++
			default:
				report.Applied++
				report.PointsAwarded += points
			}
		})
	}
	p.Wait()

	s.metrics.AddSettlement(report.Applied, report.Skipped, report.Failed, report.PointsAwarded)
	s.logger.InfoContext(ctx, "match settled",
		"match_id", m.ID,
		"outcome", outcome,
		"unsettled", report.Unsettled,
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

// resolveSchemes loads each distinct group once. Groups that fail to load are left
// out so their wagers fail individually.
func (s *SettlementService) resolveSchemes(ctx context.Context, m match.Match, wagers []wager.Wager) map[string]payout.Scheme {
	schemes := make(map[string]payout.Scheme)
	for _, item := range wagers {
		if _, done := schemes[item.GroupID]; done {
			continue
		}
		g, exists, err := s.groupRepo.GetByID(ctx, item.GroupID)
		if err != nil || !exists {
			s.logger.WarnContext(ctx, "resolve group scheme failed",
				"match_id", m.ID,
				"group_id", item.GroupID,
				"exists", exists,
				"error", err,
			)
			schemes[item.GroupID] = nil
			continue
		}
		schemes[item.GroupID] = payout.SchemeFor(g.Scheme, m.MultipliersFor(g.ID))
	}
	return schemes
}

func (s *SettlementService) settleOne(
	ctx context.Context,
	m match.Match,
	outcome payout.Outcome,
	item wager.Wager,
	schemes map[string]payout.Scheme,
) (int64, bool, error) {
	scheme := schemes[item.GroupID]
	if scheme == nil {
		return 0, false, fmt.Errorf("%w: group=%s", ErrNotFound, item.GroupID)
	}

	points := payout.Score(item.Prediction, outcome, scheme, item.Stake)
	entryID, err := s.idGen.NewID()
	if err != nil {
		return 0, false, fmt.Errorf("generate ledger entry id: %w", err)
	}

	applied, err := s.ledgerRepo.ApplySettlement(ctx, ledger.Entry{
		ID:        entryID,
		WagerID:   item.ID,
		MatchID:   m.ID,
		GroupID:   item.GroupID,
		UserID:    item.UserID,
		Points:    points,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return 0, false, fmt.Errorf("apply settlement wager=%s: %w", item.ID, err)
	}
	if !applied {
		return 0, false, nil
	}

	if err := s.publisher.Publish(ctx, Event{
		Type:       EventWagerSettled,
		Key:        item.GroupID + ":" + item.UserID,
		OccurredAt: s.now().UTC(),
		Payload: SettlementEvent{
			WagerID:    item.ID,
			MatchID:    m.ID,
			GroupID:    item.GroupID,
			UserID:     item.UserID,
			Prediction: string(item.Prediction),
			Outcome:    string(outcome),
			Points:     points,
		},
	}); err != nil {
		s.logger.WarnContext(ctx, "publish settlement event failed", "wager_id", item.ID, "error", err)
	}
	return points, true, nil
}

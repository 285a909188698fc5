package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
)

type ManualActionInput struct {
	ActorUserID string
	MatchID     string
	GroupID     string
	Score       *match.Score
}

type ManualActionResult struct {
	Match      match.Match       `json:"-"`
	Settlement *SettlementReport `json:"settlement,omitempty"`
}

// MatchAdminService applies owner-issued manual overrides for manually managed groups.
type MatchAdminService struct {
	matchRepo  match.Repository
	groupRepo  group.Repository
	settlement *SettlementService
	writer     matchWriter
	logger     *logging.Logger
	now        func() time.Time
}

func NewMatchAdminService(
	matchRepo match.Repository,
	groupRepo group.Repository,
	settlement *SettlementService,
	publisher EventPublisher,
	metrics Metrics,
	logger *logging.Logger,
) *MatchAdminService {
	if publisher == nil {
		publisher = NewNoopEventPublisher()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchAdminService{
		matchRepo:  matchRepo,
		groupRepo:  groupRepo,
		settlement: settlement,
		writer: matchWriter{
			matches:   matchRepo,
			publisher: publisher,
			metrics:   metrics,
			logger:    logger,
		},
		logger: logger,
		now:    time.Now,
	}
}

func (s *MatchAdminService) SetScore(ctx context.Context, input ManualActionInput) (ManualActionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchAdminService.SetScore",
		matchAttr(input.MatchID),
		groupAttr(input.GroupID),
	)
	defer span.End()

	if input.Score == nil {
		return ManualActionResult{}, fmt.Errorf("%w: score is required", ErrInvalidInput)
	}
	m, err := s.loadManual(ctx, input)
	if err != nil {
		return ManualActionResult{}, err
	}

	expected := m.Version()
	change, err := match.SetProvisionalScore(&m, *input.Score, s.now().UTC())
	if err != nil {
		return ManualActionResult{}, mapMatchError(err)
	}
	if err := s.persist(ctx, &m, expected, change); err != nil {
		return ManualActionResult{}, err
	}
	return ManualActionResult{Match: m}, nil
}

func (s *MatchAdminService) MarkFinished(ctx context.Context, input ManualActionInput) (ManualActionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchAdminService.MarkFinished",
		matchAttr(input.MatchID),
		groupAttr(input.GroupID),
	)
	defer span.End()

	m, err := s.loadManual(ctx, input)
	if err != nil {
		return ManualActionResult{}, err
	}

	expected := m.Version()
	change, err := match.MarkFinished(&m, input.Score, s.now().UTC())
	if err != nil {
		return ManualActionResult{}, mapMatchError(err)
	}
	if err := s.persist(ctx, &m, expected, change); err != nil {
		return ManualActionResult{}, err
	}

	result := ManualActionResult{Match: m}
	if s.settlement == nil {
		return result, nil
	}
	report, err := s.settlement.Settle(ctx, m.ID)
	if err != nil {
		// The match is finished; the recovery sweep re-drains what is left.
		s.logger.ErrorContext(ctx, "settle after manual finish failed", "match_id", m.ID, "error", err)
		return result, nil
	}
	result.Settlement = &report
	return result, nil
}

func (s *MatchAdminService) ForceLive(ctx context.Context, input ManualActionInput) (ManualActionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchAdminService.ForceLive",
		matchAttr(input.MatchID),
		groupAttr(input.GroupID),
	)
	defer span.End()

	m, err := s.loadManual(ctx, input)
	if err != nil {
		return ManualActionResult{}, err
	}

	expected := m.Version()
	change, err := match.ForceLive(&m, s.now().UTC())
	if err != nil {
		return ManualActionResult{}, mapMatchError(err)
	}
	if err := s.persist(ctx, &m, expected, change); err != nil {
		return ManualActionResult{}, err
	}
	return ManualActionResult{Match: m}, nil
}

func (s *MatchAdminService) loadManual(ctx context.Context, input ManualActionInput) (match.Match, error) {
	matchID := strings.TrimSpace(input.MatchID)
	groupID := strings.TrimSpace(input.GroupID)
	if matchID == "" || groupID == "" {
		return match.Match{}, fmt.Errorf("%w: match id and group id are required", ErrInvalidInput)
	}

	g, exists, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get group: %w", err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: group=%s", ErrNotFound, groupID)
	}
	if input.ActorUserID != "" && !g.IsOwner(input.ActorUserID) {
		return match.Match{}, fmt.Errorf("%w: only the group owner can manage matches", ErrForbidden)
	}
	if g.IsAutomatic() {
		return match.Match{}, fmt.Errorf("%w: group=%s", ErrAutomaticGroup, groupID)
	}

	m, exists, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !exists || !m.InGroup(groupID) {
		return match.Match{}, fmt.Errorf("%w: match=%s group=%s", ErrNotFound, matchID, groupID)
	}
	if m.Status == match.StatusFinished {
		return match.Match{}, fmt.Errorf("%w: match=%s", ErrMatchFinished, matchID)
	}
	if err := s.ensureManuallyManaged(ctx, m); err != nil {
		return match.Match{}, err
	}
	return m, nil
}

// ensureManuallyManaged refuses provider-backed matches and matches linked to any
// automatic group.
func (s *MatchAdminService) ensureManuallyManaged(ctx context.Context, m match.Match) error {
	if m.HasExternalSource() {
		return fmt.Errorf("%w: match=%s is tracked by the fixture provider", ErrAutomaticGroup, m.ID)
	}
	for linkedID := range m.Groups {
		linked, exists, err := s.groupRepo.GetByID(ctx, linkedID)
		if err != nil {
			return fmt.Errorf("get linked group: %w", err)
		}
		if exists && linked.IsAutomatic() {
			return fmt.Errorf("%w: match=%s is shared with group=%s", ErrAutomaticGroup, m.ID, linkedID)
		}
	}
	return nil
}

func (s *MatchAdminService) persist(ctx context.Context, m *match.Match, expected match.Version, change match.Change) error {
	committed, err := s.writer.commit(ctx, m, expected, change, sourceManual)
	if err != nil {
		return err
	}
	if !committed && change.Mutated() {
		return fmt.Errorf("%w: match=%s changed concurrently, reload and retry", ErrConflict, m.ID)
	}
	return nil
}

func mapMatchError(err error) error {
	switch {
	case errors.Is(err, match.ErrMatchFinished):
		return err
	case errors.Is(err, match.ErrScoreRequired), errors.Is(err, match.ErrInvalidScore):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case errors.Is(err, match.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

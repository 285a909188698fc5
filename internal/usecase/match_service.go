package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/platform/id"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
)

type ImportFixtureInput struct {
	ActorUserID string
	ExternalID  int64
	GroupIDs    []string
}

type CreateManualMatchInput struct {
	ActorUserID string
	GroupID     string
	HomeTeam    string
	AwayTeam    string
	KickoffAt   time.Time
}

// MatchService creates matches and links them to groups.
type MatchService struct {
	matchRepo match.Repository
	groupRepo group.Repository
	source    FixtureSource
	idGen     id.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewMatchService(
	matchRepo match.Repository,
	groupRepo group.Repository,
	source FixtureSource,
	idGen id.Generator,
	providerTimeout time.Duration,
	logger *logging.Logger,
) *MatchService {
	if source == nil {
		source = NewNoopFixtureSource()
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchService{
		matchRepo: matchRepo,
		groupRepo: groupRepo,
		source:    WithCallTimeout(source, providerTimeout),
		idGen:     idGen,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *MatchService) GetByID(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.GetByID")
	defer span.End()

	m, exists, err := s.matchRepo.GetByID(ctx, strings.TrimSpace(matchID))
	if err != nil {
		return match.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !exists {
		return match.Match{}, fmt.Errorf("%w: match=%s", ErrNotFound, matchID)
	}
	return m, nil
}

// ImportFixture creates the match on first sight of a provider fixture and links it
// to the given groups, attaching odds for credit groups.
func (s *MatchService) ImportFixture(ctx context.Context, input ImportFixtureInput) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ImportFixture")
	defer span.End()

	if input.ExternalID <= 0 {
		return match.Match{}, fmt.Errorf("%w: external id must be > 0", ErrInvalidInput)
	}
	groups, err := s.ownedGroups(ctx, input.ActorUserID, input.GroupIDs)
	if err != nil {
		return match.Match{}, err
	}

	m, exists, err := s.matchRepo.GetByExternalID(ctx, input.ExternalID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match by external id: %w", err)
	}
	if !exists {
		m, err = s.createFromProvider(ctx, input.ExternalID)
		if err != nil {
			return match.Match{}, err
		}
	}

	var oddsLoaded bool
	var odds payout.Multipliers
	for _, g := range groups {
		if m.InGroup(g.ID) {
			continue
		}
		var multipliers *payout.Multipliers
		if g.UsesCredits() {
			if !oddsLoaded {
				odds = s.fetchOdds(ctx, m)
				oddsLoaded = true
			}
			value := odds
			multipliers = &value
		}
		if err := s.matchRepo.LinkGroup(ctx, m.ID, g.ID, multipliers); err != nil {
			return match.Match{}, fmt.Errorf("link match=%s group=%s: %w", m.ID, g.ID, err)
		}
	}

	return s.GetByID(ctx, m.ID)
}

// AddToGroup links an existing match without odds; credit groups then settle on
// neutral multipliers.
func (s *MatchService) AddToGroup(ctx context.Context, actorUserID, matchID, groupID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.AddToGroup")
	defer span.End()

	groups, err := s.ownedGroups(ctx, actorUserID, []string{groupID})
	if err != nil {
		return err
	}
	m, err := s.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if m.InGroup(groups[0].ID) {
		return nil
	}
	// Automatic groups only take provider-backed matches; a manual one would never finish.
	if groups[0].IsAutomatic() && !m.HasExternalSource() {
		return fmt.Errorf("%w: match=%s has no provider id", ErrAutomaticGroup, m.ID)
	}
	if err := s.matchRepo.LinkGroup(ctx, m.ID, groups[0].ID, nil); err != nil {
		return fmt.Errorf("link match=%s group=%s: %w", m.ID, groupID, err)
	}
	return nil
}

// CreateManual enters a match with no provider id for a manually managed group.
func (s *MatchService) CreateManual(ctx context.Context, input CreateManualMatchInput) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.CreateManual")
	defer span.End()

	home := strings.TrimSpace(input.HomeTeam)
	away := strings.TrimSpace(input.AwayTeam)
	if home == "" || away == "" || input.KickoffAt.IsZero() {
		return match.Match{}, fmt.Errorf("%w: teams and kickoff are required", ErrInvalidInput)
	}
	groups, err := s.ownedGroups(ctx, input.ActorUserID, []string{input.GroupID})
	if err != nil {
		return match.Match{}, err
	}
	if groups[0].IsAutomatic() {
		return match.Match{}, fmt.Errorf("%w: group=%s", ErrAutomaticGroup, input.GroupID)
	}

	matchID, err := s.idGen.NewID()
	if err != nil {
		return match.Match{}, fmt.Errorf("generate match id: %w", err)
	}
	now := s.now().UTC()
	m := match.Match{
		ID:        matchID,
		HomeTeam:  home,
		AwayTeam:  away,
		KickoffAt: input.KickoffAt.UTC(),
		Status:    match.StatusScheduled,
		Groups:    map[string]struct{}{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.matchRepo.Create(ctx, m); err != nil {
		return match.Match{}, fmt.Errorf("create manual match: %w", err)
	}
	if err := s.matchRepo.LinkGroup(ctx, m.ID, groups[0].ID, nil); err != nil {
		return match.Match{}, fmt.Errorf("link manual match: %w", err)
	}
	return s.GetByID(ctx, m.ID)
}

func (s *MatchService) createFromProvider(ctx context.Context, externalID int64) (match.Match, error) {
	snap, err := s.source.GetByID(ctx, externalID)
	if err != nil {
		if errors.Is(err, ErrFixtureNotFound) {
			return match.Match{}, fmt.Errorf("%w: fixture=%d", ErrNotFound, externalID)
		}
		return match.Match{}, fmt.Errorf("%w: fetch fixture=%d: %v", ErrDependencyUnavailable, externalID, err)
	}

	matchID, err := s.idGen.NewID()
	if err != nil {
		return match.Match{}, fmt.Errorf("generate match id: %w", err)
	}
	now := s.now().UTC()
	m := match.Match{
		ID:         matchID,
		ExternalID: externalID,
		HomeTeam:   snap.HomeTeam,
		AwayTeam:   snap.AwayTeam,
		KickoffAt:  snap.KickoffAt.UTC(),
		Status:     match.StatusScheduled,
		Groups:     map[string]struct{}{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	match.ApplySnapshot(&m, snap, now)

	if err := s.matchRepo.Create(ctx, m); err != nil {
		return match.Match{}, fmt.Errorf("create match: %w", err)
	}
	s.logger.InfoContext(ctx, "match imported", "match_id", m.ID, "external_id", externalID, "status", m.Status)
	return m, nil
}

func (s *MatchService) fetchOdds(ctx context.Context, m match.Match) payout.Multipliers {
	odds, err := s.source.GetOdds(ctx, m.ExternalID)
	if err != nil {
		s.logger.WarnContext(ctx, "fetch odds failed, using neutral multipliers",
			"match_id", m.ID,
			"external_id", m.ExternalID,
			"error", err,
		)
		return payout.NeutralMultipliers()
	}
	return odds.Normalized()
}

func (s *MatchService) ownedGroups(ctx context.Context, actorUserID string, groupIDs []string) ([]group.Group, error) {
	if len(groupIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one group id is required", ErrInvalidInput)
	}
	out := make([]group.Group, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		groupID = strings.TrimSpace(groupID)
		if groupID == "" {
			return nil, fmt.Errorf("%w: group id is required", ErrInvalidInput)
		}
		g, exists, err := s.groupRepo.GetByID(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("get group: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: group=%s", ErrNotFound, groupID)
		}
		if actorUserID != "" && !g.IsOwner(actorUserID) {
			return nil, fmt.Errorf("%w: only the group owner can add matches", ErrForbidden)
		}
		out = append(out, g)
	}
	return out, nil
}

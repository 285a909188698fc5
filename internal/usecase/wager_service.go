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
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	"github.com/riskibarqy/predictor-league/internal/platform/id"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
)

// IdentityProvider answers whether a user account exists.
type IdentityProvider interface {
	AccountExists(ctx context.Context, userID string) (bool, error)
}

type PlaceWagerInput struct {
	UserID     string
	GroupID    string
	MatchID    string
	Prediction string
	Stake      *int64
}

type MemberWagers struct {
	Wagers  []wager.Wager
	Stats   wager.Stats
	Balance int64
}

type WagerService struct {
	wagerRepo wager.Repository
	matchRepo match.Repository
	groupRepo group.Repository
	identity  IdentityProvider
	idGen     id.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewWagerService(
	wagerRepo wager.Repository,
	matchRepo match.Repository,
	groupRepo group.Repository,
	identity IdentityProvider,
	idGen id.Generator,
	logger *logging.Logger,
) *WagerService {
	if logger == nil {
		logger = logging.Default()
	}

	return &WagerService{
		wagerRepo: wagerRepo,
		matchRepo: matchRepo,
		groupRepo: groupRepo,
		identity:  identity,
		idGen:     idGen,
		logger:    logger,
		now:       time.Now,
	}
}

// PlaceWager creates or overwrites the caller's prediction. Credit groups move the
// stake difference against the member balance in the same repository write.
func (s *WagerService) PlaceWager(ctx context.Context, input PlaceWagerInput) (wager.Wager, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WagerService.PlaceWager",
		matchAttr(input.MatchID),
		groupAttr(input.GroupID),
	)
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.GroupID = strings.TrimSpace(input.GroupID)
	input.MatchID = strings.TrimSpace(input.MatchID)
	if input.UserID == "" || input.GroupID == "" || input.MatchID == "" {
		return wager.Wager{}, fmt.Errorf("%w: user, group and match are required", ErrInvalidInput)
	}
	prediction, ok := payout.ParseOutcome(input.Prediction)
	if !ok {
		return wager.Wager{}, fmt.Errorf("%w: prediction must be HOME, DRAW or AWAY", ErrInvalidInput)
	}

	if s.identity != nil {
		exists, err := s.identity.AccountExists(ctx, input.UserID)
		if err != nil {
			return wager.Wager{}, fmt.Errorf("%w: check account: %v", ErrDependencyUnavailable, err)
		}
		if !exists {
			return wager.Wager{}, fmt.Errorf("%w: account not found", ErrUnauthorized)
		}
	}

	g, exists, err := s.groupRepo.GetByID(ctx, input.GroupID)
	if err != nil {
		return wager.Wager{}, fmt.Errorf("get group: %w", err)
	}
	if !exists {
		return wager.Wager{}, fmt.Errorf("%w: group=%s", ErrNotFound, input.GroupID)
	}
	if !g.IsMember(input.UserID) {
		return wager.Wager{}, fmt.Errorf("%w: not a member of group=%s", ErrForbidden, input.GroupID)
	}

	now := s.now().UTC()
	m, exists, err := s.matchRepo.GetByID(ctx, input.MatchID)
	if err != nil {
		return wager.Wager{}, fmt.Errorf("get match: %w", err)
	}
	if !exists || !m.InGroup(g.ID) {
		return wager.Wager{}, fmt.Errorf("%w: match=%s group=%s", ErrNotFound, input.MatchID, input.GroupID)
	}
	if !m.AcceptsWagers(now) {
		return wager.Wager{}, fmt.Errorf("%w: match=%s status=%s", ErrWagerClosed, m.ID, m.Status)
	}

	previous, hadPrevious, err := s.wagerRepo.GetByKey(ctx, input.UserID, m.ID, g.ID)
	if err != nil {
		return wager.Wager{}, fmt.Errorf("get existing wager: %w", err)
	}
	if hadPrevious && previous.Settled {
		return wager.Wager{}, fmt.Errorf("%w: wager already settled", ErrWagerClosed)
	}

	if err := validateStake(g, input.Stake); err != nil {
		return wager.Wager{}, err
	}

	item := wager.Wager{
		ID:         previous.ID,
		UserID:     input.UserID,
		MatchID:    m.ID,
		GroupID:    g.ID,
		Prediction: prediction,
		Stake:      input.Stake,
		CreatedAt:  previous.CreatedAt,
		UpdatedAt:  now,
	}
	if !g.UsesCredits() {
		item.Stake = nil
	}
	if !hadPrevious {
		item.ID, err = s.idGen.NewID()
		if err != nil {
			return wager.Wager{}, fmt.Errorf("generate wager id: %w", err)
		}
		item.CreatedAt = now
	}

	saved, err := s.wagerRepo.Place(ctx, item)
	if err != nil {
		switch {
		case errors.Is(err, group.ErrInsufficientBalance):
			return wager.Wager{}, fmt.Errorf("%w: stake exceeds available balance", ErrInsufficientBalance)
		case errors.Is(err, wager.ErrAlreadySettled):
			return wager.Wager{}, fmt.Errorf("%w: wager already settled", ErrWagerClosed)
		}
		return wager.Wager{}, fmt.Errorf("save wager: %w", err)
	}
	return saved, nil
}

func validateStake(g group.Group, stake *int64) error {
	if !g.UsesCredits() {
		if stake != nil {
			return fmt.Errorf("%w: stake is not allowed in a flat points group", ErrInvalidInput)
		}
		return nil
	}
	if stake == nil || *stake <= 0 {
		return fmt.Errorf("%w: stake must be > 0", ErrInvalidInput)
	}
	return nil
}

func (s *WagerService) ListMemberWagers(ctx context.Context, groupID, userID string) (MemberWagers, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WagerService.ListMemberWagers")
	defer span.End()

	g, exists, err := s.groupRepo.GetByID(ctx, strings.TrimSpace(groupID))
	if err != nil {
		return MemberWagers{}, fmt.Errorf("get group: %w", err)
	}
	if !exists {
		return MemberWagers{}, fmt.Errorf("%w: group=%s", ErrNotFound, groupID)
	}
	member, ok := g.Members[userID]
	if !ok {
		return MemberWagers{}, fmt.Errorf("%w: not a member of group=%s", ErrForbidden, groupID)
	}

	items, err := s.wagerRepo.ListByMember(ctx, g.ID, userID)
	if err != nil {
		return MemberWagers{}, fmt.Errorf("list member wagers: %w", err)
	}

	statuses, err := s.matchStatuses(ctx, items)
	if err != nil {
		return MemberWagers{}, err
	}
	return MemberWagers{
		Wagers:  items,
		Stats:   wager.Summarize(items, statuses),
		Balance: member.Points,
	}, nil
}

func (s *WagerService) MemberStats(ctx context.Context, groupID, userID string) (wager.Stats, error) {
	result, err := s.ListMemberWagers(ctx, groupID, userID)
	if err != nil {
		return wager.Stats{}, err
	}
	return result.Stats, nil
}

func (s *WagerService) matchStatuses(ctx context.Context, items []wager.Wager) (map[string]match.Status, error) {
	statuses := make(map[string]match.Status, len(items))
	if len(items) == 0 {
		return statuses, nil
	}
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.MatchID]; ok {
			continue
		}
		seen[item.MatchID] = struct{}{}
		ids = append(ids, item.MatchID)
	}

	matches, err := s.matchRepo.List(ctx, match.Filter{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("list wager matches: %w", err)
	}
	for _, m := range matches {
		statuses[m.ID] = m.Status
	}
	return statuses, nil
}

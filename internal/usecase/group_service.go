package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
)

type Standing struct {
	Rank     int
	UserID   string
	Points   int64
	IsCaller bool
}

type GroupService struct {
	groupRepo  group.Repository
	ledgerRepo ledger.Repository
}

func NewGroupService(groupRepo group.Repository, ledgerRepo ledger.Repository) *GroupService {
	return &GroupService{groupRepo: groupRepo, ledgerRepo: ledgerRepo}
}

// Standings ranks members by balance; tied balances share a rank.
func (s *GroupService) Standings(ctx context.Context, groupID, callerUserID string) ([]Standing, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.Standings")
	defer span.End()

	g, err := s.memberGroup(ctx, groupID, callerUserID)
	if err != nil {
		return nil, err
	}

	members := g.Standings()
	out := make([]Standing, 0, len(members))
	for i, member := range members {
		rank := i + 1
		if i > 0 && members[i-1].Points == member.Points {
			rank = out[i-1].Rank
		}
		out = append(out, Standing{
			Rank:     rank,
			UserID:   member.UserID,
			Points:   member.Points,
			IsCaller: member.UserID == callerUserID,
		})
	}
	return out, nil
}

// History lists the caller's settlement awards in the group.
func (s *GroupService) History(ctx context.Context, groupID, callerUserID string) ([]ledger.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.History")
	defer span.End()

	g, err := s.memberGroup(ctx, groupID, callerUserID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.ListByMember(ctx, g.ID, callerUserID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

func (s *GroupService) memberGroup(ctx context.Context, groupID, callerUserID string) (group.Group, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return group.Group{}, fmt.Errorf("%w: group id is required", ErrInvalidInput)
	}
	g, exists, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return group.Group{}, fmt.Errorf("get group: %w", err)
	}
	if !exists {
		return group.Group{}, fmt.Errorf("%w: group=%s", ErrNotFound, groupID)
	}
	if !g.IsMember(callerUserID) {
		return group.Group{}, fmt.Errorf("%w: not a member of group=%s", ErrForbidden, groupID)
	}
	return g, nil
}

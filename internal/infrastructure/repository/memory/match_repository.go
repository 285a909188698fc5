package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
)

type MatchRepository struct {
	db *Database
}

func NewMatchRepository(db *Database) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(_ context.Context, id string) (match.Match, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	item, ok := r.db.matches[id]
	if !ok {
		return match.Match{}, false, nil
	}
	return cloneMatch(item), true, nil
}

func (r *MatchRepository) GetByExternalID(_ context.Context, externalID int64) (match.Match, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, item := range r.db.matches {
		if externalID > 0 && item.ExternalID == externalID {
			return cloneMatch(item), true, nil
		}
	}
	return match.Match{}, false, nil
}

func (r *MatchRepository) List(_ context.Context, filter match.Filter) ([]match.Match, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := toSet(filter.IDs)
	externalIDs := make(map[int64]struct{}, len(filter.ExternalIDs))
	for _, id := range filter.ExternalIDs {
		externalIDs[id] = struct{}{}
	}
	statuses := make(map[match.Status]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses[status] = struct{}{}
	}

	out := make([]match.Match, 0)
	for _, item := range r.db.matches {
		if filter.IDs != nil {
			if _, ok := ids[item.ID]; !ok {
				continue
			}
		}
		if filter.ExternalIDs != nil {
			if _, ok := externalIDs[item.ExternalID]; !ok {
				continue
			}
		}
		if len(statuses) > 0 {
			if _, ok := statuses[item.Status]; !ok {
				continue
			}
		}
		if filter.ExternalOnly && !item.HasExternalSource() {
			continue
		}
		if !filter.KickoffFrom.IsZero() && item.KickoffAt.Before(filter.KickoffFrom) {
			continue
		}
		if !filter.KickoffTo.IsZero() && item.KickoffAt.After(filter.KickoffTo) {
			continue
		}
		out = append(out, cloneMatch(item))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].KickoffAt.Before(out[j].KickoffAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MatchRepository) Create(_ context.Context, m match.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.matches[m.ID]; exists {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	if m.ExternalID > 0 {
		for _, item := range r.db.matches {
			if item.ExternalID == m.ExternalID {
				return fmt.Errorf("match with external id %d already exists", m.ExternalID)
			}
		}
	}
	r.db.matches[m.ID] = cloneMatch(m)
	return nil
}

func (r *MatchRepository) UpdateIfUnchanged(_ context.Context, m match.Match, expected match.Version) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.matches[m.ID]
	if !ok || current.Status != expected.Status || !current.UpdatedAt.Equal(expected.UpdatedAt) {
		return false, nil
	}
	// Group links are owned by LinkGroup.
	m.Groups = current.Groups
	m.RelativePoints = current.RelativePoints
	r.db.matches[m.ID] = cloneMatch(m)
	return true, nil
}

func (r *MatchRepository) LinkGroup(_ context.Context, matchID, groupID string, multipliers *payout.Multipliers) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.matches[matchID]
	if !ok {
		return fmt.Errorf("match %s not found", matchID)
	}
	current = cloneMatch(current)
	current.Groups[groupID] = struct{}{}
	if multipliers != nil {
		current.RelativePoints[groupID] = *multipliers
	}
	r.db.matches[matchID] = current
	return nil
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		out[value] = struct{}{}
	}
	return out
}

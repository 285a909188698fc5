package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
)

type GroupRepository struct {
	db *Database
}

func NewGroupRepository(db *Database) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) GetByID(_ context.Context, groupID string) (group.Group, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	item, ok := r.db.groups[groupID]
	if !ok {
		return group.Group{}, false, nil
	}
	return cloneGroup(item), true, nil
}

func (r *GroupRepository) Create(_ context.Context, g group.Group) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.groups[g.ID]; exists {
		return fmt.Errorf("group %s already exists", g.ID)
	}
	if g.Members == nil {
		g.Members = map[string]group.Member{}
	}
	r.db.groups[g.ID] = cloneGroup(g)
	return nil
}

func (r *GroupRepository) AddMember(_ context.Context, groupID, userID string, points int64, joinedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	g, ok := r.db.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s not found", groupID)
	}
	if _, exists := g.Members[userID]; exists {
		return nil
	}
	g.Members[userID] = group.Member{UserID: userID, Points: points, JoinedAt: joinedAt}
	return nil
}

func (r *GroupRepository) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.groups[groupID].IsMember(userID), nil
}

func (r *GroupRepository) AdjustBalance(_ context.Context, groupID, userID string, delta int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.db.adjustLocked(groupID, userID, delta, true)
}

func (db *Database) adjustLocked(groupID, userID string, delta int64, guard bool) (int64, error) {
	g, ok := db.groups[groupID]
	if !ok {
		return 0, fmt.Errorf("%w: group=%s user=%s", group.ErrMemberNotFound, groupID, userID)
	}
	member, ok := g.Members[userID]
	if !ok {
		return 0, fmt.Errorf("%w: group=%s user=%s", group.ErrMemberNotFound, groupID, userID)
	}
	if guard && member.Points+delta < 0 {
		return member.Points, group.ErrInsufficientBalance
	}
	member.Points += delta
	g.Members[userID] = member
	return member.Points, nil
}

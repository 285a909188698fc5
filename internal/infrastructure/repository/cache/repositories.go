package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	basecache "github.com/riskibarqy/predictor-league/internal/platform/cache"
)

type cachedMatchByID struct {
	value  match.Match
	exists bool
}

// MatchRepository caches point reads by id. Every write through it drops the entry;
// List always goes to next so reconciliation scopes are never stale.
type MatchRepository struct {
	next  match.Repository
	cache *basecache.Store[cachedMatchByID]
}

func NewMatchRepository(next match.Repository, ttl time.Duration) *MatchRepository {
	return &MatchRepository{next: next, cache: basecache.NewStore[cachedMatchByID](ttl).WithMaxEntries(10_000)}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	cached, err := r.cache.GetOrLoad(ctx, "match:id:"+matchID, func(ctx context.Context) (cachedMatchByID, error) {
		item, exists, err := r.next.GetByID(ctx, matchID)
		if err != nil {
			return cachedMatchByID{}, err
		}
		return cachedMatchByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return match.Match{}, false, err
	}
	return copyMatch(cached.value), cached.exists, nil
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, externalID int64) (match.Match, bool, error) {
	return r.next.GetByExternalID(ctx, externalID)
}

func (r *MatchRepository) List(ctx context.Context, filter match.Filter) ([]match.Match, error) {
	return r.next.List(ctx, filter)
}

func (r *MatchRepository) Create(ctx context.Context, m match.Match) error {
	defer r.invalidate(ctx, m.ID)
	return r.next.Create(ctx, m)
}

func (r *MatchRepository) UpdateIfUnchanged(ctx context.Context, m match.Match, expected match.Version) (bool, error) {
	defer r.invalidate(ctx, m.ID)
	return r.next.UpdateIfUnchanged(ctx, m, expected)
}

func (r *MatchRepository) LinkGroup(ctx context.Context, matchID, groupID string, multipliers *payout.Multipliers) error {
	defer r.invalidate(ctx, matchID)
	return r.next.LinkGroup(ctx, matchID, groupID, multipliers)
}

func (r *MatchRepository) invalidate(ctx context.Context, matchID string) {
	r.cache.Delete(ctx, "match:id:"+matchID)
}

type cachedGroupByID struct {
	value  group.Group
	exists bool
}

// GroupRepository caches group reads including member balances. Balance writes go
// through AdjustBalance or the wrapped LedgerRepository, both of which invalidate.
type GroupRepository struct {
	next  group.Repository
	cache *basecache.Store[cachedGroupByID]
}

func NewGroupRepository(next group.Repository, ttl time.Duration) *GroupRepository {
	return &GroupRepository{next: next, cache: basecache.NewStore[cachedGroupByID](ttl).WithMaxEntries(10_000)}
}

func (r *GroupRepository) GetByID(ctx context.Context, groupID string) (group.Group, bool, error) {
	cached, err := r.cache.GetOrLoad(ctx, groupKey(groupID), func(ctx context.Context) (cachedGroupByID, error) {
		item, exists, err := r.next.GetByID(ctx, groupID)
		if err != nil {
			return cachedGroupByID{}, err
		}
		return cachedGroupByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return group.Group{}, false, err
	}
	return copyGroup(cached.value), cached.exists, nil
}

func (r *GroupRepository) Create(ctx context.Context, g group.Group) error {
	defer r.Invalidate(ctx, g.ID)
	return r.next.Create(ctx, g)
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string, points int64, joinedAt time.Time) error {
	defer r.Invalidate(ctx, groupID)
	return r.next.AddMember(ctx, groupID, userID, points, joinedAt)
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	g, exists, err := r.GetByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	return exists && g.IsMember(userID), nil
}

func (r *GroupRepository) AdjustBalance(ctx context.Context, groupID, userID string, delta int64) (int64, error) {
	defer r.Invalidate(ctx, groupID)
	return r.next.AdjustBalance(ctx, groupID, userID, delta)
}

func (r *GroupRepository) Invalidate(ctx context.Context, groupID string) {
	r.cache.Delete(ctx, groupKey(groupID))
}

func groupKey(groupID string) string {
	return "group:id:" + groupID
}

// LedgerRepository drops the cached group after every applied settlement.
type LedgerRepository struct {
	next   ledger.Repository
	groups *GroupRepository
}

func NewLedgerRepository(next ledger.Repository, groups *GroupRepository) *LedgerRepository {
	return &LedgerRepository{next: next, groups: groups}
}

func (r *LedgerRepository) ApplySettlement(ctx context.Context, entry ledger.Entry) (bool, error) {
	applied, err := r.next.ApplySettlement(ctx, entry)
	if applied && r.groups != nil {
		r.groups.Invalidate(ctx, entry.GroupID)
	}
	return applied, err
}

func (r *LedgerRepository) ListByMember(ctx context.Context, groupID, userID string) ([]ledger.Entry, error) {
	return r.next.ListByMember(ctx, groupID, userID)
}

// WagerRepository passes wager reads through and drops the cached group after a
// placement moved a stake against the member balance.
type WagerRepository struct {
	next   wager.Repository
	groups *GroupRepository
}

func NewWagerRepository(next wager.Repository, groups *GroupRepository) *WagerRepository {
	return &WagerRepository{next: next, groups: groups}
}

func (r *WagerRepository) GetByKey(ctx context.Context, userID, matchID, groupID string) (wager.Wager, bool, error) {
	return r.next.GetByKey(ctx, userID, matchID, groupID)
}

func (r *WagerRepository) Upsert(ctx context.Context, w wager.Wager) (wager.Wager, error) {
	return r.next.Upsert(ctx, w)
}

func (r *WagerRepository) Place(ctx context.Context, w wager.Wager) (wager.Wager, error) {
	if r.groups != nil {
		defer r.groups.Invalidate(ctx, w.GroupID)
	}
	return r.next.Place(ctx, w)
}

func (r *WagerRepository) ListUnsettledByMatch(ctx context.Context, matchID string) ([]wager.Wager, error) {
	return r.next.ListUnsettledByMatch(ctx, matchID)
}

func (r *WagerRepository) ListByMember(ctx context.Context, groupID, userID string) ([]wager.Wager, error) {
	return r.next.ListByMember(ctx, groupID, userID)
}

func (r *WagerRepository) ListUnsettledMatchIDs(ctx context.Context, since time.Time) ([]string, error) {
	return r.next.ListUnsettledMatchIDs(ctx, since)
}

func copyMatch(m match.Match) match.Match {
	groups := make(map[string]struct{}, len(m.Groups))
	for id := range m.Groups {
		groups[id] = struct{}{}
	}
	m.Groups = groups
	points := make(map[string]payout.Multipliers, len(m.RelativePoints))
	for id, value := range m.RelativePoints {
		points[id] = value
	}
	m.RelativePoints = points
	if m.Result != nil {
		result := *m.Result
		m.Result = &result
	}
	return m
}

func copyGroup(g group.Group) group.Group {
	members := make(map[string]group.Member, len(g.Members))
	for id, member := range g.Members {
		members[id] = member
	}
	g.Members = members
	return g
}

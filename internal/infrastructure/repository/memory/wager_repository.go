package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
)

type WagerRepository struct {
	db *Database
}

func NewWagerRepository(db *Database) *WagerRepository {
	return &WagerRepository{db: db}
}

func (r *WagerRepository) GetByKey(_ context.Context, userID, matchID, groupID string) (wager.Wager, bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.wagerKeys[wagerKey(userID, matchID, groupID)]
	if !ok {
		return wager.Wager{}, false, nil
	}
	return cloneWager(r.db.wagers[id]), true, nil
}

func (r *WagerRepository) Upsert(_ context.Context, w wager.Wager) (wager.Wager, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := wagerKey(w.UserID, w.MatchID, w.GroupID)
	if id, ok := r.db.wagerKeys[key]; ok {
		current := r.db.wagers[id]
		if current.Settled {
			return wager.Wager{}, fmt.Errorf("%w: id=%s", wager.ErrAlreadySettled, id)
		}
		current.Prediction = w.Prediction
		current.Stake = w.Stake
		current.UpdatedAt = w.UpdatedAt
		r.db.wagers[id] = cloneWager(current)
		return cloneWager(current), nil
	}

	w.Settled = false
	w.Points = nil
	r.db.wagers[w.ID] = cloneWager(w)
	r.db.wagerKeys[key] = w.ID
	return cloneWager(w), nil
}

func (r *WagerRepository) Place(_ context.Context, w wager.Wager) (wager.Wager, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := wagerKey(w.UserID, w.MatchID, w.GroupID)
	var previous wager.Wager
	if id, ok := r.db.wagerKeys[key]; ok {
		previous = r.db.wagers[id]
		if previous.Settled {
			return wager.Wager{}, fmt.Errorf("%w: id=%s", wager.ErrAlreadySettled, id)
		}
	}
	if delta := previous.StakeAmount() - w.StakeAmount(); delta != 0 {
		if _, err := r.db.adjustLocked(w.GroupID, w.UserID, delta, true); err != nil {
			return wager.Wager{}, err
		}
	}

	if previous.ID != "" {
		previous.Prediction = w.Prediction
		previous.Stake = w.Stake
		previous.UpdatedAt = w.UpdatedAt
		r.db.wagers[previous.ID] = cloneWager(previous)
		return cloneWager(previous), nil
	}
	w.Settled = false
	w.Points = nil
	r.db.wagers[w.ID] = cloneWager(w)
	r.db.wagerKeys[key] = w.ID
	return cloneWager(w), nil
}

func (r *WagerRepository) ListUnsettledByMatch(_ context.Context, matchID string) ([]wager.Wager, error) {
	return r.list(func(w wager.Wager) bool { return w.MatchID == matchID && !w.Settled }), nil
}

func (r *WagerRepository) ListByMember(_ context.Context, groupID, userID string) ([]wager.Wager, error) {
	return r.list(func(w wager.Wager) bool { return w.GroupID == groupID && w.UserID == userID }), nil
}

func (r *WagerRepository) ListUnsettledMatchIDs(_ context.Context, since time.Time) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, w := range r.db.wagers {
		if w.Settled {
			continue
		}
		if _, ok := seen[w.MatchID]; ok {
			continue
		}
		seen[w.MatchID] = struct{}{}
		m, ok := r.db.matches[w.MatchID]
		if !ok || m.Status != match.StatusFinished || m.KickoffAt.Before(since) {
			continue
		}
		out = append(out, w.MatchID)
	}
	sort.Strings(out)
	return out, nil
}

func (r *WagerRepository) list(keep func(wager.Wager) bool) []wager.Wager {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]wager.Wager, 0)
	for _, w := range r.db.wagers {
		if keep(w) {
			out = append(out, cloneWager(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type LedgerRepository struct {
	db *Database
}

func NewLedgerRepository(db *Database) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) ApplySettlement(_ context.Context, entry ledger.Entry) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	w, ok := r.db.wagers[entry.WagerID]
	if !ok {
		return false, fmt.Errorf("wager %s not found", entry.WagerID)
	}
	if w.Settled {
		return false, nil
	}
	if _, err := r.db.adjustLocked(w.GroupID, w.UserID, entry.Points, false); err != nil {
		return false, err
	}

	points := entry.Points
	settledAt := entry.CreatedAt
	if settledAt.IsZero() {
		settledAt = time.Now().UTC()
	}
	w.Points = &points
	w.Settled = true
	w.SettledAt = &settledAt
	w.UpdatedAt = settledAt
	r.db.wagers[w.ID] = w
	r.db.entries = append(r.db.entries, entry)
	return true, nil
}

func (r *LedgerRepository) ListByMember(_ context.Context, groupID, userID string) ([]ledger.Entry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]ledger.Entry, 0)
	for _, entry := range r.db.entries {
		if entry.GroupID == groupID && entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

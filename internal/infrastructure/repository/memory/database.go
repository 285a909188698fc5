package memory

import (
	"sync"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
)

// Database is the single lock shared by the in-memory repositories so that
// settlement can touch a wager and a member balance as one unit.
type Database struct {
	mu        sync.RWMutex
	matches   map[string]match.Match
	groups    map[string]group.Group
	wagers    map[string]wager.Wager
	wagerKeys map[string]string
	entries   []ledger.Entry
	runs      map[string]jobscheduler.RunEvent
}

func NewDatabase() *Database {
	return &Database{
		matches:   make(map[string]match.Match),
		groups:    make(map[string]group.Group),
		wagers:    make(map[string]wager.Wager),
		wagerKeys: make(map[string]string),
		runs:      make(map[string]jobscheduler.RunEvent),
	}
}

func wagerKey(userID, matchID, groupID string) string {
	return userID + "|" + matchID + "|" + groupID
}

func cloneMatch(m match.Match) match.Match {
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
		if result.Outcome != nil {
			outcome := *result.Outcome
			result.Outcome = &outcome
		}
		m.Result = &result
	}
	if m.FinishedAt != nil {
		finishedAt := *m.FinishedAt
		m.FinishedAt = &finishedAt
	}
	return m
}

func cloneGroup(g group.Group) group.Group {
	members := make(map[string]group.Member, len(g.Members))
	for id, member := range g.Members {
		members[id] = member
	}
	g.Members = members
	return g
}

func cloneWager(w wager.Wager) wager.Wager {
	if w.Stake != nil {
		stake := *w.Stake
		w.Stake = &stake
	}
	if w.Points != nil {
		points := *w.Points
		w.Points = &points
	}
	if w.SettledAt != nil {
		settledAt := *w.SettledAt
		w.SettledAt = &settledAt
	}
	return w
}

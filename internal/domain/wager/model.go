package wager

import (
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
)

// Wager is one member's prediction on one match inside one group.
type Wager struct {
	ID         string
	UserID     string
	MatchID    string
	GroupID    string
	Prediction payout.Outcome
	Stake      *int64
	Points     *int64
	Settled    bool
	SettledAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (w Wager) StakeAmount() int64 {
	if w.Stake == nil {
		return 0
	}
	return *w.Stake
}

type State string

const (
	StatePending State = "pending"
	StateWon     State = "won"
	StateLost    State = "lost"
	StateVoid    State = "void"
)

// Classify derives the statistics bucket of a wager given its match status.
func (w Wager) Classify(status match.Status) State {
	if status.IsVoid() {
		return StateVoid
	}
	if !w.Settled || w.Points == nil {
		return StatePending
	}
	if *w.Points > 0 {
		return StateWon
	}
	return StateLost
}

type Stats struct {
	Won     int
	Lost    int
	Pending int
	Void    int
	Points  int64
}

// Summarize aggregates wagers; statuses maps match id to match status.
func Summarize(wagers []Wager, statuses map[string]match.Status) Stats {
	var stats Stats
	for _, w := range wagers {
		switch w.Classify(statuses[w.MatchID]) {
		case StateWon:
			stats.Won++
		case StateLost:
			stats.Lost++
		case StateVoid:
			stats.Void++
			continue
		default:
			stats.Pending++
		}
		if w.Points != nil {
			stats.Points += *w.Points
		}
	}
	return stats
}
